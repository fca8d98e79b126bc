package models

// Names of the date-keyed datasets joined into a snapshot.
const (
	ProviderForecast           = "forecast"
	ProviderProductionOrders   = "production_orders"
	ProviderProductionSchedule = "production_schedule"
	ProviderShiftA             = "shift_a"
	ProviderShiftB             = "shift_b"
)

// ProviderNames lists the datasets in snapshot order.
var ProviderNames = []string{
	ProviderForecast,
	ProviderProductionOrders,
	ProviderProductionSchedule,
	ProviderShiftA,
	ProviderShiftB,
}
