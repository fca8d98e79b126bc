package models

// -----------------------------------------------------------------------------
// Frames pushed over the scheduling stream
// -----------------------------------------------------------------------------

// MDailySnapshot is the composite payload for one calendar date.
type MDailySnapshot struct {
	Date                  string           `json:"date"`
	ForecastedDemand      map[string]int64 `json:"forecasted_demand"`
	ProductionOrders      []MRow           `json:"production_orders"`
	ProductionSchedule    []MRow           `json:"production_schedule"`
	TotalQtyScheduled     int64            `json:"total_qty_scheduled"`
	StationScheduleShiftA []MRow           `json:"station_schedule_shift_a"`
	StationScheduleShiftB []MRow           `json:"station_schedule_shift_b"`
	Timestamp             string           `json:"ts"`
}

// -----------------------------------------------------------------------------

// MErrorFrame is the terminal frame of a failed session.
type MErrorFrame struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
	Trace string `json:"trace,omitempty"`
}
