package interfaces

import (
	"context"

	"scm-scheduler/src/models"

	"cloud.google.com/go/civil"
)

// -----------------------------------------------------------------------------
// IRowProvider is a read-only, date-keyed dataset (forecast, orders, schedule, shifts).
// -----------------------------------------------------------------------------

type IRowProvider interface {

	// Name returns the dataset identifier used in logs and error frames
	Name() string

	// -----------------------------------------------------------------------------

	// RowsFor returns the rows whose date column equals date, in source order.
	// Implementations must be safe for concurrent use and return identical
	// rows for the same date on every call.
	RowsFor(ctx context.Context, date civil.Date) ([]models.MRow, error)
}
