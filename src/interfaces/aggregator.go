package interfaces

import (
	"context"

	"scm-scheduler/src/models"

	"cloud.google.com/go/civil"
)

// -----------------------------------------------------------------------------
// ISnapshotBuilder assembles the composite payload of one calendar date.
// -----------------------------------------------------------------------------

type ISnapshotBuilder interface {
	Aggregate(ctx context.Context, date civil.Date) (*models.MDailySnapshot, error)
}
