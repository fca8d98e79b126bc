package interfaces

import (
	"context"

	"scm-scheduler/src/models"
)

// -----------------------------------------------------------------------------
// IDatabase defines the contract for the SQL-backed dataset store.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize opens the connection and prepares the schema.
	Initialize() error

	// -----------------------------------------------------------------------------

	// ImportTable (re)creates table with columns (plus any extra column found
	// in rows) and bulk inserts rows. Zero rows leaves an empty table.
	ImportTable(ctx context.Context, table string, columns []string, rows []models.MRow) (int, error)

	// -----------------------------------------------------------------------------

	// QueryRows reads every row of table in insertion order.
	QueryRows(ctx context.Context, table string) ([]models.MRow, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
