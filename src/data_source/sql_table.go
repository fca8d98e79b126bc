package datasource

import (
	"context"

	"scm-scheduler/src/interfaces"
	"scm-scheduler/src/models"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"
)

// -----------------------------------------------------------------------------
// SQLTable reads a dataset table (or view) on every call and filters in Go, so
// the date column is coerced the same way as for CSV files.
// -----------------------------------------------------------------------------

type SQLTable struct {
	name       string
	table      string
	dateColumn string
	db         interfaces.IDatabase
}

// -----------------------------------------------------------------------------

func NewSQLTable(name, table, dateColumn string, db interfaces.IDatabase) *SQLTable {
	return &SQLTable{
		name:       name,
		table:      table,
		dateColumn: dateColumn,
		db:         db,
	}
}

// -----------------------------------------------------------------------------

func (t *SQLTable) Name() string {
	return t.name
}

// -----------------------------------------------------------------------------

func (t *SQLTable) RowsFor(ctx context.Context, date civil.Date) ([]models.MRow, error) {
	rows, err := t.db.QueryRows(ctx, t.table)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", t.table)
	}
	return filterByDate(rows, t.dateColumn, date)
}
