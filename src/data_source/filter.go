package datasource

import (
	"scm-scheduler/src/models"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"
)

// filterByDate keeps the rows whose dateColumn coerces to date. Values that
// are not dates never match. A non-empty table without the column is an error.
func filterByDate(rows []models.MRow, dateColumn string, date civil.Date) ([]models.MRow, error) {
	out := make([]models.MRow, 0)
	for i, r := range rows {
		v, ok := r.Get(dateColumn)
		if !ok {
			return nil, errors.Errorf("row %d has no column %q", i, dateColumn)
		}
		if d, ok := models.CoerceDate(v); ok && d == date {
			out = append(out, r)
		}
	}
	return out, nil
}
