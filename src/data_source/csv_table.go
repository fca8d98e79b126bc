package datasource

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"scm-scheduler/src/logger"
	"scm-scheduler/src/models"

	"cloud.google.com/go/civil"
)

// -----------------------------------------------------------------------------
// CSVTable serves a date-keyed dataset from a CSV file loaded once.
// -----------------------------------------------------------------------------

type CSVTable struct {
	name       string
	path       string
	dateColumn string
	logger     *logger.Logger

	once    sync.Once
	columns []string
	rows    []models.MRow
	err     error
}

// -----------------------------------------------------------------------------

func NewCSVTable(name, path, dateColumn string, log *logger.Logger) *CSVTable {
	return &CSVTable{
		name:       name,
		path:       path,
		dateColumn: dateColumn,
		logger:     log,
	}
}

// -----------------------------------------------------------------------------

func (t *CSVTable) Name() string {
	return t.name
}

// -----------------------------------------------------------------------------

// RowsFor filters the cached table. The file is read on first use; a missing
// file is an empty dataset.
func (t *CSVTable) RowsFor(ctx context.Context, date civil.Date) ([]models.MRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := t.Rows()
	if err != nil {
		return nil, err
	}
	return filterByDate(rows, t.dateColumn, date)
}

// -----------------------------------------------------------------------------

// Rows returns the whole table.
func (t *CSVTable) Rows() ([]models.MRow, error) {
	t.once.Do(func() {
		f, err := os.Open(t.path)
		if err != nil {
			if os.IsNotExist(err) {
				t.logger.Warning("Dataset %s: file %s not found, serving no rows", t.name, t.path)
				t.rows = []models.MRow{}
				return
			}
			t.err = fmt.Errorf("open %s: %w", t.path, err)
			return
		}
		defer f.Close()

		t.columns, t.rows, t.err = ReadCSVTable(f)
		if t.err != nil {
			t.err = fmt.Errorf("read %s: %w", t.path, t.err)
			return
		}
		t.logger.Info("Dataset %s: loaded %d rows from %s", t.name, len(t.rows), t.path)
	})
	return t.rows, t.err
}

// -----------------------------------------------------------------------------

// Columns returns the header of the file, nil when the file is missing or empty.
func (t *CSVTable) Columns() ([]string, error) {
	if _, err := t.Rows(); err != nil {
		return nil, err
	}
	return t.columns, nil
}

// -----------------------------------------------------------------------------

// ReadCSV parses a header row plus records. Each column is typed as a whole:
// int64 when every non-empty cell is an integer, float64 when every non-empty
// cell is numeric, string otherwise. Empty cells are nil.
func ReadCSV(r io.Reader) ([]models.MRow, error) {
	_, rows, err := ReadCSVTable(r)
	return rows, err
}

// ReadCSVTable is ReadCSV that also returns the header, which a header-only
// file still has.
func ReadCSVTable(r io.Reader) ([]string, []models.MRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, []models.MRow{}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if len(rec) > len(header) {
			return nil, nil, fmt.Errorf("line %d has %d fields, header has %d", len(records)+2, len(rec), len(header))
		}
		records = append(records, rec)
	}

	kinds := make([]cellKind, len(header))
	for i := range header {
		kinds[i] = inferKind(records, i)
	}

	rows := make([]models.MRow, 0, len(records))
	for _, rec := range records {
		values := make([]interface{}, len(header))
		for i := range header {
			if i < len(rec) {
				values[i] = kinds[i].convert(rec[i])
			}
		}
		rows = append(rows, models.MRow{Columns: header, Values: values})
	}
	return header, rows, nil
}

// -----------------------------------------------------------------------------
// Column type inference
// -----------------------------------------------------------------------------

type cellKind int

const (
	kindInt cellKind = iota
	kindFloat
	kindString
)

func inferKind(records [][]string, col int) cellKind {
	kind := kindInt
	for _, rec := range records {
		if col >= len(rec) {
			continue
		}
		s := strings.TrimSpace(rec[col])
		if s == "" {
			continue
		}
		if kind == kindInt {
			if _, err := strconv.ParseInt(s, 10, 64); err == nil {
				continue
			}
			kind = kindFloat
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return kindString
		}
	}
	return kind
}

// -----------------------------------------------------------------------------

func (k cellKind) convert(s string) interface{} {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	switch k {
	case kindInt:
		if v, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return v
		}
	case kindFloat:
		if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return v
		}
	}
	return s
}
