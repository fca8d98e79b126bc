package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"scm-scheduler/src/models"

	"cloud.google.com/go/civil"
)

// -----------------------------------------------------------------------------
// Shared helpers of the SQL backends: schema inference, bulk insert, scanning.
// -----------------------------------------------------------------------------

type dialect struct {
	name        string
	intType     string
	floatType   string
	textType    string
	placeholder func(n int) string
}

var sqliteDialect = dialect{
	name:        "sqlite",
	intType:     "INTEGER",
	floatType:   "REAL",
	textType:    "TEXT",
	placeholder: func(int) string { return "?" },
}

var postgresDialect = dialect{
	name:        "postgres",
	intType:     "BIGINT",
	floatType:   "DOUBLE PRECISION",
	textType:    "TEXT",
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
}

// -----------------------------------------------------------------------------

// quoteIdent quotes a table or column name for both sqlite and postgres.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// -----------------------------------------------------------------------------

// columnsOf returns declared followed by the other row columns, in first-seen
// order.
func columnsOf(declared []string, rows []models.MRow) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, c := range declared {
		if c != "" && !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	for _, r := range rows {
		for _, c := range r.Columns {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	return cols
}

// -----------------------------------------------------------------------------

// columnType picks the narrowest SQL type holding every non-null value of col.
func (d dialect) columnType(rows []models.MRow, col string) string {
	kind := "int"
	sawValue := false
	for _, r := range rows {
		v, ok := r.Get(col)
		if !ok {
			continue
		}
		switch models.NormalizeValue(v).(type) {
		case nil:
			continue
		case int64:
		case float64:
			if kind == "int" {
				kind = "float"
			}
		default:
			return d.textType
		}
		sawValue = true
	}

	if !sawValue {
		return d.textType
	}
	if kind == "float" {
		return d.floatType
	}
	return d.intType
}

// -----------------------------------------------------------------------------

// createTableSQL drops and recreates qualified with the columns of rows.
func (d dialect) createTableSQL(qualified string, cols []string, rows []models.MRow) (string, string) {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s %s", quoteIdent(c), d.columnType(rows, c))
	}
	drop := fmt.Sprintf("DROP TABLE IF EXISTS %s", qualified)
	create := fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", qualified, strings.Join(defs, ",\n\t"))
	return drop, create
}

// -----------------------------------------------------------------------------

func (d dialect) insertSQL(qualified string, cols []string) string {
	names := make([]string, len(cols))
	params := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quoteIdent(c)
		params[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", qualified, strings.Join(names, ", "), strings.Join(params, ", "))
}

// -----------------------------------------------------------------------------

// importRows replaces qualified with rows inside one transaction.
func importRows(ctx context.Context, db *sql.DB, d dialect, qualified string, columns []string, rows []models.MRow) (int, error) {
	cols := columnsOf(columns, rows)
	if len(cols) == 0 {
		return 0, fmt.Errorf("no columns to import into %s", qualified)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	drop, create := d.createTableSQL(qualified, cols, rows)
	if _, err := tx.ExecContext(ctx, drop); err != nil {
		return 0, fmt.Errorf("failed to drop %s: %w", qualified, err)
	}
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", qualified, err)
	}

	stmt, err := tx.PrepareContext(ctx, d.insertSQL(qualified, cols))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	args := make([]interface{}, len(cols))
	for n, r := range rows {
		for i, c := range cols {
			v, _ := r.Get(c)
			args[i] = models.NormalizeValue(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert row %d into %s: %w", n, qualified, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// -----------------------------------------------------------------------------

// queryAll reads every row of qualified. Text comes back as string, NUMERIC
// as float64. DATE columns come back as civil.Date and zone-less TIMESTAMP
// columns as civil.DateTime, so neither picks up a made-up offset.
func queryAll(ctx context.Context, db *sql.DB, qualified string) ([]models.MRow, error) {
	rs, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", qualified))
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	types, err := rs.ColumnTypes()
	if err != nil {
		return nil, err
	}
	cols := make([]string, len(types))
	for i, t := range types {
		cols[i] = t.Name()
	}

	out := make([]models.MRow, 0)
	for rs.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := models.MRow{Columns: cols, Values: make([]interface{}, len(cols))}
		for i, v := range values {
			row.Values[i] = convertScanned(v, types[i].DatabaseTypeName())
		}
		out = append(out, row)
	}
	return out, rs.Err()
}

// -----------------------------------------------------------------------------

func convertScanned(v interface{}, dbType string) interface{} {
	switch t := v.(type) {
	case []byte:
		s := string(t)
		switch strings.ToUpper(dbType) {
		case "NUMERIC", "DECIMAL":
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
		return s
	case time.Time:
		switch strings.ToUpper(dbType) {
		case "DATE":
			return civil.DateOf(t)
		case "TIMESTAMP", "DATETIME":
			return civil.DateTimeOf(t)
		}
		return t
	}
	return v
}
