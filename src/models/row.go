package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"cloud.google.com/go/civil"
)

// -----------------------------------------------------------------------------
// MRow is one provider record: an ordered list of column/value pairs.
// Schemas differ per dataset, so rows stay open-ended.
// -----------------------------------------------------------------------------

type MRow struct {
	Columns []string
	Values  []interface{}
}

// NewRow builds a row from parallel column and value slices.
func NewRow(columns []string, values []interface{}) MRow {
	r := MRow{
		Columns: make([]string, 0, len(columns)),
		Values:  make([]interface{}, 0, len(columns)),
	}
	for i, col := range columns {
		var v interface{}
		if i < len(values) {
			v = values[i]
		}
		r.Set(col, v)
	}
	return r
}

// -----------------------------------------------------------------------------

// Get returns the value stored under col.
func (r MRow) Get(col string) (interface{}, bool) {
	for i, c := range r.Columns {
		if c == col {
			return r.Values[i], true
		}
	}
	return nil, false
}

// -----------------------------------------------------------------------------

// Set replaces the value of col, appending the column if it is new.
func (r *MRow) Set(col string, v interface{}) {
	for i, c := range r.Columns {
		if c == col {
			r.Values[i] = v
			return
		}
	}
	r.Columns = append(r.Columns, col)
	r.Values = append(r.Values, v)
}

// -----------------------------------------------------------------------------

func (r MRow) Len() int {
	return len(r.Columns)
}

// -----------------------------------------------------------------------------

// Normalized returns a copy where every value is JSON-native and every
// date/time value is a string. dateColumn, when set, is rendered as a
// calendar date.
func (r MRow) Normalized(dateColumn string) MRow {
	out := MRow{
		Columns: append([]string(nil), r.Columns...),
		Values:  make([]interface{}, len(r.Values)),
	}
	for i, v := range r.Values {
		if r.Columns[i] == dateColumn {
			if d, ok := CoerceDate(v); ok {
				out.Values[i] = d.String()
				continue
			}
		}
		out.Values[i] = NormalizeValue(v)
	}
	return out
}

// -----------------------------------------------------------------------------

// MarshalJSON encodes the row as an object, keeping column order.
func (r MRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := json.Marshal(NormalizeValue(r.Values[i]))
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// -----------------------------------------------------------------------------

// UnmarshalJSON decodes an object back into a row, keeping key order.
// Whole numbers come back as int64, other numbers as float64.
func (r *MRow) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row must be a JSON object")
	}

	r.Columns = r.Columns[:0]
	r.Values = r.Values[:0]
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", tok)
		}

		var raw interface{}
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("column %q: %w", key, err)
		}
		r.Columns = append(r.Columns, key)
		r.Values = append(r.Values, fromJSONNumber(raw))
	}

	_, err = dec.Token()
	return err
}

// -----------------------------------------------------------------------------

func fromJSONNumber(v interface{}) interface{} {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// -----------------------------------------------------------------------------
// Value normalization
// -----------------------------------------------------------------------------

const (
	isoDateTimeLayout = "2006-01-02T15:04:05"
	isoMicrosLayout   = ".000000"
	isoOffsetLayout   = "-07:00"
)

// NormalizeValue maps driver values onto JSON-native ones. Date/time values
// become ISO-8601 strings: civil.Date as a calendar date, civil.DateTime as
// a datetime without offset and time.Time as a datetime with its offset,
// midnight included.
func NormalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case string, bool, int64:
		return t
	case []byte:
		return string(t)
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t)
	case float32:
		return normalizeFloat(float64(t))
	case float64:
		return normalizeFloat(t)
	case civil.Date:
		return t.String()
	case civil.DateTime:
		return formatDateTime(t)
	case time.Time:
		return formatTime(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return formatTime(*t)
	case json.Number:
		return fromJSONNumber(t)
	default:
		return fmt.Sprint(t)
	}
}

// -----------------------------------------------------------------------------

func normalizeFloat(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// -----------------------------------------------------------------------------

func formatTime(t time.Time) string {
	return t.Format(isoLayout(t) + isoOffsetLayout)
}

func formatDateTime(dt civil.DateTime) string {
	t := dt.In(time.UTC)
	return t.Format(isoLayout(t))
}

// isoLayout prints microseconds only when there are any, always six digits.
func isoLayout(t time.Time) string {
	if t.Nanosecond()/int(time.Microsecond) != 0 {
		return isoDateTimeLayout + isoMicrosLayout
	}
	return isoDateTimeLayout
}
