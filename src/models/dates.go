package models

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Layouts accepted when coercing a provider's date column. Values matching
// none of them never equal any date.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006/01/02",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
}

// -----------------------------------------------------------------------------

// CoerceDate extracts the calendar date of a provider value.
func CoerceDate(v interface{}) (civil.Date, bool) {
	switch t := v.(type) {
	case civil.Date:
		return t, t.IsValid()
	case civil.DateTime:
		return t.Date, t.Date.IsValid()
	case time.Time:
		if t.IsZero() {
			return civil.Date{}, false
		}
		return civil.DateOf(t), true
	case *time.Time:
		if t == nil || t.IsZero() {
			return civil.Date{}, false
		}
		return civil.DateOf(*t), true
	case []byte:
		return parseDateString(string(t))
	case string:
		return parseDateString(t)
	}
	return civil.Date{}, false
}

// -----------------------------------------------------------------------------

func parseDateString(s string) (civil.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}
