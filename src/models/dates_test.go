package models

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
)

func TestCoerceDate(t *testing.T) {
	want := civil.Date{Year: 2018, Month: time.January, Day: 3}

	tests := []struct {
		name string
		in   interface{}
		ok   bool
	}{
		{"iso date", "2018-01-03", true},
		{"padded", "  2018-01-03 ", true},
		{"datetime", "2018-01-03 06:15:00", true},
		{"T datetime", "2018-01-03T06:15:00", true},
		{"rfc3339", "2018-01-03T06:15:00Z", true},
		{"slashes", "2018/01/03", true},
		{"us style", "1/3/2018", true},
		{"bytes", []byte("2018-01-03"), true},
		{"time", time.Date(2018, 1, 3, 23, 0, 0, 0, time.UTC), true},
		{"civil", want, true},
		{"civil datetime", civil.DateTime{Date: want}, true},
		{"garbage", "not-a-date", false},
		{"empty", "", false},
		{"nil", nil, false},
		{"number", int64(20180103), false},
		{"zero time", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, want, got)
			}
		})
	}
}
