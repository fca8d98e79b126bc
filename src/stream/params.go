package stream

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"scm-scheduler/src/helpers"

	"cloud.google.com/go/civil"
)

// MaxInterval is the largest interval in seconds that fits a time.Duration.
// Larger values are capped to it.
const MaxInterval = math.MaxInt64 / int64(time.Second)

// Params are the validated initiation parameters of a session.
type Params struct {
	Start    civil.Date
	End      civil.Date
	Interval int
}

// Days is the inclusive number of dates in the range, 0 when End < Start.
func (p Params) Days() int {
	if p.End.Before(p.Start) {
		return 0
	}
	return p.End.DaysSince(p.Start) + 1
}

// -----------------------------------------------------------------------------

// ParseParams reads start, end and interval from a raw query string. Dates
// must be YYYY-MM-DD; a bad one yields a *helpers.ValidationError. An absent,
// non-numeric or non-positive interval falls back to defaultInterval, one
// above MaxInterval is capped.
func ParseParams(rawQuery string, defaultInterval int) (Params, error) {
	// Malformed pairs are dropped, the rest is kept
	values, _ := url.ParseQuery(rawQuery)

	start, err := civil.ParseDate(strings.TrimSpace(values.Get("start")))
	if err != nil {
		return Params{}, helpers.NewInvalidDateError(err)
	}
	end, err := civil.ParseDate(strings.TrimSpace(values.Get("end")))
	if err != nil {
		return Params{}, helpers.NewInvalidDateError(err)
	}

	return Params{
		Start:    start,
		End:      end,
		Interval: parseInterval(values, defaultInterval),
	}, nil
}

// -----------------------------------------------------------------------------

func parseInterval(values url.Values, defaultInterval int) int {
	if defaultInterval < 1 {
		defaultInterval = 1
	}
	raw, ok := values["interval"]
	if !ok || len(raw) == 0 {
		return defaultInterval
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw[0]), 10, 64)
	if err != nil {
		// out of int64 range still reads as a number
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange && n > 0 {
			return int(MaxInterval)
		}
		return defaultInterval
	}
	if n < 1 {
		return defaultInterval
	}
	if n > MaxInterval {
		return int(MaxInterval)
	}
	return int(n)
}
