// Package stream runs the date-range scheduling sessions.
package stream

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"scm-scheduler/src/helpers"
	"scm-scheduler/src/interfaces"
	"scm-scheduler/src/logger"
	"scm-scheduler/src/metrics"
	"scm-scheduler/src/models"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"
)

// -----------------------------------------------------------------------------

// Driver walks the date range of a session: one aggregate and send per
// date, then an interruptible wait of the session interval.
type Driver struct {
	Builder         interfaces.ISnapshotBuilder
	DefaultInterval int
	Logger          *logger.Logger

	// IntervalUnit scales the interval parameter (time.Second in production).
	IntervalUnit time.Duration
}

// -----------------------------------------------------------------------------

func NewDriver(builder interfaces.ISnapshotBuilder, defaultInterval int, log *logger.Logger) *Driver {
	return &Driver{
		Builder:         builder,
		DefaultInterval: defaultInterval,
		Logger:          log,
		IntervalUnit:    time.Second,
	}
}

// -----------------------------------------------------------------------------

// Run drives s until the range is exhausted, the peer leaves, ctx is
// cancelled or an error frame has been sent. The transport is closed on
// return.
func (d *Driver) Run(ctx context.Context, s *Session, rawQuery string, t interfaces.ITransport) {
	params, err := ParseParams(rawQuery, d.DefaultInterval)
	if err != nil {
		frame := models.MErrorFrame{Error: helpers.ErrInvalidDate, Hint: helpers.InvalidDateHint}
		var verr *helpers.ValidationError
		if errors.As(err, &verr) {
			frame = models.MErrorFrame{Error: verr.Code, Hint: verr.Hint}
		}
		d.Logger.Info("Session %s rejected: %v", s.ID, err)
		d.send(t, "error", frame, s)
		d.close(s, t, metrics.ReasonInvalidInput)
		return
	}

	s.startStreaming(params)
	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	d.Logger.Info("Session %s streaming %s..%s every %ds (%d dates)",
		s.ID, params.Start, params.End, params.Interval, params.Days())

	reason := d.stream(ctx, s, params, t)
	d.close(s, t, reason)
}

// -----------------------------------------------------------------------------

func (d *Driver) stream(ctx context.Context, s *Session, p Params, t interfaces.ITransport) string {
	// Provider reads stop as soon as the peer goes away
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-t.Done():
			cancel()
		case <-sctx.Done():
		}
	}()

	for cursor := p.Start; !cursor.After(p.End); {
		payload, err := d.build(sctx, cursor)
		if err != nil {
			if sctx.Err() != nil {
				return interruptReason(ctx)
			}
			d.Logger.Error("Session %s failed on %s: %v", s.ID, cursor, err)
			d.send(t, "error", models.MErrorFrame{Error: err.Error(), Trace: helpers.Trace(err)}, s)
			return metrics.ReasonError
		}

		if !d.send(t, "snapshot", payload, s) {
			return metrics.ReasonDisconnected
		}

		cursor = cursor.AddDays(1)
		s.advance()
		if cursor.After(p.End) {
			break
		}
		if !d.wait(sctx, t, p.Interval) {
			return interruptReason(ctx)
		}
	}
	return metrics.ReasonCompleted
}

// -----------------------------------------------------------------------------

// interruptReason tells a server shutdown from a peer that went away.
func interruptReason(ctx context.Context) string {
	if ctx.Err() != nil {
		return metrics.ReasonCancelled
	}
	return metrics.ReasonDisconnected
}

// -----------------------------------------------------------------------------

// build aggregates and serializes one date. Panics are returned as errors
// carrying the stack of the panic site.
func (d *Driver) build(ctx context.Context, date civil.Date) (payload json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = errors.Errorf("panic while building snapshot for %s: %v", date, r)
		}
	}()

	snapshot, err := d.Builder.Aggregate(ctx, date)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, errors.Errorf("no snapshot for %s", date)
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, errors.Wrapf(err, "encode snapshot for %s", date)
	}
	return data, nil
}

// -----------------------------------------------------------------------------

func (d *Driver) send(t interfaces.ITransport, kind string, frame interface{}, s *Session) bool {
	if !t.Send(frame) {
		return false
	}
	metrics.FramesSent.WithLabelValues(kind).Inc()
	s.frameSent()
	return true
}

// -----------------------------------------------------------------------------

// wait sleeps for interval units; false when the peer left or ctx ended first.
func (d *Driver) wait(ctx context.Context, t interfaces.ITransport, interval int) bool {
	unit := d.IntervalUnit
	if unit <= 0 {
		unit = time.Second
	}

	delay := time.Duration(math.MaxInt64)
	if int64(interval) <= math.MaxInt64/int64(unit) {
		delay = time.Duration(interval) * unit
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-t.Done():
		return false
	case <-ctx.Done():
		return false
	}
}

// -----------------------------------------------------------------------------

func (d *Driver) close(s *Session, t interfaces.ITransport, reason string) {
	t.Close()
	if !s.close(reason) {
		return
	}
	metrics.SessionsClosed.WithLabelValues(reason).Inc()
	d.Logger.Info("Session %s closed (%s, %d frames)", s.ID, reason, s.FramesSent())
}
