package helpers

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff(t *testing.T) {
	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(nil, "open", 3, time.Millisecond, func() error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		cause := errors.New("connection refused")
		err := RetryWithBackoff(nil, "open", 2, time.Millisecond, func() error {
			calls++
			return cause
		})
		require.Error(t, err)
		assert.Equal(t, 2, calls)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "open failed after 2 attempts: connection refused", err.Error())
	})

	t.Run("at least one attempt", func(t *testing.T) {
		calls := 0
		_ = RetryWithBackoff(nil, "open", 0, time.Millisecond, func() error {
			calls++
			return nil
		})
		assert.Equal(t, 1, calls)
	})
}

func TestProviderErrorTrace(t *testing.T) {
	cause := errors.New("no such table: vw_production_orders")
	err := NewProviderError("production_orders", cause)

	assert.Equal(t, "provider production_orders failed: no such table: vw_production_orders", err.Error())
	assert.ErrorIs(t, err, cause)

	trace := Trace(err)
	assert.Contains(t, trace, "no such table")
	assert.Contains(t, trace, "TestProviderErrorTrace", "trace carries the stack")
	assert.Empty(t, Trace(nil))
}

func TestInvalidDateError(t *testing.T) {
	err := NewInvalidDateError(errors.New("parsing time"))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "invalid_date", verr.Code)
	assert.Equal(t, "Use format YYYY-MM-DD for start and end", verr.Hint)
}
