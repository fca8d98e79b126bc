package helpers

import (
	"fmt"
	"time"

	"scm-scheduler/src/logger"

	"github.com/pkg/errors"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type SchedulerError struct {
	Message string
	Cause   error
}

func (e *SchedulerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SchedulerError) Unwrap() error {
	return e.Cause
}

// Distinct error types for type assertions
type ConfigurationError struct{ SchedulerError }
type DatabaseError struct{ SchedulerError }

// -----------------------------------------------------------------------------

// ErrInvalidDate is the error code of a malformed start/end parameter.
const (
	ErrInvalidDate  = "invalid_date"
	InvalidDateHint = "Use format YYYY-MM-DD for start and end"

	// ErrShuttingDown answers sessions opened after the server began stopping.
	ErrShuttingDown = "shutting_down"
)

// ValidationError rejects session parameters. Code and Hint go verbatim into
// the error frame.
type ValidationError struct {
	SchedulerError
	Code string
	Hint string
}

func NewInvalidDateError(cause error) *ValidationError {
	return &ValidationError{
		SchedulerError: SchedulerError{Message: ErrInvalidDate, Cause: cause},
		Code:           ErrInvalidDate,
		Hint:           InvalidDateHint,
	}
}

// -----------------------------------------------------------------------------

// ProviderError reports a failed read of one dataset. The cause carries a
// stack trace (github.com/pkg/errors) for the diagnostic frame.
type ProviderError struct {
	SchedulerError
	Provider string
}

func NewProviderError(provider string, cause error) *ProviderError {
	return &ProviderError{
		SchedulerError: SchedulerError{
			Message: fmt.Sprintf("provider %s failed", provider),
			Cause:   errors.WithStack(cause),
		},
		Provider: provider,
	}
}

// Format prints the stack of the cause with %+v.
func (e *ProviderError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%s: %+v", e.Message, e.Cause)
		return
	}
	fmt.Fprint(s, e.Error())
}

// -----------------------------------------------------------------------------

// Trace renders the diagnostic detail of err: the recorded stack when one
// was attached, the message otherwise.
func Trace(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%+v", err)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
func RetryWithBackoff(log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		if log != nil {
			log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)
		}
		time.Sleep(delay)
	}

	return &SchedulerError{Message: fmt.Sprintf("%s failed after %d attempts", operation, maxRetries), Cause: lastErr}
}
