package wait

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout is matched by every *TimeoutError.
	ErrTimeout = errors.New("timeout exceeded")
	// ErrInvalidSpec is returned when a Spec has a non-positive timeout or interval.
	ErrInvalidSpec = errors.New("invalid wait spec")
)

// TimeoutError reports a condition that did not hold before its deadline.
type TimeoutError struct {
	// Description is the Spec's description of the awaited condition.
	Description string
	// Timeout is the configured deadline.
	Timeout time.Duration
	// Elapsed is the time spent waiting.
	Elapsed time.Duration
	// LastErr is the most recent probe error, if any.
	LastErr error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timeout waiting for %s after %s (timeout %s)", e.Description, e.Elapsed, e.Timeout)
	if e.LastErr != nil {
		msg += fmt.Sprintf(" (last error: %v)", e.LastErr)
	}

	return msg
}

// Is reports ErrTimeout as a match.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Unwrap exposes the last probe error.
func (e *TimeoutError) Unwrap() error {
	return e.LastErr
}
