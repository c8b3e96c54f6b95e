package monitor

import "errors"

var (
	// ErrAlreadyMonitoring is returned by Start when the key has a live monitor.
	ErrAlreadyMonitoring = errors.New("already monitoring")
	// ErrNotMonitoring is returned by Stop for an unknown key.
	ErrNotMonitoring = errors.New("not monitoring")
	// ErrInvalidInterval is returned by Start for a non-positive check interval.
	ErrInvalidInterval = errors.New("check interval must be positive")
	// ErrProbePanicked wraps a panic raised by a probe.
	ErrProbePanicked = errors.New("probe panicked")
)
