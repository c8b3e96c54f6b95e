package perf

import "errors"

// ErrPerformanceViolation is matched by every *ViolationError.
var ErrPerformanceViolation = errors.New("performance violation")

// ErrOperationPanicked marks a measured operation that panicked.
var ErrOperationPanicked = errors.New("operation panicked")

// ErrOperationAborted marks a measured operation that exited its goroutine
// without returning, for example through runtime.Goexit.
var ErrOperationAborted = errors.New("operation aborted")
