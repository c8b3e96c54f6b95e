package tracker

import "errors"

// ErrCleanupPanicked wraps a panic raised by a cleanup function.
var ErrCleanupPanicked = errors.New("cleanup panicked")
