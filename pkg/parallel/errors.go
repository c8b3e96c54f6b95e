package parallel

import "errors"

// ErrTaskPanicked is reported for a gathered task that panicked.
var ErrTaskPanicked = errors.New("task panicked")
