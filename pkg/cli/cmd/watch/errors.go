package watch

import "errors"

// ErrNotValid is returned when a watched condition does not hold when the watch ends.
var ErrNotValid = errors.New("condition not valid at end of watch")
