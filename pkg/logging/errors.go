package logging

import "errors"

// ErrUnknownFormat is returned when the configured log format is not supported.
var ErrUnknownFormat = errors.New("unknown log format")
