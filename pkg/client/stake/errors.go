package stake

import "errors"

// ErrLookupFailed is returned by a simulated failing stake lookup.
var ErrLookupFailed = errors.New("stake lookup failed")
