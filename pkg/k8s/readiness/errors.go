package readiness

import "errors"

// ErrAPIServerNotReady is returned when the API server does not answer in time.
var ErrAPIServerNotReady = errors.New("api server not ready")

// ErrUnknownResourceType is returned for a Check whose Type is not supported.
var ErrUnknownResourceType = errors.New("unknown resource type")

var errNotStableYet = errors.New("api server not stable yet")

// ErrInvalidCheck is returned by ParseCheck for malformed input.
var ErrInvalidCheck = errors.New("invalid check")
