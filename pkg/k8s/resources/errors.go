package resources

import "errors"

// ErrUnsupportedKind is returned by Apply for kinds it cannot create.
var ErrUnsupportedKind = errors.New("unsupported manifest kind")
