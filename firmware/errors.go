package firmware

import "github.com/cockroachdb/errors"

// Firmware status codes. Implementations mark the errors they return with one of these so that
// callers can test for them with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrOutOfResources   = errors.New("out of resources")
	ErrOutOfBounds      = errors.New("access outside of allocated region")
)
