package loader

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrIO marks failures to read an image from the boot volume
	ErrIO = errors.New("image could not be read")
	// ErrAllocation marks failures to reserve physical memory
	ErrAllocation = errors.New("physical memory could not be allocated")
)

// StageError is returned by Loader.Boot. It names the stage that failed; the underlying error keeps
// its marks, so errors.Is still matches elfimage.ErrParse, ErrIO, ErrAllocation,
// elfimage.ErrSymbolNotFound and the firmware status errors.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("boot failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func allocationError(err error, format string, args ...interface{}) error {
	return errors.Mark(errors.WrapWithDepthf(1, err, format, args...), ErrAllocation)
}
