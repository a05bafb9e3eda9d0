package pipeline

import (
	"errors"
	"fmt"
)

// ErrFatal marks an XR runtime failure the loop cannot recover from:
// begin-frame, swapchain acquire, or swapchain wait. The caller (main)
// must abort the process rather than retry, matching the source's
// unrecoverable-runtime-state contract.
var ErrFatal = errors.New("pipeline: unrecoverable XR runtime state")

func fatalf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrFatal)...)
}

// IsFatal reports whether err (or something it wraps) is ErrFatal.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}
