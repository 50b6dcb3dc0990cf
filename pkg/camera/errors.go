package camera

import (
	"errors"
	"fmt"
)

// ErrCapture is returned when the camera cannot be opened or stops producing frames.
var ErrCapture = errors.New("camera: capture failed")

// CaptureError carries the device index and the failing step.
type CaptureError struct {
	Index int
	Op    string // "open" or "read"
	Err   error
}

// Error implements the error interface.
func (e *CaptureError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("camera [%d]: %s failed", e.Index, e.Op)
	}
	return fmt.Sprintf("camera [%d]: %s: %v", e.Index, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Is makes every CaptureError match ErrCapture.
func (e *CaptureError) Is(target error) bool {
	return target == ErrCapture
}
