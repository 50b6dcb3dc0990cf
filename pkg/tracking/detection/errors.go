package detection

import (
	"errors"
	"fmt"
)

// ErrModelLoad is returned when the classifier file is missing or unusable.
var ErrModelLoad = errors.New("detection: model load failed")

// ModelLoadError wraps a model loading failure with the backend and path.
type ModelLoadError struct {
	Backend string
	Path    string
	Err     error
}

// Error implements the error interface.
func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("detection [%s]: load %s: %v", e.Backend, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// Is makes every ModelLoadError match ErrModelLoad.
func (e *ModelLoadError) Is(target error) bool {
	return target == ErrModelLoad
}
