package diagnosis

import (
	"errors"
	"fmt"
)

var ErrUnknownCategory = errors.New("unknown category")

// ArtifactLoadError records why a category's classifier could not be loaded.
type ArtifactLoadError struct {
	Category string
	Path     string
	Err      error
}

func (e *ArtifactLoadError) Error() string {
	return fmt.Sprintf("load model for %q from %s: %v", e.Category, e.Path, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error { return e.Err }

// ValidationError reports a caller-supplied value that cannot be used.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type ShapeMismatchError struct {
	Expected int
	Actual   int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("input vector has %d features, model expects %d", e.Actual, e.Expected)
}

// UnavailableModelError is returned for categories that are not registered
// or whose classifier never loaded.
type UnavailableModelError struct {
	Category string
	Err      error
}

func (e *UnavailableModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model for %q unavailable: %v", e.Category, e.Err)
	}
	return fmt.Sprintf("model for %q unavailable", e.Category)
}

func (e *UnavailableModelError) Unwrap() error { return e.Err }

type InferenceError struct {
	Category string
	Err      error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference for %q failed: %v", e.Category, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
