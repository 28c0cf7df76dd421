package loader

import (
	"errors"
	"fmt"
)

var ErrModuleNotFound = errors.New("loader: function module not found")

// ModuleNotFoundError reports a location that holds nothing the loader can run.
type ModuleNotFoundError struct {
	Location string
	Cause    error
}

func (e *ModuleNotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("no function module found at %s: %v", e.Location, e.Cause)
	}
	return fmt.Sprintf("no function module found at %s", e.Location)
}

func (e *ModuleNotFoundError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrModuleNotFound}
	}
	return []error{ErrModuleNotFound, e.Cause}
}

// ModuleLoadError reports a module that was found but could not be opened.
type ModuleLoadError struct {
	Path  string
	Kind  Kind
	Cause error
}

func (e *ModuleLoadError) Error() string {
	return fmt.Sprintf("failed to load %s module %s: %v", e.Kind, e.Path, e.Cause)
}

func (e *ModuleLoadError) Unwrap() error {
	return e.Cause
}
