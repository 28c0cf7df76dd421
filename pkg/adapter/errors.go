package adapter

import "fmt"

// InvocationError reports an entry point that failed or panicked during a request.
type InvocationError struct {
	RequestID string
	Panic     any
	Cause     error
}

func (e *InvocationError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("function panicked handling request %s: %v", e.RequestID, e.Panic)
	}
	return fmt.Sprintf("function failed handling request %s: %v", e.RequestID, e.Cause)
}

func (e *InvocationError) Unwrap() error {
	return e.Cause
}

// ConventionMismatchError reports an entry point that cannot be called with the
// convention the deployment asked for.
type ConventionMismatchError struct {
	Convention string
	Type       string
}

func (e *ConventionMismatchError) Error() string {
	return fmt.Sprintf("entry point of type %s cannot be called with the %s convention", e.Type, e.Convention)
}
