package function

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Convention tags how a module's entry point must be called.
type Convention int

const (
	// ConventionAuto asks the loader to run Detect once at load time.
	ConventionAuto Convention = iota
	RequestResponseStyle
	ResultReturningStyle
)

func (c Convention) String() string {
	switch c {
	case RequestResponseStyle:
		return "request-response"
	case ResultReturningStyle:
		return "result"
	default:
		return "auto"
	}
}

func ParseConvention(s string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ConventionAuto, nil
	case "request-response", "requestresponse", "rr":
		return RequestResponseStyle, nil
	case "result", "result-returning":
		return ResultReturningStyle, nil
	default:
		return ConventionAuto, fmt.Errorf("unknown calling convention %q", s)
	}
}

// UnsupportedEntryPointError is returned when an entry point has none of the known shapes.
type UnsupportedEntryPointError struct {
	Type string
}

func (e *UnsupportedEntryPointError) Error() string {
	return fmt.Sprintf("unsupported entry point type %s", e.Type)
}

// Detect infers the convention from the entry point's Go type. It is a compatibility shim
// for modules that do not declare a convention; it runs once when the module is wired,
// never per call.
func Detect(entry any) (Convention, error) {
	switch entry.(type) {
	case RequestResponseFunc,
		func(context.Context, *Request, ResponseWriter) error,
		http.Handler,
		HTTPHandlerFunc:
		return RequestResponseStyle, nil
	case ResultFunc,
		func(context.Context, *Request) (any, error),
		DataFunc,
		func(string) (string, error):
		return ResultReturningStyle, nil
	case nil:
		return ConventionAuto, &UnsupportedEntryPointError{Type: "<nil>"}
	default:
		return ConventionAuto, &UnsupportedEntryPointError{Type: fmt.Sprintf("%T", entry)}
	}
}
