package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/3s-rg-codes/fnbridge/pkg/function"
	"github.com/3s-rg-codes/fnbridge/pkg/response"
)

// invocation is the canonical call shape: every entry point is turned into one of these
// once, at wiring time.
type invocation func(ctx context.Context, r *http.Request, req *function.Request, w function.ResponseWriter) (any, error)

func asRequestResponse(entry any) (invocation, bool) {
	var fn function.RequestResponseFunc
	switch t := entry.(type) {
	case function.RequestResponseFunc:
		fn = t
	case func(context.Context, *function.Request, function.ResponseWriter) error:
		fn = t
	case http.Handler:
		return func(ctx context.Context, r *http.Request, req *function.Request, w function.ResponseWriter) (any, error) {
			t.ServeHTTP(w, withBody(ctx, r, req.Data))
			return nil, endOnReturn(w)
		}, true
	case function.HTTPHandlerFunc:
		return func(ctx context.Context, r *http.Request, req *function.Request, w function.ResponseWriter) (any, error) {
			t(w, withBody(ctx, r, req.Data))
			return nil, endOnReturn(w)
		}, true
	default:
		return nil, false
	}
	return func(ctx context.Context, _ *http.Request, req *function.Request, w function.ResponseWriter) (any, error) {
		return nil, fn(ctx, req, w)
	}, true
}

func asResult(entry any) (invocation, bool) {
	var fn function.ResultFunc
	switch t := entry.(type) {
	case function.ResultFunc:
		fn = t
	case func(context.Context, *function.Request) (any, error):
		fn = t
	case function.DataFunc:
		fn = func(_ context.Context, req *function.Request) (any, error) {
			return t(req.Data, req.Headers)
		}
	case func(string) (string, error):
		fn = func(_ context.Context, req *function.Request) (any, error) {
			return t(req.Data)
		}
	default:
		return nil, false
	}
	return func(ctx context.Context, _ *http.Request, req *function.Request, _ function.ResponseWriter) (any, error) {
		return fn(ctx, req)
	}, true
}

func normalize(entry any, conv function.Convention) (invocation, error) {
	var (
		inv invocation
		ok  bool
	)
	switch conv {
	case function.RequestResponseStyle:
		inv, ok = asRequestResponse(entry)
	case function.ResultReturningStyle:
		inv, ok = asResult(entry)
	default:
		return nil, fmt.Errorf("calling convention must be resolved before adapting, got %s", conv)
	}
	if !ok {
		return nil, &ConventionMismatchError{Convention: conv.String(), Type: fmt.Sprintf("%T", entry)}
	}
	return inv, nil
}

// withBody hands net/http style modules a request whose body is the already parsed text.
func withBody(ctx context.Context, r *http.Request, data string) *http.Request {
	r2 := r.Clone(ctx)
	r2.Body = http.NoBody
	if data != "" {
		r2.Body = io.NopCloser(strings.NewReader(data))
	}
	r2.ContentLength = int64(len(data))
	return r2
}

// endOnReturn ends the response of a net/http style module. Those finish by returning,
// an empty response included.
func endOnReturn(w function.ResponseWriter) error {
	if e, ok := w.(interface{ Ended() bool }); ok && e.Ended() {
		return nil
	}
	if err := w.End(); err != nil && !errors.Is(err, response.ErrDoubleResponse) {
		return err
	}
	return nil
}
