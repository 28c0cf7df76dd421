// Package function holds the contract between the bridge and a hosted function module:
// the request a module receives, the response capability it may write to and the
// entry point shapes the bridge knows how to call.
package function

import (
	"context"
	"net/http"
)

// Request is the transport-independent view of an inbound invocation.
type Request struct {
	Id      string
	Method  string
	Path    string
	Headers map[string]string
	// Data is the request body after body parsing.
	Data string
	// WorkDir resolves relative file access for the module.
	WorkDir *WorkDir
}

// ResponseWriter is handed to request/response modules. End finalizes the exchange
// and may only be called once; a second call returns an error.
type ResponseWriter interface {
	Header() http.Header
	WriteHeader(statusCode int)
	Write(p []byte) (int, error)
	End() error
}

// RequestResponseFunc is an entry point that writes and ends the response itself.
type RequestResponseFunc func(ctx context.Context, req *Request, res ResponseWriter) error

// ResultFunc is an entry point that returns a value for the bridge to encode.
type ResultFunc func(ctx context.Context, req *Request) (any, error)

// HTTPHandlerFunc is the plain net/http shape. It is treated as request/response style.
type HTTPHandlerFunc = func(w http.ResponseWriter, r *http.Request)

// DataFunc is the shape the original python and go runtimes call: body and headers in,
// text out. It is treated as result style.
type DataFunc = func(data string, headers map[string]string) (string, error)

// HeadersFromHTTP keeps the first value of every header, mirroring what modules saw
// in the original runtimes.
func HeadersFromHTTP(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return headers
}
