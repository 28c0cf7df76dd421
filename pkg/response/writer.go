package response

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/3s-rg-codes/fnbridge/pkg/function"
)

var (
	// ErrDoubleResponse is returned by End and Fail once the response has already ended.
	ErrDoubleResponse = errors.New("response: already ended")
	// ErrResponseEnded is returned by Write once the response has ended.
	ErrResponseEnded = errors.New("response: write after end")
)

var _ function.ResponseWriter = &Writer{}

// Writer is a one-shot response capability. Writes are buffered while the response is
// open and flushed to the underlying http.ResponseWriter by the single End call.
// It is safe to use from the module goroutine and the bridge at the same time.
type Writer struct {
	w http.ResponseWriter

	mu     sync.Mutex
	header http.Header
	status int
	body   bytes.Buffer
	wrote  bool
	ended  bool
	done   chan struct{}
}

func NewWriter(w http.ResponseWriter) *Writer {
	return &Writer{
		w:      w,
		header: make(http.Header),
		done:   make(chan struct{}),
	}
}

// Header returns the headers that End will send.
func (rw *Writer) Header() http.Header {
	return rw.header
}

// WriteHeader records the status code. The first call wins.
func (rw *Writer) WriteHeader(statusCode int) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.ended || rw.status != 0 {
		return
	}
	rw.status = statusCode
	rw.wrote = true
}

func (rw *Writer) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.ended {
		return 0, ErrResponseEnded
	}
	rw.wrote = true
	return rw.body.Write(p)
}

// End flushes status, headers and body and transitions the response to ended.
func (rw *Writer) End() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.ended {
		return ErrDoubleResponse
	}

	dst := rw.w.Header()
	for k, v := range rw.header {
		dst[k] = v
	}
	status := rw.status
	if status == 0 {
		status = http.StatusOK
	}
	return rw.flush(status, rw.body.Bytes())
}

// Fail ends an open response with the given status and body, discarding anything the
// module buffered. It returns ErrDoubleResponse if the response already ended.
func (rw *Writer) Fail(status int, contentType string, body []byte) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.ended {
		return ErrDoubleResponse
	}
	if contentType != "" {
		rw.w.Header().Set("Content-Type", contentType)
	}
	return rw.flush(status, body)
}

func (rw *Writer) flush(status int, body []byte) error {
	rw.ended = true
	rw.status = status
	close(rw.done)

	rw.w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	rw.w.WriteHeader(status)
	_, err := rw.w.Write(body)
	return err
}

// Ended reports whether the terminal transition happened.
func (rw *Writer) Ended() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.ended
}

// Written reports whether the module wrote a status or body bytes.
func (rw *Writer) Written() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.wrote
}

// Status returns the recorded status code, or 0 if none was set.
func (rw *Writer) Status() int {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.status
}

// Done is closed when the response ends.
func (rw *Writer) Done() <-chan struct{} {
	return rw.done
}
