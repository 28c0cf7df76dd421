// Package adapter turns a function module's entry point into the bridge's single
// http.Handler contract, whatever calling convention the module uses.
package adapter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/3s-rg-codes/fnbridge/pkg/encoder"
	"github.com/3s-rg-codes/fnbridge/pkg/function"
	"github.com/3s-rg-codes/fnbridge/pkg/response"
)

const DefaultMaxBodyBytes = 6 << 20

// Observer is told about every finished invocation.
type Observer interface {
	ObserveInvocation(status int, duration time.Duration, err error)
}

type Options struct {
	Encoder *encoder.Encoder
	WorkDir *function.WorkDir
	Logger  *slog.Logger
	// FinalizeTimeout bounds how long a module may take to finish. Zero waits forever.
	FinalizeTimeout time.Duration
	MaxBodyBytes    int64
	Observer        Observer
}

func (o *Options) applyDefaults() {
	if o.Encoder == nil {
		o.Encoder = encoder.New(encoder.FormatEnvelope)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

var _ http.Handler = &Handler{}

// Handler is the unified handler for one module. It ends every response exactly once.
type Handler struct {
	convention function.Convention
	invoke     invocation
	opts       Options
}

// Adapt resolves the entry point against the convention once. Later calls never
// inspect the entry point's type again.
func Adapt(entry any, conv function.Convention, opts Options) (*Handler, error) {
	opts.applyDefaults()
	inv, err := normalize(entry, conv)
	if err != nil {
		return nil, err
	}
	return &Handler{convention: conv, invoke: inv, opts: opts}, nil
}

func (h *Handler) Convention() function.Convention {
	return h.convention
}

type outcome struct {
	value any
	err   error
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rw := response.NewWriter(w)

	req, status, err := h.parse(w, r)
	if err != nil {
		h.opts.Logger.Warn("Rejecting request", "path", r.URL.Path, "status", status, "error", err)
		h.fail(rw, status, err.Error(), h.opts.Logger)
		h.observe(rw, start, err)
		return
	}
	logger := h.opts.Logger.With("request_id", req.Id)

	ctx := r.Context()
	if h.opts.FinalizeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.FinalizeTimeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		done <- h.run(ctx, r, req, &loudWriter{Writer: rw, logger: logger})
	}()

	var invErr error
	select {
	case out := <-done:
		invErr = out.err
		h.finalize(rw, out, logger)
	case <-ctx.Done():
		invErr = ctx.Err()
		if errors.Is(invErr, context.DeadlineExceeded) {
			logger.Error("Function did not finish before the deadline", "timeout", h.opts.FinalizeTimeout)
			h.fail(rw, http.StatusGatewayTimeout, "function did not finish in time", logger)
		} else {
			logger.Warn("Request cancelled while function was running", "error", invErr)
			h.fail(rw, http.StatusServiceUnavailable, "request cancelled", logger)
		}
	}
	h.observe(rw, start, invErr)
}

func (h *Handler) parse(w http.ResponseWriter, r *http.Request) (*function.Request, int, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, err
		}
		return nil, http.StatusBadRequest, err
	}
	return &function.Request{
		Id:      uuid.NewString(),
		Method:  r.Method,
		Path:    r.URL.Path,
		Headers: function.HeadersFromHTTP(r.Header),
		Data:    string(body),
		WorkDir: h.opts.WorkDir,
	}, 0, nil
}

// run calls the module and turns failures and panics into an *InvocationError.
func (h *Handler) run(ctx context.Context, r *http.Request, req *function.Request, w function.ResponseWriter) (out outcome) {
	defer func() {
		if p := recover(); p != nil {
			out = outcome{err: &InvocationError{RequestID: req.Id, Panic: p}}
		}
	}()
	v, err := h.invoke(ctx, r, req, w)
	if err != nil {
		return outcome{err: &InvocationError{RequestID: req.Id, Cause: err}}
	}
	return outcome{value: v}
}

func (h *Handler) finalize(rw *response.Writer, out outcome, logger *slog.Logger) {
	if out.err != nil {
		logger.Error("Function invocation failed", "error", out.err)
		if rw.Ended() {
			logger.Warn("Function ended the response before failing, nothing left to send")
			return
		}
		h.fail(rw, http.StatusInternalServerError, out.err.Error(), logger)
		return
	}

	if h.convention == function.ResultReturningStyle {
		if err := h.opts.Encoder.Encode(rw, out.value); err != nil {
			logger.Error("Failed to encode function result", "error", err)
			h.fail(rw, http.StatusInternalServerError, err.Error(), logger)
		}
		return
	}

	if rw.Ended() {
		return
	}
	if rw.Written() {
		logger.Warn("Function returned without ending the response, ending it")
		if err := rw.End(); err != nil {
			logger.Error("Failed to end response", "error", err)
		}
		return
	}
	logger.Error("Function returned without writing a response")
	h.fail(rw, http.StatusInternalServerError, "function returned without ending the response", logger)
}

// fail ends an open response with a bridge generated error. Result style modules get the
// deployment's encoding, request/response modules plain text.
func (h *Handler) fail(rw *response.Writer, status int, msg string, logger *slog.Logger) {
	var err error
	if h.convention == function.ResultReturningStyle {
		contentType, body, encErr := h.opts.Encoder.Envelope(encoder.NewEnvelope(encoder.CodeFor(status), msg))
		if encErr != nil {
			contentType, body = "text/plain; charset=utf-8", []byte(msg)
		}
		err = rw.Fail(status, contentType, body)
	} else {
		err = rw.Fail(status, "text/plain; charset=utf-8", []byte(msg))
	}
	if err != nil && !errors.Is(err, response.ErrDoubleResponse) {
		logger.Error("Failed to write error response", "error", err)
	}
}

func (h *Handler) observe(rw *response.Writer, start time.Time, err error) {
	if h.opts.Observer != nil {
		h.opts.Observer.ObserveInvocation(rw.Status(), time.Since(start), err)
	}
}

// loudWriter is what modules see: a second End is reported in the log as well as
// returned to the module.
type loudWriter struct {
	*response.Writer
	logger *slog.Logger
}

func (w *loudWriter) End() error {
	err := w.Writer.End()
	if errors.Is(err, response.ErrDoubleResponse) {
		w.logger.Warn("Function ended the response more than once")
	}
	return err
}
