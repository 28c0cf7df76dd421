// Package encoder finalizes responses for result-returning modules.
package encoder

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/3s-rg-codes/fnbridge/pkg/function"
)

// Format selects how a returned value is put on the wire.
type Format int

const (
	// FormatEnvelope writes {"response_code": ..., "payload": ...}.
	FormatEnvelope Format = iota
	// FormatPlain writes the payload text only.
	FormatPlain
)

func (f Format) String() string {
	if f == FormatPlain {
		return "plain"
	}
	return "envelope"
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "envelope", "json":
		return FormatEnvelope, nil
	case "plain", "text":
		return FormatPlain, nil
	default:
		return FormatEnvelope, fmt.Errorf("unknown response encoding %q", s)
	}
}

const (
	contentTypeJSON = "application/json"
	contentTypeText = "text/plain; charset=utf-8"
)

type Encoder struct {
	format Format
}

func New(format Format) *Encoder {
	return &Encoder{format: format}
}

func (e *Encoder) Format() Format {
	return e.format
}

// Encode writes the module's returned value and ends the response exactly once.
func (e *Encoder) Encode(w function.ResponseWriter, v any) error {
	env, ok := AsEnvelope(v)
	if !ok {
		env = NewEnvelope(CodeContent, Stringify(v))
	}
	return e.write(w, env)
}

// EncodeError writes a server error for a failed invocation and ends the response.
func (e *Encoder) EncodeError(w function.ResponseWriter, err error) error {
	return e.EncodeStatus(w, http.StatusInternalServerError, err.Error())
}

// EncodeStatus writes a bridge generated error with the code matching status.
func (e *Encoder) EncodeStatus(w function.ResponseWriter, status int, msg string) error {
	return e.write(w, NewEnvelope(CodeFor(status), msg))
}

// Envelope serializes env in the encoder's format without writing it.
func (e *Encoder) Envelope(env Envelope) (contentType string, body []byte, err error) {
	if e.format == FormatPlain {
		return contentTypeText, []byte(env.Payload), nil
	}
	body, err = json.Marshal(env)
	if err != nil {
		return "", nil, fmt.Errorf("encode envelope: %w", err)
	}
	return contentTypeJSON, body, nil
}

func (e *Encoder) write(w function.ResponseWriter, env Envelope) error {
	contentType, body, err := e.Envelope(env)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(env.HTTPStatus())
	if _, err := w.Write(body); err != nil {
		return err
	}
	return w.End()
}
