package encoder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Response codes are CoAP style: class "." detail.
const (
	CodeContent             = "2.05"
	CodeBadRequest          = "4.00"
	CodeNotFound            = "4.04"
	CodeInternalServerError = "5.00"
	CodeGatewayTimeout      = "5.04"
)

// Envelope wraps the result of a result-returning module on the wire.
type Envelope struct {
	ResponseCode string `json:"response_code"`
	Payload      string `json:"payload"`
}

// NewEnvelope builds a complete envelope. An empty code falls back to CodeContent.
func NewEnvelope(code, payload string) Envelope {
	if code == "" {
		code = CodeContent
	}
	return Envelope{ResponseCode: code, Payload: payload}
}

// HTTPStatus maps the envelope's response code class onto an HTTP status.
func (e Envelope) HTTPStatus() int {
	return StatusFor(e.ResponseCode)
}

// StatusFor maps a CoAP style code onto an HTTP status code. Every success class code
// becomes 200; client and server errors keep their detail when HTTP knows it.
func StatusFor(code string) int {
	class, detail, _ := strings.Cut(code, ".")
	d, err := strconv.Atoi(detail)
	if err != nil || d < 0 || d > 99 {
		d = 0
	}
	switch class {
	case "4":
		if status := 400 + d; http.StatusText(status) != "" {
			return status
		}
		return http.StatusBadRequest
	case "5":
		if status := 500 + d; http.StatusText(status) != "" {
			return status
		}
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// CodeFor is the inverse of StatusFor for error statuses, e.g. 413 becomes "4.13".
func CodeFor(status int) string {
	if status < 400 {
		return CodeContent
	}
	return fmt.Sprintf("%d.%02d", status/100, status%100)
}

// AsEnvelope reports whether v is already envelope shaped: it carries both a response code
// and a payload. Strings and byte slices holding a serialized envelope count as well.
func AsEnvelope(v any) (Envelope, bool) {
	switch t := v.(type) {
	case Envelope:
		return NewEnvelope(t.ResponseCode, t.Payload), true
	case *Envelope:
		if t == nil {
			return Envelope{}, false
		}
		return NewEnvelope(t.ResponseCode, t.Payload), true
	case map[string]any:
		return envelopeFromMap(t)
	case map[string]string:
		code, okCode := t["response_code"]
		payload, okPayload := t["payload"]
		if !okCode || !okPayload {
			return Envelope{}, false
		}
		return NewEnvelope(code, payload), true
	case string:
		return envelopeFromJSON([]byte(t))
	case []byte:
		return envelopeFromJSON(t)
	default:
		return Envelope{}, false
	}
}

func envelopeFromMap(m map[string]any) (Envelope, bool) {
	code, okCode := m["response_code"]
	payload, okPayload := m["payload"]
	if !okCode || !okPayload {
		return Envelope{}, false
	}
	return NewEnvelope(Stringify(code), Stringify(payload)), true
}

func envelopeFromJSON(raw []byte) (Envelope, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Envelope{}, false
	}
	var m map[string]any
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return Envelope{}, false
	}
	return envelopeFromMap(m)
}

func (e Envelope) String() string {
	return fmt.Sprintf("%s %s", e.ResponseCode, e.Payload)
}
