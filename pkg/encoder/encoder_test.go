//go:build unit

package encoder

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3s-rg-codes/fnbridge/pkg/response"
)

func TestEncodeWrapsRawValue(t *testing.T) {
	rec := httptest.NewRecorder()
	w := response.NewWriter(rec)

	require.NoError(t, New(FormatEnvelope).Encode(w, []int{2, 3, 5, 7}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"response_code":"2.05","payload":"2,3,5,7"}`, rec.Body.String())
	assert.True(t, w.Ended())
}

func TestEncodePassesEnvelopeThrough(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"struct", Envelope{ResponseCode: "2.05", Payload: "2,3,5,7"}},
		{"pointer", &Envelope{ResponseCode: "2.05", Payload: "2,3,5,7"}},
		{"map", map[string]any{"response_code": "2.05", "payload": "2,3,5,7"}},
		{"string map", map[string]string{"response_code": "2.05", "payload": "2,3,5,7"}},
		{"serialized", `{"response_code": "2.05", "payload": "2,3,5,7"}`},
		{"serialized bytes", []byte(`{"response_code":"2.05","payload":"2,3,5,7"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, New(FormatEnvelope).Encode(response.NewWriter(rec), tt.value))

			var got Envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, Envelope{ResponseCode: "2.05", Payload: "2,3,5,7"}, got)
		})
	}
}

func TestEncodeErrorCodeFromEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, New(FormatEnvelope).Encode(response.NewWriter(rec), Envelope{ResponseCode: "4.04", Payload: "no such prime"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"response_code":"4.04","payload":"no such prime"}`, rec.Body.String())
}

func TestEncodePlain(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, New(FormatPlain).Encode(response.NewWriter(rec), []int{2, 3, 5, 7}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "2,3,5,7", rec.Body.String())
}

func TestEncodeError(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, New(FormatEnvelope).EncodeError(response.NewWriter(rec), errors.New("division by zero")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"response_code":"5.00","payload":"division by zero"}`, rec.Body.String())
}

func TestEncodeStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, New(FormatEnvelope).EncodeStatus(response.NewWriter(rec), http.StatusGatewayTimeout, "too slow"))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.JSONEq(t, `{"response_code":"5.04","payload":"too slow"}`, rec.Body.String())
}

func TestEncodeAfterEndFails(t *testing.T) {
	w := response.NewWriter(httptest.NewRecorder())
	require.NoError(t, w.End())
	err := New(FormatEnvelope).Encode(w, "late")
	assert.Error(t, err)
}

func TestAsEnvelopeRejectsPartialShapes(t *testing.T) {
	for _, v := range []any{
		nil,
		"2,3,5,7",
		`{"payload":"only"}`,
		`{"response_code":"2.05"}`,
		`[1,2]`,
		map[string]any{"payload": "x"},
		map[string]string{"response_code": "2.05"},
		(*Envelope)(nil),
		42,
	} {
		_, ok := AsEnvelope(v)
		assert.False(t, ok, "%#v", v)
	}
}

func TestAsEnvelopeDefaultsEmptyCode(t *testing.T) {
	env, ok := AsEnvelope(Envelope{Payload: "x"})
	require.True(t, ok)
	assert.Equal(t, CodeContent, env.ResponseCode)
}

func TestStatusFor(t *testing.T) {
	for code, want := range map[string]int{
		"2.05": http.StatusOK,
		"2.01": http.StatusOK,
		"4.00": http.StatusBadRequest,
		"4.04": http.StatusNotFound,
		"4.13": http.StatusRequestEntityTooLarge,
		"4.99": http.StatusBadRequest,
		"5.00": http.StatusInternalServerError,
		"5.03": http.StatusServiceUnavailable,
		"5.04": http.StatusGatewayTimeout,
		"5.x":  http.StatusInternalServerError,
		"":     http.StatusOK,
	} {
		assert.Equal(t, want, StatusFor(code), code)
	}
}

func TestCodeFor(t *testing.T) {
	assert.Equal(t, CodeContent, CodeFor(http.StatusOK))
	assert.Equal(t, CodeBadRequest, CodeFor(http.StatusBadRequest))
	assert.Equal(t, CodeNotFound, CodeFor(http.StatusNotFound))
	assert.Equal(t, "4.13", CodeFor(http.StatusRequestEntityTooLarge))
	assert.Equal(t, CodeInternalServerError, CodeFor(http.StatusInternalServerError))
	assert.Equal(t, CodeGatewayTimeout, CodeFor(http.StatusGatewayTimeout))

	for _, status := range []int{400, 404, 413, 500, 503, 504} {
		assert.Equal(t, status, StatusFor(CodeFor(status)))
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatEnvelope, f)

	f, err = ParseFormat("Plain")
	require.NoError(t, err)
	assert.Equal(t, FormatPlain, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
