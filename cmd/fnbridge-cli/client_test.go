//go:build unit

package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCall(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		switch r.URL.Path {
		case "/fn":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"response_code":"2.05","payload":"` + string(body) + r.Header.Get("X-Suffix") + `"}`))
		case "/health":
			_, _ = w.Write([]byte("OK"))
		default:
			http.Error(w, "not here", http.StatusNotFound)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL+"/", time.Second)

	result, err := client.Call(context.Background(), "fn", []byte("2,3"), map[string]string{"X-Suffix": ",5,7"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.Status)
	require.NotNil(t, result.Envelope)
	assert.Equal(t, "2,3,5,7", result.Envelope.Payload)

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OK", health)

	result, err = client.Call(context.Background(), "/missing", nil, nil)
	assert.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, http.StatusNotFound, result.Status)
	assert.Nil(t, result.Envelope)
}

func TestParseHeaders(t *testing.T) {
	h, err := parseHeaders([]string{"X-A=1", "X-B=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"X-A": "1", "X-B": "a=b"}, h)

	_, err = parseHeaders([]string{"broken"})
	assert.Error(t, err)
}
