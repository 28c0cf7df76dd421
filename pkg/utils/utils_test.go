//go:build unit

package utils

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallWithRetrySucceedsEventually(t *testing.T) {
	attempts := 0
	v, err := CallWithRetry(context.Background(), func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("not yet")
		}
		return 42, nil
	}, 5, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, attempts)
}

func TestCallWithRetryReturnsLastError(t *testing.T) {
	last := errors.New("still failing")
	attempts := 0
	v, err := CallWithRetry(context.Background(), func() (string, error) {
		attempts++
		return "partial", last
	}, 3, time.Millisecond)

	assert.ErrorIs(t, err, last)
	assert.Empty(t, v)
	assert.Equal(t, 3, attempts)
}

func TestCallWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	_, err := CallWithRetry(ctx, func() (int, error) {
		attempts++
		cancel()
		return 0, errors.New("fail")
	}, 10, time.Hour)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestSetupLoggerFormats(t *testing.T) {
	for _, format := range []string{"text", "json", "dev"} {
		path := filepath.Join(t.TempDir(), format+".log")
		logger := SetupLogger("debug", format, path)
		require.NotNil(t, logger)
		assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug), format)
	}

	logger := SetupLogger("error", "text", "")
	assert.False(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestHTTPLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	h := HTTPLogger(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fn" {
			w.WriteHeader(http.StatusTeapot)
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/fn", nil))
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"path":"/fn"`)

	buf.Reset()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, buf.String(), "health checks log at debug level")
}
