//go:build unit

package functionRuntimeInterface

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3s-rg-codes/fnbridge/pkg/config"
	"github.com/3s-rg-codes/fnbridge/pkg/function"
)

func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port
}

func TestServeStaticEntry(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.General.BaseDir = t.TempDir()
	cfg.General.Port = freePort(t)
	cfg.General.Encoding = "plain"

	f := New(
		WithConfig(cfg),
		WithConvention(function.ResultReturningStyle),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.Serve(ctx, func(_ context.Context, req *function.Request) (any, error) {
			return "hello " + req.Data, nil
		})
	}()

	url := "http://127.0.0.1:" + strconv.Itoa(cfg.General.Port) + "/fn"
	var body []byte
	require.Eventually(t, func() bool {
		resp, err := http.Post(url, "text/plain", nil)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ = io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, "hello ", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestServeRejectsUnsupportedEntry(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.General.BaseDir = t.TempDir()

	f := New(WithConfig(cfg), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	err = f.Serve(context.Background(), 42)
	assert.Error(t, err)
}
