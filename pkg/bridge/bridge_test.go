//go:build unit

package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/3s-rg-codes/fnbridge/pkg/config"
	"github.com/3s-rg-codes/fnbridge/pkg/function"
	"github.com/3s-rg-codes/fnbridge/pkg/loader"
	"github.com/3s-rg-codes/fnbridge/pkg/registry"
	"github.com/3s-rg-codes/fnbridge/pkg/stats"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.General.BaseDir = t.TempDir()
	cfg.General.ShutdownTimeout = time.Second
	return cfg
}

func sieveText(_ context.Context, req *function.Request, w function.ResponseWriter) error {
	bound, err := strconv.Atoi(req.Data)
	if err != nil {
		bound = 10
	}
	count := 0
	composite := make([]bool, bound+1)
	for i := 2; i <= bound; i++ {
		if !composite[i] {
			count++
			for j := i * 2; j <= bound; j += i {
				composite[j] = true
			}
		}
	}
	_, _ = fmt.Fprintf(w, "Found %d primes under %d\n", count, bound)
	return w.End()
}

func TestNewFailsWithoutModule(t *testing.T) {
	_, err := New(context.Background(), Options{Config: testConfig(t)}, testLogger)
	assert.ErrorIs(t, err, loader.ErrModuleNotFound)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.General.Encoding = "xml"
	_, err := New(context.Background(), Options{Config: cfg, Static: sieveText}, testLogger)
	assert.Error(t, err)
}

func TestNewRejectsConventionMismatch(t *testing.T) {
	cfg := testConfig(t)
	cfg.General.Convention = "result"
	_, err := New(context.Background(), Options{Config: cfg, Static: sieveText}, testLogger)
	assert.Error(t, err)
}

func TestHandlerRoutes(t *testing.T) {
	cfg := testConfig(t)
	cfg.General.Stats = true
	srv, err := New(context.Background(), Options{Config: cfg, Static: sieveText}, testLogger)
	require.NoError(t, err)
	defer srv.Close()

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/fn", "text/plain", strings.NewReader("10"))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Found 4 primes under 10\n", string(body))

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "OK", string(body))

	assert.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/stats")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var snap stats.Snapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return false
		}
		return snap.Invocations == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandlerWildcardWithWorkDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.General.RouteMode = "wildcard"
	cfg.General.Encoding = "envelope"

	dir := filepath.Join(cfg.General.BaseDir, "fn")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bound.txt"), []byte("10"), 0o644))

	entry := function.ResultFunc(func(_ context.Context, req *function.Request) (any, error) {
		raw, err := req.WorkDir.ReadFile("bound.txt")
		if err != nil {
			return nil, err
		}
		return req.Path + ":" + string(raw), nil
	})
	srv, err := New(context.Background(), Options{Config: cfg, Static: entry}, testLogger)
	require.NoError(t, err)
	defer srv.Close()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/some/path", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response_code":"2.05","payload":"/some/path:10"}`, rec.Body.String())
}

func TestRunServesRegistersAndShutsDown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Registry.Advertise = "bridge-1:8000"

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	reg := registry.NewMockRegistry()

	srv, err := New(context.Background(), Options{Config: cfg, Static: sieveText, Registry: reg, Listener: lis}, testLogger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(ctx) }()

	addrCtx, addrCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer addrCancel()
	addr, err := srv.Addr(addrCtx)
	require.NoError(t, err)
	base := "http://" + addr.String()

	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			bound := 10 + i
			resp, err := http.Post(base+"/fn", "text/plain", strings.NewReader(strconv.Itoa(bound)))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if !strings.HasSuffix(string(body), fmt.Sprintf("under %d\n", bound)) {
				return fmt.Errorf("request %d got %q", bound, body)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Eventually(t, func() bool {
		list, _ := reg.List(context.Background())
		return len(list) == 1 && list[0].Address == "bridge-1:8000"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	list, _ := reg.List(context.Background())
	assert.Empty(t, list)

	require.NoError(t, srv.Close())
	assert.True(t, reg.Closed())
}

func TestRunDrainsInFlightInvocationOnShutdown(t *testing.T) {
	cfg := testConfig(t)
	cfg.General.ShutdownTimeout = 3 * time.Second

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	entry := function.ResultFunc(func(ctx context.Context, _ *function.Request) (any, error) {
		close(started)
		select {
		case <-time.After(300 * time.Millisecond):
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	srv, err := New(context.Background(), Options{Config: cfg, Static: entry, Listener: lis}, testLogger)
	require.NoError(t, err)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(ctx) }()

	type result struct {
		status int
		body   string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := http.Post("http://"+lis.Addr().String()+"/fn", "text/plain", nil)
		if err != nil {
			done <- result{err: err}
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		done <- result{status: resp.StatusCode, body: string(body)}
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("function was never invoked")
	}
	cancel()

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, http.StatusOK, res.status)
	assert.JSONEq(t, `{"response_code":"2.05","payload":"done"}`, res.body)

	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRunTwiceFails(t *testing.T) {
	cfg := testConfig(t)
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv, err := New(context.Background(), Options{Config: cfg, Static: sieveText, Listener: lis}, testLogger)
	require.NoError(t, err)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(ctx) }()

	addrCtx, addrCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer addrCancel()
	_, err = srv.Addr(addrCtx)
	require.NoError(t, err)

	assert.ErrorIs(t, srv.Run(ctx), ErrAlreadyRunning)

	cancel()
	assert.NoError(t, <-runErr)
}
