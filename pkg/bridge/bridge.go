// Package bridge bootstraps a bridge instance: it loads the function module, adapts its
// entry point, builds the route table and serves it until the context is cancelled.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/3s-rg-codes/fnbridge/pkg/adapter"
	"github.com/3s-rg-codes/fnbridge/pkg/config"
	"github.com/3s-rg-codes/fnbridge/pkg/encoder"
	"github.com/3s-rg-codes/fnbridge/pkg/loader"
	"github.com/3s-rg-codes/fnbridge/pkg/registry"
	"github.com/3s-rg-codes/fnbridge/pkg/routes"
	"github.com/3s-rg-codes/fnbridge/pkg/stats"
	"github.com/3s-rg-codes/fnbridge/pkg/telemetry"
	"github.com/3s-rg-codes/fnbridge/pkg/utils"
)

type Options struct {
	Config config.Config
	// Static is a statically linked entry point; see loader.Options.Static.
	Static any
	// Registry overrides the etcd registry built from Config.
	Registry registry.Registry
	// Listener overrides the listener Run would open on Config's port.
	Listener net.Listener
}

type Server struct {
	cfg        config.Config
	settings   config.Settings
	module     *loader.Module
	invoke     *adapter.Handler
	handler    http.Handler
	stats      *stats.StatsManager
	registry   registry.Registry
	listener   net.Listener
	instanceID string
	logger     *slog.Logger

	listening chan struct{}
	started   atomic.Bool
}

var ErrAlreadyRunning = errors.New("bridge: Run called more than once")

// New loads the module and wires the route table. Any error here is fatal: the bridge
// cannot serve without its module.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Server, error) {
	cfg := opts.Config
	settings, err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	module, err := loader.Load(ctx, loader.Options{
		BaseDir:    cfg.General.BaseDir,
		Location:   cfg.General.FunctionDir,
		Static:     opts.Static,
		Convention: settings.Convention,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		settings:   settings,
		module:     module,
		registry:   opts.Registry,
		listener:   opts.Listener,
		instanceID: uuid.NewString(),
		logger:     logger,
		listening:  make(chan struct{}),
	}

	var observer adapter.Observer
	var statsHandler http.Handler
	if cfg.General.Stats {
		s.stats = stats.NewStatsManager(logger, stats.DefaultHistorySize)
		observer = s.stats
		statsHandler = s.stats
	}

	s.invoke, err = adapter.Adapt(module.Entry, module.Convention, adapter.Options{
		Encoder:         encoder.New(settings.Encoding),
		WorkDir:         module.WorkDir,
		Logger:          logger.With("function", module.Name),
		FinalizeTimeout: cfg.General.FinalizeTimeout,
		MaxBodyBytes:    cfg.General.MaxBodyBytes,
		Observer:        observer,
	})
	if err != nil {
		_ = module.Close()
		return nil, err
	}

	table := routes.Table{
		Mode:   settings.RouteMode,
		Invoke: s.invoke,
		Stats:  statsHandler,
		Logger: logger,
	}
	s.handler = utils.HTTPLogger(logger, table.Handler())
	if cfg.Telemetry.OTLPEndpoint != "" {
		s.handler = telemetry.Wrap(s.handler, cfg.Telemetry.ServiceName)
	}

	if s.registry == nil && len(cfg.Registry.Endpoints) > 0 {
		s.registry, err = registry.NewEtcdRegistry(cfg.Registry.Endpoints, registry.Options{
			Prefix: cfg.Registry.Prefix,
			TTL:    cfg.Registry.TTL,
		}, logger)
		if err != nil {
			_ = module.Close()
			return nil, fmt.Errorf("connect to registry: %w", err)
		}
	}

	return s, nil
}

// Handler is the full route table, ready to be mounted on any server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Module() *loader.Module {
	return s.module
}

func (s *Server) Stats() *stats.StatsManager {
	return s.stats
}

// Addr blocks until Run is listening and returns the bound address.
func (s *Server) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-s.listening:
		return s.listener.Addr(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run serves until ctx is cancelled. Per-request failures never end Run; only listener,
// gRPC or registration failures do.
func (s *Server) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if s.listener == nil {
		lis, err := net.Listen("tcp", s.cfg.Address())
		if err != nil {
			return fmt.Errorf("listen on %s: %w", s.cfg.Address(), err)
		}
		s.listener = lis
	}
	close(s.listening)

	// In-flight invocations are drained by Shutdown, not cancelled along with Run.
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Bridge listening",
			"address", s.listener.Addr().String(),
			"route_mode", s.settings.RouteMode,
			"encoding", s.settings.Encoding,
			"convention", s.module.Convention,
		)
		if err := httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.General.ShutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down bridge")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Bridge forced to shutdown", "error", err)
		}
		return nil
	})

	if s.cfg.GRPC.HealthAddress != "" {
		g.Go(func() error {
			return serveHealth(gctx, s.cfg.GRPC.HealthAddress, s.logger)
		})
	}

	if s.registry != nil {
		g.Go(func() error {
			return s.announce(gctx)
		})
	}

	return g.Wait()
}

// announce registers the instance and removes it again on shutdown.
func (s *Server) announce(ctx context.Context) error {
	instance := &registry.Instance{
		ID:         s.instanceID,
		Function:   s.module.Name,
		Kind:       string(s.module.Kind),
		Convention: s.module.Convention.String(),
		Encoding:   s.settings.Encoding.String(),
		Address:    s.advertiseAddress(),
		StartedAt:  time.Now(),
	}

	_, err := utils.CallWithRetry(ctx, func() (struct{}, error) {
		return struct{}{}, s.registry.Register(ctx, instance)
	}, 5, time.Second)
	if err != nil {
		return fmt.Errorf("register instance: %w", err)
	}
	s.logger.Info("Registered instance", "id", instance.ID, "address", instance.Address)

	<-ctx.Done()

	deregisterCtx, cancel := context.WithTimeout(context.Background(), s.cfg.General.ShutdownTimeout)
	defer cancel()
	if err := s.registry.Deregister(deregisterCtx, instance.ID); err != nil && !errors.Is(err, registry.ErrNotRegistered) {
		s.logger.Warn("Failed to deregister instance", "id", instance.ID, "error", err)
	}
	return nil
}

func (s *Server) advertiseAddress() string {
	if s.cfg.Registry.Advertise != "" {
		return s.cfg.Registry.Advertise
	}
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	port := strconv.Itoa(s.cfg.General.Port)
	if s.listener != nil {
		if tcp, ok := s.listener.Addr().(*net.TCPAddr); ok {
			port = strconv.Itoa(tcp.Port)
		}
	}
	return net.JoinHostPort(host, port)
}

// Close releases the module and the registry client.
func (s *Server) Close() error {
	var errs []error
	if s.registry != nil {
		errs = append(errs, s.registry.Close())
	}
	errs = append(errs, s.module.Close())
	return errors.Join(errs...)
}
