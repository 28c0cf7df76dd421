// Package functionRuntimeInterface lets a function binary link its entry point into the
// bridge directly instead of shipping it as a module in the fn directory.
package functionRuntimeInterface

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/3s-rg-codes/fnbridge/pkg/bridge"
	"github.com/3s-rg-codes/fnbridge/pkg/config"
	"github.com/3s-rg-codes/fnbridge/pkg/function"
	"github.com/3s-rg-codes/fnbridge/pkg/telemetry"
	"github.com/3s-rg-codes/fnbridge/pkg/utils"
)

type Option func(*Function)

// WithConvention pins the calling convention instead of detecting it from the entry type.
func WithConvention(c function.Convention) Option {
	return func(f *Function) {
		f.convention = &c
	}
}

// WithConfig replaces the configuration read from the environment.
func WithConfig(cfg config.Config) Option {
	return func(f *Function) {
		f.cfg = &cfg
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *Function) {
		f.logger = logger
	}
}

type Function struct {
	cfg        *config.Config
	convention *function.Convention
	logger     *slog.Logger
}

func New(opts ...Option) *Function {
	f := &Function{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Ready serves entry until SIGINT or SIGTERM. It exits the process with status 1 when
// the bridge cannot start.
func (f *Function) Ready(entry any) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := f.Serve(ctx, entry); err != nil {
		f.logger.Error("Function runtime failed", "error", err)
		os.Exit(1)
	}
}

// Serve is Ready without the signal handling and process exit.
func (f *Function) Serve(ctx context.Context, entry any) error {
	if f.cfg == nil {
		cfg, err := config.Load()
		if err != nil {
			if f.logger == nil {
				f.logger = slog.Default()
			}
			return err
		}
		f.cfg = &cfg
	}
	if f.convention != nil {
		f.cfg.General.Convention = f.convention.String()
	}
	if f.logger == nil {
		f.logger = utils.SetupLogger(f.cfg.Log.Level, f.cfg.Log.Format, f.cfg.Log.FilePath)
	}

	shutdown, err := telemetry.Setup(ctx, f.cfg.Telemetry.ServiceName, f.cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			f.logger.Warn("Failed to flush traces", "error", err)
		}
	}()

	srv, err := bridge.New(ctx, bridge.Options{Config: *f.cfg, Static: entry}, f.logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	return srv.Run(ctx)
}
