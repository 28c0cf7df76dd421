package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/3s-rg-codes/fnbridge/pkg/bridge"
	"github.com/3s-rg-codes/fnbridge/pkg/config"
	"github.com/3s-rg-codes/fnbridge/pkg/telemetry"
	"github.com/3s-rg-codes/fnbridge/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "fnbridge",
		Usage: "serve a function module over HTTP",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "listen port (Env: PORT)"},
			&cli.StringFlag{Name: "base-dir", Usage: "directory containing the function directory (Env: FNBRIDGE_BASE_DIR)"},
			&cli.StringFlag{Name: "function-dir", Usage: "function directory name (Env: FNBRIDGE_FUNCTION_DIR)"},
			&cli.StringFlag{Name: "convention", Usage: "auto, request-response or result (Env: FNBRIDGE_CONVENTION)"},
			&cli.StringFlag{Name: "route-mode", Usage: "fixed (/fn) or wildcard (/*) (Env: FNBRIDGE_ROUTE_MODE)"},
			&cli.StringFlag{Name: "encoding", Usage: "envelope or plain (Env: FNBRIDGE_ENCODING)"},
			&cli.DurationFlag{Name: "finalize-timeout", Usage: "0 disables (Env: FNBRIDGE_FINALIZE_TIMEOUT)"},
			&cli.BoolFlag{Name: "stats", Usage: "serve /stats (Env: FNBRIDGE_STATS)"},
			&cli.StringFlag{Name: "grpc-health-address", Usage: "serve gRPC health checks on this address (Env: FNBRIDGE_GRPC_HEALTH_ADDRESS)"},
			&cli.StringSliceFlag{Name: "etcd-endpoint", Usage: "register the instance in etcd (Env: FNBRIDGE_ETCD_ENDPOINTS)"},
			&cli.StringFlag{Name: "otlp-endpoint", Usage: "export traces to this OTLP/HTTP endpoint (Env: FNBRIDGE_OTLP_ENDPOINT)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error (Env: LOG_LEVEL)"},
			&cli.StringFlag{Name: "log-format", Usage: "text, json or dev (Env: LOG_FORMAT)"},
			&cli.StringFlag{Name: "log-file", Usage: "log file path, stdout when empty (Env: LOG_FILE)"},
		},
		Action: serve,
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg)

	logger := utils.SetupLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.FilePath)
	logger.Debug("Current configuration", "config", cfg)

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", "error", err)
		}
	}()

	srv, err := bridge.New(ctx, bridge.Options{Config: cfg}, logger)
	if err != nil {
		logger.Error("Failed to start bridge", "error", err)
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Warn("Error while closing bridge", "error", err)
		}
	}()

	return srv.Run(ctx)
}

// applyFlags lets explicitly set flags win over the environment.
func applyFlags(cmd *cli.Command, cfg *config.Config) {
	if cmd.IsSet("port") {
		cfg.General.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("base-dir") {
		cfg.General.BaseDir = cmd.String("base-dir")
	}
	if cmd.IsSet("function-dir") {
		cfg.General.FunctionDir = cmd.String("function-dir")
	}
	if cmd.IsSet("convention") {
		cfg.General.Convention = cmd.String("convention")
	}
	if cmd.IsSet("route-mode") {
		cfg.General.RouteMode = cmd.String("route-mode")
	}
	if cmd.IsSet("encoding") {
		cfg.General.Encoding = cmd.String("encoding")
	}
	if cmd.IsSet("finalize-timeout") {
		cfg.General.FinalizeTimeout = cmd.Duration("finalize-timeout")
	}
	if cmd.IsSet("stats") {
		cfg.General.Stats = cmd.Bool("stats")
	}
	if cmd.IsSet("grpc-health-address") {
		cfg.GRPC.HealthAddress = cmd.String("grpc-health-address")
	}
	if cmd.IsSet("etcd-endpoint") {
		cfg.Registry.Endpoints = cmd.StringSlice("etcd-endpoint")
	}
	if cmd.IsSet("otlp-endpoint") {
		cfg.Telemetry.OTLPEndpoint = cmd.String("otlp-endpoint")
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.Log.Format = cmd.String("log-format")
	}
	if cmd.IsSet("log-file") {
		cfg.Log.FilePath = cmd.String("log-file")
	}
}
