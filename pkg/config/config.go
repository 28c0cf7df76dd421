// Package config holds the bridge's deployment settings.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/3s-rg-codes/fnbridge/pkg/encoder"
	"github.com/3s-rg-codes/fnbridge/pkg/function"
	"github.com/3s-rg-codes/fnbridge/pkg/routes"
)

type Config struct {
	General struct {
		// Port also honours PORT, which the original runtimes read.
		Port            int           `env:"PORT" envDefault:"8000"`
		BaseDir         string        `env:"FNBRIDGE_BASE_DIR" envDefault:"."`
		FunctionDir     string        `env:"FNBRIDGE_FUNCTION_DIR" envDefault:"fn"`
		Convention      string        `env:"FNBRIDGE_CONVENTION" envDefault:"auto"`
		RouteMode       string        `env:"FNBRIDGE_ROUTE_MODE" envDefault:"fixed"`
		Encoding        string        `env:"FNBRIDGE_ENCODING" envDefault:"envelope"`
		FinalizeTimeout time.Duration `env:"FNBRIDGE_FINALIZE_TIMEOUT" envDefault:"0s"`
		MaxBodyBytes    int64         `env:"FNBRIDGE_MAX_BODY_BYTES" envDefault:"6291456"`
		ShutdownTimeout time.Duration `env:"FNBRIDGE_SHUTDOWN_TIMEOUT" envDefault:"5s"`
		Stats           bool          `env:"FNBRIDGE_STATS" envDefault:"false"`
	}
	GRPC struct {
		// HealthAddress enables a gRPC health service when set.
		HealthAddress string `env:"FNBRIDGE_GRPC_HEALTH_ADDRESS"`
	}
	Registry struct {
		Endpoints []string      `env:"FNBRIDGE_ETCD_ENDPOINTS" envSeparator:","`
		Prefix    string        `env:"FNBRIDGE_ETCD_PREFIX" envDefault:"fnbridge/instances"`
		TTL       time.Duration `env:"FNBRIDGE_ETCD_TTL" envDefault:"10s"`
		Advertise string        `env:"FNBRIDGE_ADVERTISE_ADDRESS"`
	}
	Telemetry struct {
		OTLPEndpoint string `env:"FNBRIDGE_OTLP_ENDPOINT"`
		ServiceName  string `env:"FNBRIDGE_SERVICE_NAME" envDefault:"fnbridge"`
	}
	Log struct {
		Level    string `env:"LOG_LEVEL" envDefault:"info"`
		Format   string `env:"LOG_FORMAT" envDefault:"text"`
		FilePath string `env:"LOG_FILE"`
	}
}

// Load parses the environment into a Config carrying defaults for anything unset.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

// Settings are the parsed enum values of a Config.
type Settings struct {
	Convention function.Convention
	RouteMode  routes.Mode
	Encoding   encoder.Format
}

// Validate checks ranges and parses the enum fields.
func (c Config) Validate() (Settings, error) {
	var s Settings
	var errs []error

	if c.General.Port <= 0 || c.General.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.General.Port))
	}
	if c.General.FunctionDir == "" {
		errs = append(errs, errors.New("function dir must not be empty"))
	}
	if c.General.FinalizeTimeout < 0 {
		errs = append(errs, errors.New("finalize timeout must not be negative"))
	}

	var err error
	if s.Convention, err = function.ParseConvention(c.General.Convention); err != nil {
		errs = append(errs, err)
	}
	if s.RouteMode, err = routes.ParseMode(c.General.RouteMode); err != nil {
		errs = append(errs, err)
	}
	if s.Encoding, err = encoder.ParseFormat(c.General.Encoding); err != nil {
		errs = append(errs, err)
	}
	return s, errors.Join(errs...)
}

// Address is the listen address for the HTTP server.
func (c Config) Address() string {
	return fmt.Sprintf(":%d", c.General.Port)
}
