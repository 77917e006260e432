// Package config loads redogs settings from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/redogs/internal/engine"
)

// Fault modes accepted by REDOGS_FAULT_MODE.
const (
	FaultStop   = "stop"
	FaultSkip   = "skip"
	FaultStrict = "strict"
)

// Config holds process-wide settings. CLI flags override these values.
type Config struct {
	LogLevel    string `env:"REDOGS_LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"REDOGS_LOG_FORMAT" envDefault:"text"`
	FaultMode   string `env:"REDOGS_FAULT_MODE" envDefault:"stop"`
	MaxCascade  int    `env:"REDOGS_MAX_CASCADE" envDefault:"1000"`
	MetricsAddr string `env:"REDOGS_METRICS_ADDR"`
	CatalogDB   string `env:"REDOGS_CATALOG_DB" envDefault:":memory:"`
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads and validates Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.LogFormat)
	}
	switch c.FaultMode {
	case FaultStop, FaultSkip, FaultStrict:
	default:
		return fmt.Errorf("invalid fault mode %q: must be one of stop, skip, strict", c.FaultMode)
	}
	// Zero disables the cascade limit.
	if c.MaxCascade < 0 {
		return fmt.Errorf("invalid max cascade %d: must not be negative", c.MaxCascade)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", name)
	}
}

// Logger builds a slog logger writing to w in the configured format and level.
// An invalid level falls back to info.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Policy maps the fault mode to an engine policy logging to logger.
func (c Config) Policy(logger *slog.Logger) engine.Policy {
	switch c.FaultMode {
	case FaultSkip:
		return engine.IsolatePolicy{Logger: logger}
	case FaultStrict:
		return engine.StrictPolicy{}
	default:
		return engine.SuppressPolicy{Logger: logger}
	}
}

// StoreOptions returns the engine options implied by c.
func (c Config) StoreOptions(logger *slog.Logger) []engine.Option {
	return []engine.Option{
		engine.WithLogger(logger),
		engine.WithPolicy(c.Policy(logger)),
		engine.WithMaxCascade(c.MaxCascade),
	}
}
