package engine

import (
	"log/slog"
)

// Option configures a Store.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	policy     Policy
	metrics    Metrics
	ids        IDGenerator
	clock      *Clock
	maxCascade int
}

func defaultOptions() options {
	return options{
		logger:     slog.Default(),
		metrics:    nopMetrics{},
		ids:        UUIDv7Generator{},
		maxCascade: DefaultMaxCascade,
	}
}

// WithLogger sets the logger for lifecycle messages. Unless a policy is set
// explicitly, the default SuppressPolicy logs faults here too.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPolicy sets the fault policy. Default: SuppressPolicy on the store logger.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithMetrics sets the telemetry sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithIDGenerator sets the generator for the store ID.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		if g != nil {
			o.ids = g
		}
	}
}

// WithClock sets the clock that stamps sequence numbers on queued actions.
func WithClock(c *Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithMaxCascade sets the effect cascade limit. Zero or negative disables it.
func WithMaxCascade(n int) Option {
	return func(o *options) {
		o.maxCascade = n
	}
}
