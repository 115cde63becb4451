package engine

import (
	"log/slog"

	"github.com/cwbudde/algo-stems/control"
	"github.com/cwbudde/algo-stems/dsp/core"
	"github.com/cwbudde/algo-stems/internal/observe"
	"github.com/cwbudde/algo-stems/measure/level"
	"github.com/cwbudde/algo-stems/separate/neural"
)

// DefaultTelemetryBuffer is the capacity of the telemetry channel.
const DefaultTelemetryBuffer = 8

// Config defines engine configuration.
type Config struct {
	core.ProcessorConfig

	// Initial is the control state the engine starts with.
	Initial control.State

	// Neural enables the inference path. Without it NEURAL requests render
	// the heuristic output.
	Neural            bool
	Locator           string
	Backends          []neural.Backend
	Window            int
	MaxPendingWindows int
	ChunkPool         int
	FragmentQueue     int

	// TelemetryInterval is the meter period in seconds.
	TelemetryInterval float64
	TelemetryBuffer   int

	Logger  *slog.Logger
	Metrics *observe.Metrics
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ProcessorConfig:   core.DefaultProcessorConfig(),
		Initial:           control.Default(),
		Window:            neural.DefaultWindow,
		MaxPendingWindows: neural.DefaultMaxPendingWindows,
		TelemetryInterval: level.DefaultInterval,
		TelemetryBuffer:   DefaultTelemetryBuffer,
	}
}

// WithProcessorOptions applies core processor options (sample rate,
// quantum, channels).
func WithProcessorOptions(opts ...core.ProcessorOption) Option {
	return func(cfg *Config) {
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.ProcessorConfig)
			}
		}
	}
}

// WithInitialState sets the starting control state.
func WithInitialState(st control.State) Option {
	return func(cfg *Config) {
		cfg.Initial = st
	}
}

// WithNeural enables the inference path for locator, trying backends in
// order.
func WithNeural(locator string, backends ...neural.Backend) Option {
	return func(cfg *Config) {
		cfg.Neural = true
		cfg.Locator = locator
		cfg.Backends = backends
	}
}

// WithWindow sets the analysis window size and the backlog bound in
// windows. Zero keeps the current value.
func WithWindow(window, maxPendingWindows int) Option {
	return func(cfg *Config) {
		if window != 0 {
			cfg.Window = window
		}
		if maxPendingWindows != 0 {
			cfg.MaxPendingWindows = maxPendingWindows
		}
	}
}

// WithBridge sizes the chunk pool and the fragment queues. Zero keeps the
// bridge default.
func WithBridge(chunkPool, fragmentQueue int) Option {
	return func(cfg *Config) {
		cfg.ChunkPool = chunkPool
		cfg.FragmentQueue = fragmentQueue
	}
}

// WithTelemetry sets the meter period in seconds and the channel capacity.
func WithTelemetry(interval float64, buffer int) Option {
	return func(cfg *Config) {
		if interval > 0 {
			cfg.TelemetryInterval = interval
		}
		if buffer > 0 {
			cfg.TelemetryBuffer = buffer
		}
	}
}

// WithLogger sets the logger. Nothing is logged from Process.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = l
	}
}

// WithMetrics sets the metrics instruments.
func WithMetrics(m *observe.Metrics) Option {
	return func(cfg *Config) {
		cfg.Metrics = m
	}
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}
