// Package config provides the configuration schema and loader for the
// stemmix command.
package config

import (
	"time"

	"github.com/cwbudde/algo-stems/control"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Built-in backend names accepted in neural.backends.
const (
	BackendSpectral = "spectral"
	BackendIdentity = "identity"
)

// KnownBackends lists the backend names in their default preference order.
var KnownBackends = []string{BackendSpectral, BackendIdentity}

// Config is the root configuration structure.
type Config struct {
	LogLevel  LogLevel        `yaml:"log_level"`
	Audio     AudioConfig     `yaml:"audio"`
	Neural    NeuralConfig    `yaml:"neural"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Metrics   MetricsConfig   `yaml:"metrics"`

	// Control is applied on top of the default control state at start.
	Control control.Patch `yaml:"control"`
}

// AudioConfig describes the PCM stream.
type AudioConfig struct {
	SampleRate float64 `yaml:"sample_rate"`
	// Quantum is the render block size in frames.
	Quantum int `yaml:"quantum"`
	// Channels is 1 or 2.
	Channels int `yaml:"channels"`
}

// NeuralConfig configures the inference path.
type NeuralConfig struct {
	Enabled bool   `yaml:"enabled"`
	Locator string `yaml:"locator"`
	// Backends are tried in order at load time.
	Backends          []string `yaml:"backends"`
	Window            int      `yaml:"window"`
	MaxPendingWindows int      `yaml:"max_pending_windows"`
	ChunkPool         int      `yaml:"chunk_pool"`
	FragmentQueue     int      `yaml:"fragment_queue"`
}

// TelemetryConfig configures the level meter.
type TelemetryConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// ListenAddr enables the /metrics endpoint when set, e.g. ":9464".
	ListenAddr string `yaml:"listen_addr"`
}

// InitialState returns the control state the engine starts with.
func (c *Config) InitialState() control.State {
	return control.Default().Merge(c.Control)
}
