package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/cwbudde/algo-stems/control"
	"github.com/cwbudde/algo-stems/separate/neural"
	"github.com/cwbudde/algo-stems/separate/neural/spectral"
	"gopkg.in/yaml.v3"
)

// Defaults filled in by ApplyDefaults.
const (
	DefaultSampleRate = 48000.0
	DefaultQuantum    = 128
	DefaultChannels   = 2
	DefaultInterval   = 33 * time.Millisecond

	maxQuantum = 1 << 14
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills in defaults, and
// validates the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero values with defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = DefaultSampleRate
	}
	if cfg.Audio.Quantum == 0 {
		cfg.Audio.Quantum = DefaultQuantum
	}
	if cfg.Audio.Channels == 0 {
		cfg.Audio.Channels = DefaultChannels
	}
	if cfg.Neural.Locator == "" {
		cfg.Neural.Locator = spectral.Locator
	}
	if len(cfg.Neural.Backends) == 0 {
		cfg.Neural.Backends = slices.Clone(KnownBackends)
	}
	if cfg.Neural.Window == 0 {
		cfg.Neural.Window = neural.DefaultWindow
	}
	if cfg.Neural.MaxPendingWindows == 0 {
		cfg.Neural.MaxPendingWindows = neural.DefaultMaxPendingWindows
	}
	if cfg.Telemetry.Interval == 0 {
		cfg.Telemetry.Interval = DefaultInterval
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Audio
	if !(cfg.Audio.SampleRate > 0) {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be > 0: %g", cfg.Audio.SampleRate))
	}
	if cfg.Audio.Quantum < 1 || cfg.Audio.Quantum > maxQuantum {
		errs = append(errs, fmt.Errorf("audio.quantum must be in [1, %d]: %d", maxQuantum, cfg.Audio.Quantum))
	}
	if cfg.Audio.Channels != 1 && cfg.Audio.Channels != 2 {
		errs = append(errs, fmt.Errorf("audio.channels must be 1 or 2: %d", cfg.Audio.Channels))
	}

	// Neural
	n := cfg.Neural
	if n.Window < neural.MinWindow || n.Window&(n.Window-1) != 0 {
		errs = append(errs, fmt.Errorf("neural.window must be a power of two >= %d: %d", neural.MinWindow, n.Window))
	}
	if n.MaxPendingWindows < neural.MinPendingWindows {
		errs = append(errs, fmt.Errorf("neural.max_pending_windows must be >= %d: %d", neural.MinPendingWindows, n.MaxPendingWindows))
	}
	if n.ChunkPool < 0 {
		errs = append(errs, fmt.Errorf("neural.chunk_pool must be >= 0: %d", n.ChunkPool))
	}
	if n.FragmentQueue < 0 {
		errs = append(errs, fmt.Errorf("neural.fragment_queue must be >= 0: %d", n.FragmentQueue))
	}
	seen := make(map[string]bool, len(n.Backends))
	for i, name := range n.Backends {
		if !slices.Contains(KnownBackends, name) {
			errs = append(errs, fmt.Errorf("neural.backends[%d] %q is unknown; valid values: %v", i, name, KnownBackends))
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("neural.backends[%d] %q is listed twice", i, name))
		}
		seen[name] = true
	}

	if cfg.Telemetry.Interval < 0 {
		errs = append(errs, fmt.Errorf("telemetry.interval must be >= 0: %s", cfg.Telemetry.Interval))
	}

	if m := cfg.Control.Mode; m != nil {
		if _, ok := control.ParseMode(*m); !ok {
			errs = append(errs, fmt.Errorf("control.mode %q is invalid; valid values: proxy, neural", *m))
		}
	}

	return errors.Join(errs...)
}
