package level

import "github.com/cwbudde/algo-stems/dsp/core"

// DefaultInterval is the reading period in seconds.
const DefaultInterval = 0.033

// MeterConfig defines configuration for the level meter.
type MeterConfig struct {
	core.ProcessorConfig
	// Interval is the reading period in seconds.
	Interval float64
}

// MeterOption mutates a MeterConfig.
type MeterOption func(*MeterConfig)

// DefaultMeterConfig returns sensible defaults.
func DefaultMeterConfig() MeterConfig {
	return MeterConfig{
		ProcessorConfig: core.DefaultProcessorConfig(),
		Interval:        DefaultInterval,
	}
}

// WithSampleRate sets the sample rate.
func WithSampleRate(sampleRate float64) MeterOption {
	return func(cfg *MeterConfig) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithInterval sets the reading period in seconds.
func WithInterval(seconds float64) MeterOption {
	return func(cfg *MeterConfig) {
		if seconds > 0 && core.IsFinite(seconds) {
			cfg.Interval = seconds
		}
	}
}

// ApplyMeterOptions applies zero or more options to the default config.
func ApplyMeterOptions(opts ...MeterOption) MeterConfig {
	cfg := DefaultMeterConfig()

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}
