// Package observe provides the engine's OpenTelemetry metrics.
//
// Instruments recorded off the render path (inference latency, window
// failures, dropped input) are plain synchronous instruments. Counters owned
// by the render path are kept as atomics by the engine and exported through
// observable counters registered with [Metrics.ObserveRender], so the render
// goroutine never calls into the SDK.
//
// Tests should use [NewMetrics] with a custom [metric.MeterProvider] to
// avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/cwbudde/algo-stems"

// Metrics holds all OpenTelemetry metric instruments.
type Metrics struct {
	meter metric.Meter

	// InferenceDuration tracks per-window model latency. Use with attribute:
	//   attribute.String("backend", ...)
	InferenceDuration metric.Float64Histogram

	// WindowFailures counts windows that fell back to passthrough.
	WindowFailures metric.Int64Counter

	// DroppedFrames counts input frames dropped by the inference backlog
	// bound.
	DroppedFrames metric.Int64Counter

	renderQuanta    metric.Int64ObservableCounter
	renderFallbacks metric.Int64ObservableCounter
	bridgeDropped   metric.Int64ObservableCounter
	modeSwitches    metric.Int64ObservableCounter
}

// inferenceBuckets are histogram boundaries (in seconds) sized around one
// hop of audio at common window sizes.
var inferenceBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{meter: m}

	if met.InferenceDuration, err = m.Float64Histogram("stems.inference.duration",
		metric.WithDescription("Latency of one separation model window."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(inferenceBuckets...),
	); err != nil {
		return nil, err
	}
	if met.WindowFailures, err = m.Int64Counter("stems.inference.window_failures",
		metric.WithDescription("Windows whose inference failed and were passed through."),
	); err != nil {
		return nil, err
	}
	if met.DroppedFrames, err = m.Int64Counter("stems.neural.dropped_frames",
		metric.WithDescription("Input frames dropped because the inference backlog was full."),
	); err != nil {
		return nil, err
	}

	if met.renderQuanta, err = m.Int64ObservableCounter("stems.render.quanta",
		metric.WithDescription("Quanta rendered."),
	); err != nil {
		return nil, err
	}
	if met.renderFallbacks, err = m.Int64ObservableCounter("stems.render.fallbacks",
		metric.WithDescription("Neural-mode quanta rendered from the heuristic fallback."),
	); err != nil {
		return nil, err
	}
	if met.bridgeDropped, err = m.Int64ObservableCounter("stems.bridge.dropped_chunks",
		metric.WithDescription("Raw quanta the bridge could not hand to the inference task."),
	); err != nil {
		return nil, err
	}
	if met.modeSwitches, err = m.Int64ObservableCounter("stems.mode.switches",
		metric.WithDescription("Effective mode changes between proxy and neural."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RenderCounters is a snapshot of the render path's monotonic counters.
type RenderCounters struct {
	Quanta        uint64
	Fallbacks     uint64
	DroppedChunks uint64
	ModeSwitches  uint64
}

// ObserveRender registers read as the source of the render counters. read
// is called on every collection, from the collecting goroutine. Unregister
// the returned registration when the source goes away.
func (m *Metrics) ObserveRender(read func() RenderCounters) (metric.Registration, error) {
	return m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		c := read()
		o.ObserveInt64(m.renderQuanta, int64(c.Quanta))
		o.ObserveInt64(m.renderFallbacks, int64(c.Fallbacks))
		o.ObserveInt64(m.bridgeDropped, int64(c.DroppedChunks))
		o.ObserveInt64(m.modeSwitches, int64(c.ModeSwitches))
		return nil
	}, m.renderQuanta, m.renderFallbacks, m.bridgeDropped, m.modeSwitches)
}

// RecordInference records one window's latency and, if it failed, a
// window failure, both tagged with the backend name.
func (m *Metrics) RecordInference(ctx context.Context, backend string, seconds float64, failed bool) {
	attrs := metric.WithAttributes(attribute.String("backend", backend))
	m.InferenceDuration.Record(ctx, seconds, attrs)
	if failed {
		m.WindowFailures.Add(ctx, 1, attrs)
	}
}

// RecordDroppedFrames adds n dropped input frames.
func (m *Metrics) RecordDroppedFrames(ctx context.Context, n int) {
	if n > 0 {
		m.DroppedFrames.Add(ctx, int64(n))
	}
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails (should not happen with the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}
