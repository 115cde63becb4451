package engine

import (
	"sync/atomic"

	"github.com/cwbudde/algo-stems/internal/observe"
)

// counters are the render path's monotonic counters. They are written by
// the render goroutine and read by anyone.
type counters struct {
	quanta           atomic.Uint64
	neuralQuanta     atomic.Uint64
	fallbacks        atomic.Uint64
	modeSwitches     atomic.Uint64
	telemetryDropped atomic.Uint64
}

// Stats is a snapshot of the engine counters.
type Stats struct {
	// Quanta is the number of rendered quanta.
	Quanta uint64
	// NeuralQuanta were rendered from the neural stems.
	NeuralQuanta uint64
	// Fallbacks were requested as NEURAL but rendered from the heuristic.
	Fallbacks uint64
	// ModeSwitches counts changes of the active path.
	ModeSwitches uint64
	// DroppedChunks are quanta the bridge could not hand off.
	DroppedChunks uint64
	// StaleHops are hops computed under an epoch that had already ended.
	StaleHops uint64
	// TelemetryDropped readings found the telemetry channel full.
	TelemetryDropped uint64

	// Windows, WindowFailures and DroppedFrames come from the inference
	// worker.
	Windows        uint64
	WindowFailures uint64
	DroppedFrames  uint64
}

func (c *counters) render() observe.RenderCounters {
	return observe.RenderCounters{
		Quanta:       c.quanta.Load(),
		Fallbacks:    c.fallbacks.Load(),
		ModeSwitches: c.modeSwitches.Load(),
	}
}
