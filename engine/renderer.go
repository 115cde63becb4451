package engine

import (
	"github.com/cwbudde/algo-stems/control"
	"github.com/cwbudde/algo-stems/dsp/buffer"
	"github.com/cwbudde/algo-stems/measure/level"
	"github.com/cwbudde/algo-vecmath"
)

// Telemetry is one meter reading of the final output.
type Telemetry struct {
	level.Reading
	// Activity is the voice-activity weight of the last quantum.
	Activity float64 `json:"activity"`
	// Mode is the path that rendered the last quantum.
	Mode control.Mode `json:"mode"`
	// Frame is the render position at the end of the reading.
	Frame uint64 `json:"frame"`
}

// Renderer is the per-quantum entry point of the render goroutine. It holds
// no locks, never sleeps, and does not allocate once its scratch has grown
// to the quantum size.
type Renderer struct {
	plane *control.Plane
	sup   *Supervisor
	meter *level.Meter
	out   chan Telemetry

	frames   uint64
	counters *counters
}

func newRenderer(plane *control.Plane, sup *Supervisor, meter *level.Meter, out chan Telemetry, c *counters) *Renderer {
	return &Renderer{plane: plane, sup: sup, meter: meter, out: out, counters: c}
}

// Process renders src into dst using one control snapshot for the whole
// quantum. dst and src may be the same block.
func (r *Renderer) Process(dst, src *buffer.Block) control.Mode {
	st := r.plane.Load()

	mode := r.sup.Process(dst, src, st)
	r.counters.quanta.Add(1)
	if mode == control.ModeNeural {
		r.counters.neuralQuanta.Add(1)
	}

	// Master gain is a post stage after the separation mix.
	if g := st.MasterGain; g != 1 {
		for ch := 0; ch < dst.Channels(); ch++ {
			c := dst.Channel(ch)
			vecmath.ScaleBlock(c, c, g)
		}
	}

	r.frames += uint64(src.Frames())
	if reading, ok := r.meter.ProcessBlock(dst); ok {
		t := Telemetry{
			Reading:  reading,
			Activity: r.sup.Activity(),
			Mode:     mode,
			Frame:    r.frames,
		}
		select {
		case r.out <- t:
		default:
			r.counters.telemetryDropped.Add(1)
		}
	}

	return mode
}
