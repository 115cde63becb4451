package level

import (
	"math"

	"github.com/cwbudde/algo-stems/dsp/buffer"
	"github.com/cwbudde/algo-stems/dsp/core"
)

// Reading is one meter period.
type Reading struct {
	RMS  float64 `json:"rms"`
	Peak float64 `json:"peak"`
}

// RMSDB returns the RMS level in dBFS.
func (r Reading) RMSDB() float64 { return core.LinearToDB(r.RMS) }

// PeakDB returns the peak level in dBFS.
func (r Reading) PeakDB() float64 { return core.LinearToDB(r.Peak) }

// Meter accumulates the sum of squares and the absolute peak over all
// channels and produces a Reading every Interval*SampleRate frames.
type Meter struct {
	period int

	frames  int
	samples int
	sumSq   float64
	peak    float64
}

// NewMeter creates a level meter with the given options.
func NewMeter(opts ...MeterOption) *Meter {
	cfg := ApplyMeterOptions(opts...)
	period := int(math.Round(cfg.Interval * cfg.SampleRate))
	if period < 1 {
		period = 1
	}
	return &Meter{period: period}
}

// Period returns the number of frames per reading.
func (m *Meter) Period() int { return m.period }

// ProcessBlock feeds one block. When a period completes inside the block
// the reading is returned with ok set. If the block spans several periods
// only the last completed one is returned.
func (m *Meter) ProcessBlock(b *buffer.Block) (r Reading, ok bool) {
	if b == nil {
		return Reading{}, false
	}
	frames := b.Frames()
	channels := b.Channels()

	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			x := b.Channel(ch)[i]
			m.sumSq += x * x
			if a := math.Abs(x); a > m.peak {
				m.peak = a
			}
		}
		m.samples += channels
		m.frames++

		if m.frames == m.period {
			r, ok = m.reading(), true
			m.Reset()
		}
	}
	return r, ok
}

func (m *Meter) reading() Reading {
	if m.samples == 0 {
		return Reading{}
	}
	return Reading{RMS: math.Sqrt(m.sumSq / float64(m.samples)), Peak: m.peak}
}

// Reset discards the partial period.
func (m *Meter) Reset() {
	m.frames = 0
	m.samples = 0
	m.sumSq = 0
	m.peak = 0
}
