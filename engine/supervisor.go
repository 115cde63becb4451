package engine

import (
	"context"
	"sync/atomic"

	"github.com/cwbudde/algo-stems/bridge"
	"github.com/cwbudde/algo-stems/control"
	"github.com/cwbudde/algo-stems/dsp/buffer"
	"github.com/cwbudde/algo-stems/dsp/core"
	"github.com/cwbudde/algo-stems/separate/heuristic"
	"github.com/cwbudde/algo-stems/separate/neural"
)

// loadStatus reports the outcome of the model load, nil while pending.
type loadStatus interface {
	LoadResult() *neural.LoadResult
}

// Supervisor selects, per quantum, between the heuristic output and the
// neural stems. Process, and everything it calls, runs on the render
// goroutine; RequestStop may be called from anywhere.
type Supervisor struct {
	heur   *heuristic.Separator
	proxy  *buffer.Block
	bridge *bridge.Bridge
	load   loadStatus
	cancel atomic.Pointer[context.CancelFunc]

	stopReq atomic.Bool

	// render-side state
	inNeural bool
	locked   bool
	stopped  bool

	vL, vR, bL, bR []float64

	counters *counters
}

// NewSupervisor returns a Supervisor for quanta of up to maxFrames. b and
// load may be nil, in which case NEURAL requests render the heuristic
// output.
func NewSupervisor(maxFrames int, b *bridge.Bridge, load loadStatus) *Supervisor {
	return newSupervisor(maxFrames, b, load, &counters{})
}

func newSupervisor(maxFrames int, b *bridge.Bridge, load loadStatus, c *counters) *Supervisor {
	return &Supervisor{
		heur:     heuristic.New(maxFrames),
		proxy:    buffer.New(2, maxFrames),
		bridge:   b,
		load:     load,
		vL:       make([]float64, maxFrames),
		vR:       make([]float64, maxFrames),
		bL:       make([]float64, maxFrames),
		bR:       make([]float64, maxFrames),
		counters: c,
	}
}

// setCancel registers the function that cancels the inference task.
func (s *Supervisor) setCancel(cancel context.CancelFunc) {
	s.cancel.Store(&cancel)
}

// RequestStop asks the next Process call to stop the neural path.
func (s *Supervisor) RequestStop() {
	s.stopReq.Store(true)
}

// Locked reports whether a failed model load has pinned the supervisor to
// PROXY. Render goroutine only.
func (s *Supervisor) Locked() bool { return s.locked }

// Stopped reports whether the neural path has been shut down. Render
// goroutine only.
func (s *Supervisor) Stopped() bool { return s.stopped }

// Activity returns the heuristic voice-activity weight of the last quantum.
func (s *Supervisor) Activity() float64 { return s.heur.Activity() }

// Process renders one quantum of src into dst under st and returns the mode
// that produced the output. dst should hold src.Frames() frames; dst and
// src may be the same block.
func (s *Supervisor) Process(dst, src *buffer.Block, st *control.State) control.Mode {
	if s.stopReq.Load() && !s.stopped {
		s.shutdown()
	}
	if !s.locked && s.load != nil {
		if r := s.load.LoadResult(); r != nil && !r.OK {
			s.locked = true
		}
	}

	n := src.Frames()
	s.proxy.SetChannels(dst.Channels())
	s.proxy.Resize(n)

	// The heuristic runs every quantum so a fallback is always warm.
	res := s.heur.Separate(src, *st)
	s.heur.Mix(s.proxy, res, *st)

	want := st.Mode == control.ModeNeural && s.bridge != nil && !s.locked && !s.stopped
	if want != s.inNeural {
		s.inNeural = want
		s.counters.modeSwitches.Add(1)
		if want {
			s.bridge.Reset()
		}
	}

	if s.inNeural {
		l, r := src.Stereo()
		s.bridge.Push(l, r)
		if s.consume(n) {
			s.mixStems(dst, n, st)
			return control.ModeNeural
		}
		s.counters.fallbacks.Add(1)
	}

	dst.CopyFrom(s.proxy)
	return control.ModeProxy
}

// consume fills the stem scratch with n frames from both queues. It only
// reads when both queues already hold n frames. A partial read leaves the
// stems misaligned, so the bridge is reset to start a fresh epoch.
func (s *Supervisor) consume(n int) bool {
	voice, bg := s.bridge.Voice(), s.bridge.Background()
	if voice.Available() < n || bg.Available() < n {
		return false
	}

	s.vL = core.EnsureLen(s.vL, n)
	s.vR = core.EnsureLen(s.vR, n)
	s.bL = core.EnsureLen(s.bL, n)
	s.bR = core.EnsureLen(s.bR, n)

	fv := voice.Consume(s.vL, s.vR)
	fb := bg.Consume(s.bL, s.bR)
	if fv == n && fb == n {
		return true
	}
	s.bridge.Reset()
	return false
}

func (s *Supervisor) mixStems(dst *buffer.Block, n int, st *control.State) {
	vGain, bGain := st.VoiceGain, st.BgGain
	outL, outR := dst.Stereo()
	stereo := dst.Channels() > 1
	if f := dst.Frames(); f < n {
		n = f
	}

	for i := 0; i < n; i++ {
		oL, oR := 0.0, 0.0
		if !st.MuteVoice {
			oL += vGain * s.vL[i]
			oR += vGain * s.vR[i]
		}
		if !st.MuteBg {
			oL += bGain * s.bL[i]
			oR += bGain * s.bR[i]
		}
		outL[i] = core.ClampUnit(oL)
		if stereo {
			outR[i] = core.ClampUnit(oR)
		}
	}
}

// shutdown closes the bridge, which also drains both queues, and cancels
// the inference task. It never blocks.
func (s *Supervisor) shutdown() {
	s.stopped = true
	if s.inNeural {
		s.inNeural = false
		s.counters.modeSwitches.Add(1)
	}
	if s.bridge != nil {
		s.bridge.Close()
	}
	if c := s.cancel.Load(); c != nil {
		(*c)()
	}
}
