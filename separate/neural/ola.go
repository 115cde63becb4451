package neural

import (
	"context"
	"errors"
	"fmt"

	"github.com/cwbudde/algo-stems/dsp/window"
	"github.com/cwbudde/algo-vecmath"
)

// Defaults.
const (
	DefaultWindow            = 4096
	DefaultMaxPendingWindows = 4
	MinWindow                = 64
	MinPendingWindows        = 2
)

// ErrInvalidWindow is returned for a window size that is not a power of two
// of at least MinWindow.
var ErrInvalidWindow = errors.New("neural: window must be a power of two >= 64")

// Inferer produces a per-channel estimate of the voice in one windowed
// stereo frame.
type Inferer interface {
	Infer(ctx context.Context, l, r, outL, outR []float64) error
}

// Hop is one emitted hop of both stems. The slices alias OLA memory and are
// valid until the next call to Next or Reset.
type Hop struct {
	VoiceL, VoiceR []float64
	BgL, BgR       []float64
}

// OLA is the streaming overlap-add engine. Analysis and synthesis both use a
// periodic square-root Hann window at 50% overlap, so the overlapped
// analysis×synthesis product sums to exactly one.
//
// OLA is not safe for concurrent use.
type OLA struct {
	n, hop     int
	maxPending int

	analysis  []float64
	synthesis []float64

	// pending input, deinterleaved
	inL, inR []float64

	// four accumulators of length n
	accVoiceL, accVoiceR []float64
	accBgL, accBgR       []float64

	// per-window scratch
	frameL, frameR []float64
	voiceL, voiceR []float64
	compL, compR   []float64

	// emitted hop, copied out of the accumulators before the shift
	hopVoiceL, hopVoiceR []float64
	hopBgL, hopBgR       []float64
}

// NewOLA returns an OLA with window size n and an input bound of
// maxPendingWindows windows.
func NewOLA(n, maxPendingWindows int) (*OLA, error) {
	if n < MinWindow || n&(n-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, n)
	}
	if maxPendingWindows < MinPendingWindows {
		return nil, fmt.Errorf("neural: max pending windows must be >= %d: %d", MinPendingWindows, maxPendingWindows)
	}

	w, err := window.SqrtHann(n, window.WithPeriodic())
	if err != nil {
		return nil, err
	}

	hop := n / 2
	limit := maxPendingWindows * n
	o := &OLA{
		n:          n,
		hop:        hop,
		maxPending: limit,
		analysis:   w,
		synthesis:  w,
		inL:        make([]float64, 0, limit+n),
		inR:        make([]float64, 0, limit+n),
	}
	for _, p := range []*[]float64{
		&o.accVoiceL, &o.accVoiceR, &o.accBgL, &o.accBgR,
		&o.frameL, &o.frameR, &o.voiceL, &o.voiceR, &o.compL, &o.compR,
	} {
		*p = make([]float64, n)
	}
	for _, p := range []*[]float64{&o.hopVoiceL, &o.hopVoiceR, &o.hopBgL, &o.hopBgR} {
		*p = make([]float64, hop)
	}

	return o, nil
}

// Window returns the analysis window size.
func (o *OLA) Window() int { return o.n }

// HopSize returns the hop size.
func (o *OLA) HopSize() int { return o.hop }

// Pending returns the number of buffered input frames.
func (o *OLA) Pending() int { return len(o.inL) }

// Write appends input frames. If the buffered input then exceeds the bound,
// the oldest whole hops are dropped and their frame count is returned.
func (o *OLA) Write(l, r []float64) (dropped int) {
	n := len(l)
	if len(r) < n {
		n = len(r)
	}
	o.inL = append(o.inL, l[:n]...)
	o.inR = append(o.inR, r[:n]...)

	over := len(o.inL) - o.maxPending
	if over <= 0 {
		return 0
	}
	dropped = (over + o.hop - 1) / o.hop * o.hop
	o.discard(dropped)
	return dropped
}

// Ready reports whether a full window is buffered.
func (o *OLA) Ready() bool {
	return len(o.inL) >= o.n
}

// Next processes one window if one is buffered. ok is false when more input
// is needed. A failed inference degrades to passthrough for this window
// only: the voice stem receives the windowed input and the background
// silence. The inference error is returned alongside a valid hop so callers
// can count it.
func (o *OLA) Next(ctx context.Context, inf Inferer) (hop Hop, ok bool, inferErr error) {
	if !o.Ready() {
		return Hop{}, false, nil
	}

	n := o.n
	vecmath.MulBlock(o.frameL, o.inL[:n], o.analysis)
	vecmath.MulBlock(o.frameR, o.inR[:n], o.analysis)

	// Composite-windowed input: what voice+background must sum to.
	vecmath.MulBlock(o.compL, o.frameL, o.synthesis)
	vecmath.MulBlock(o.compR, o.frameR, o.synthesis)

	inferErr = inf.Infer(ctx, o.frameL, o.frameR, o.voiceL, o.voiceR)
	if inferErr != nil {
		copy(o.voiceL, o.compL)
		copy(o.voiceR, o.compR)
	} else {
		vecmath.MulBlockInPlace(o.voiceL, o.synthesis)
		vecmath.MulBlockInPlace(o.voiceR, o.synthesis)
	}

	vecmath.AddBlockInPlace(o.accVoiceL, o.voiceL)
	vecmath.AddBlockInPlace(o.accVoiceR, o.voiceR)
	for i := 0; i < n; i++ {
		o.accBgL[i] += o.compL[i] - o.voiceL[i]
		o.accBgR[i] += o.compR[i] - o.voiceR[i]
	}

	copy(o.hopVoiceL, o.accVoiceL[:o.hop])
	copy(o.hopVoiceR, o.accVoiceR[:o.hop])
	copy(o.hopBgL, o.accBgL[:o.hop])
	copy(o.hopBgR, o.accBgR[:o.hop])

	for _, acc := range [][]float64{o.accVoiceL, o.accVoiceR, o.accBgL, o.accBgR} {
		shift(acc, o.hop)
	}
	o.discard(o.hop)

	return Hop{
		VoiceL: o.hopVoiceL,
		VoiceR: o.hopVoiceR,
		BgL:    o.hopBgL,
		BgR:    o.hopBgR,
	}, true, inferErr
}

// Reset drops buffered input and clears the accumulators.
func (o *OLA) Reset() {
	o.inL = o.inL[:0]
	o.inR = o.inR[:0]
	for _, acc := range [][]float64{o.accVoiceL, o.accVoiceR, o.accBgL, o.accBgR} {
		clear(acc)
	}
}

func (o *OLA) discard(frames int) {
	if frames >= len(o.inL) {
		o.inL = o.inL[:0]
		o.inR = o.inR[:0]
		return
	}
	rem := copy(o.inL, o.inL[frames:])
	copy(o.inR, o.inR[frames:])
	o.inL = o.inL[:rem]
	o.inR = o.inR[:rem]
}

// shift moves buf left by hop and zero-fills the tail.
func shift(buf []float64, hop int) {
	copy(buf, buf[hop:])
	clear(buf[len(buf)-hop:])
}
