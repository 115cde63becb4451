package heuristic

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-stems/control"
	"github.com/cwbudde/algo-stems/dsp/buffer"
	"github.com/cwbudde/algo-stems/internal/testutil"
)

const (
	testRate    = 48000.0
	testQuantum = 128
)

func render(t *testing.T, src *buffer.Block, st control.State) (*buffer.Block, []float64) {
	t.Helper()

	s := New(testQuantum)
	out := buffer.New(2, src.Frames())
	var activity []float64
	quanta := testutil.Quanta(src, testQuantum)
	outQuanta := testutil.Quanta(out, testQuantum)
	for i, q := range quanta {
		s.ProcessBlock(outQuanta[i], q, st)
		activity = append(activity, s.Activity())
	}
	return out, activity
}

func TestMuteVoiceAndBgIsSilent(t *testing.T) {
	t.Parallel()

	src := testutil.StereoNoise(7, 0.8, 48*testQuantum)
	st := control.Default()
	st.MuteVoice = true
	st.MuteBg = true
	st.VoiceGain = 2
	st.BgGain = 2

	out, _ := render(t, src, st)
	for ch := 0; ch < 2; ch++ {
		for i, v := range out.Channel(ch) {
			if v != 0 {
				t.Fatalf("channel %d sample %d = %v, want exactly 0", ch, i, v)
			}
		}
	}
}

func TestMuteBgMatchesZeroBgGain(t *testing.T) {
	t.Parallel()

	src := testutil.StereoNoise(3, 0.5, 32*testQuantum)

	muted := control.Default()
	muted.MuteBg = true
	muted.BgGain = 1.7

	zero := control.Default()
	zero.BgGain = 0

	a, _ := render(t, src, muted)
	b, _ := render(t, src, zero)
	testutil.RequireBlockEqual(t, a, b)
}

func TestMuteVoiceRemovesVoiceTerm(t *testing.T) {
	t.Parallel()

	// A muted voice with any gain must render the same as voice gain zero.
	src := testutil.StereoSine(1000, testRate, 0.5, 64*testQuantum)

	muted := control.Default()
	muted.MuteVoice = true
	muted.VoiceGain = 1.5

	zero := control.Default()
	zero.VoiceGain = 0

	a, _ := render(t, src, muted)
	b, _ := render(t, src, zero)
	testutil.RequireBlockEqual(t, a, b)
}

func TestLeakSuppressionOnHardMute(t *testing.T) {
	t.Parallel()

	src := testutil.StereoSine(1000, testRate, 0.2, testQuantum)
	st := control.Default()
	st.MuteVoice = true
	st.DuckDepth = 0

	s := New(testQuantum)
	res := s.Separate(src, st)
	voice := append([]float64(nil), res.Voice...)
	bgL := append([]float64(nil), res.BgL...)

	out := buffer.New(2, testQuantum)
	s.Mix(out, res, st)
	for i := range voice {
		want := bgL[i] - st.LeakKill*voice[i]
		if math.Abs(out.Channel(0)[i]-want) > 1e-12 {
			t.Fatalf("sample %d = %v, want %v", i, out.Channel(0)[i], want)
		}
	}
}

func TestSeparateDoesNotModifyInput(t *testing.T) {
	t.Parallel()

	src := testutil.StereoNoise(11, 0.5, testQuantum)
	orig := src.Copy()

	s := New(testQuantum)
	s.ProcessBlock(buffer.New(2, testQuantum), src, control.Default())

	testutil.RequireBlockEqual(t, src, orig)
}

func TestBackgroundReconstructsInput(t *testing.T) {
	t.Parallel()

	src := testutil.StereoNoise(5, 0.5, testQuantum)
	s := New(testQuantum)
	res := s.Separate(src, control.Default())

	l, r := src.Stereo()
	for i := range l {
		if math.Abs(res.Voice[i]+res.BgL[i]-l[i]) > 1e-12 || math.Abs(res.Voice[i]+res.BgR[i]-r[i]) > 1e-12 {
			t.Fatalf("voice+background != input at %d", i)
		}
	}
}

func TestOutputClamped(t *testing.T) {
	t.Parallel()

	src := testutil.StereoNoise(9, 1, 16*testQuantum)
	st := control.Default()
	st.BgGain = 2
	st.VoiceGain = 2
	st.PresenceDB = 12

	out, _ := render(t, src, st)
	for ch := 0; ch < 2; ch++ {
		testutil.RequireFinite(t, out.Channel(ch))
		if p := testutil.Peak(out.Channel(ch)); p > 1 {
			t.Fatalf("channel %d peak %v > 1", ch, p)
		}
	}
}

func TestMonoSourceAndDestination(t *testing.T) {
	t.Parallel()

	mono := buffer.FromChannels(testutil.DeterministicSine(1000, testRate, 0.5, testQuantum))
	stereo := testutil.StereoSine(1000, testRate, 0.5, testQuantum)

	a := New(testQuantum)
	b := New(testQuantum)
	outMono := buffer.New(1, testQuantum)
	outStereo := buffer.New(2, testQuantum)
	a.ProcessBlock(outMono, mono, control.Default())
	b.ProcessBlock(outStereo, stereo, control.Default())

	testutil.RequireSliceEqual(t, outMono.Channel(0), outStereo.Channel(0))
}

// 1 kHz sine at 0.5 on both channels with the background gain at zero:
// the output is the boosted voice estimate scaled by the activity weight.
func TestSineScenarioTracksActivity(t *testing.T) {
	t.Parallel()

	const seconds = 2
	src := testutil.StereoSine(1000, testRate, 0.5, seconds*int(testRate))
	st := control.Default()
	st.BgGain = 0

	out, activity := render(t, src, st)

	muted := st
	muted.MuteBg = true
	ref, _ := render(t, src, muted)
	testutil.RequireSliceEqual(t, out.Channel(0), ref.Channel(0))

	outQuanta := testutil.Quanta(out, testQuantum)
	last := len(outQuanta) - 1

	// Converged: the last half second stays inside the fixed-point band.
	for q := last - int(testRate/2)/testQuantum; q <= last; q++ {
		if activity[q] < 0.15 || activity[q] > 0.46 {
			t.Fatalf("quantum %d activity %v outside steady band", q, activity[q])
		}
	}

	// Output amplitude follows activity * voice amplitude.
	for q := last - 10; q <= last; q++ {
		ratio := testutil.Peak(outQuanta[q].Channel(0)) / activity[q]
		if ratio < 0.3 || ratio > 0.8 {
			t.Fatalf("quantum %d peak/activity = %v, want ~0.6", q, ratio)
		}
	}

	// Activity rises within the first few quanta of the envelope attack.
	if activity[20] <= activity[0] || activity[20] < 0.1 {
		t.Fatalf("activity did not rise: first=%v twentieth=%v", activity[0], activity[20])
	}
}

func TestSilenceHasNoActivity(t *testing.T) {
	t.Parallel()

	src := buffer.New(2, 32*testQuantum)
	out, activity := render(t, src, control.Default())
	for q, w := range activity {
		if w != 0 {
			t.Fatalf("quantum %d activity %v on silence", q, w)
		}
	}
	if testutil.Peak(out.Channel(0)) != 0 {
		t.Fatal("silence in should give silence out")
	}
}

func TestResetRestoresInitialBehaviour(t *testing.T) {
	t.Parallel()

	src := testutil.StereoNoise(21, 0.5, testQuantum)
	s := New(testQuantum)
	first := buffer.New(2, testQuantum)
	s.ProcessBlock(first, src, control.Default())
	for i := 0; i < 10; i++ {
		s.ProcessBlock(buffer.New(2, testQuantum), testutil.StereoNoise(int64(i), 0.9, testQuantum), control.Default())
	}

	s.Reset()
	again := buffer.New(2, testQuantum)
	s.ProcessBlock(again, src, control.Default())
	testutil.RequireSliceEqual(t, again.Channel(0), first.Channel(0))
}

func TestDuckAttenuationMonotonic(t *testing.T) {
	t.Parallel()

	for _, power := range []float64{0.25, 1, 1.6, 4} {
		prev := DuckAttenuation(0.75, power, 0)
		if prev != 0 {
			t.Fatalf("power %v: attenuation at w=0 is %v", power, prev)
		}
		for w := 0.01; w <= 1.0000001; w += 0.01 {
			got := DuckAttenuation(0.75, power, w)
			if got <= prev {
				t.Fatalf("power %v: not strictly increasing at w=%v (%v <= %v)", power, w, got, prev)
			}
			prev = got
		}
		if math.Abs(prev-0.75) > 1e-6 {
			t.Fatalf("power %v: attenuation at w=1 is %v, want depth", power, prev)
		}
	}
}
