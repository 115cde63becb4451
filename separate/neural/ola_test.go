package neural

import (
	"context"
	"errors"
	"testing"

	"github.com/cwbudde/algo-stems/internal/testutil"
)

type scaleInferer struct{ gain float64 }

func (s scaleInferer) Infer(_ context.Context, l, r, outL, outR []float64) error {
	for i := range l {
		outL[i] = s.gain * l[i]
		outR[i] = s.gain * r[i]
	}
	return nil
}

type failingInferer struct{}

func (failingInferer) Infer(context.Context, []float64, []float64, []float64, []float64) error {
	return errors.New("inference failed")
}

// runOLA feeds l/r through o in quantum-sized writes and collects every
// emitted hop.
func runOLA(t *testing.T, o *OLA, inf Inferer, l, r []float64, quantum int) (vL, vR, bL, bR []float64, failures int) {
	t.Helper()

	for start := 0; start+quantum <= len(l); start += quantum {
		if dropped := o.Write(l[start:start+quantum], r[start:start+quantum]); dropped != 0 {
			t.Fatalf("unexpected drop of %d frames", dropped)
		}
		for {
			hop, ok, err := o.Next(context.Background(), inf)
			if !ok {
				break
			}
			if err != nil {
				failures++
			}
			vL = append(vL, hop.VoiceL...)
			vR = append(vR, hop.VoiceR...)
			bL = append(bL, hop.BgL...)
			bR = append(bR, hop.BgR...)
		}
	}
	return vL, vR, bL, bR, failures
}

func TestOLAIdentityReconstructs(t *testing.T) {
	t.Parallel()

	const n = 256
	o, err := NewOLA(n, 4)
	if err != nil {
		t.Fatal(err)
	}
	in := testutil.StereoNoise(7, 0.5, 16*n)
	l, r := in.Stereo()

	sess := NewSession(ModelFunc(identityRun), "identity")
	vL, vR, bL, bR, failures := runOLA(t, o, sess, l, r, 128)
	if failures != 0 {
		t.Fatalf("%d failed windows", failures)
	}

	emitted := len(vL)
	if want := (len(l)-n)/o.HopSize() + 1; emitted != want*o.HopSize() {
		t.Fatalf("emitted %d frames, want %d", emitted, want*o.HopSize())
	}

	// The first hop only has one window's contribution.
	hop := o.HopSize()
	testutil.RequireSliceNearlyEqual(t, vL[hop:], l[hop:emitted], 1e-6)
	testutil.RequireSliceNearlyEqual(t, vR[hop:], r[hop:emitted], 1e-6)
	if peak := testutil.Peak(bL); peak > 1e-6 {
		t.Fatalf("background L peak %g, want ~0", peak)
	}
	if peak := testutil.Peak(bR); peak > 1e-6 {
		t.Fatalf("background R peak %g, want ~0", peak)
	}
}

func TestOLAStemsSumToInput(t *testing.T) {
	t.Parallel()

	const n = 128
	o, err := NewOLA(n, 4)
	if err != nil {
		t.Fatal(err)
	}
	in := testutil.StereoSine(440, 48000, 0.8, 12*n)
	l, r := in.Stereo()

	vL, _, bL, _, _ := runOLA(t, o, scaleInferer{gain: 0.25}, l, r, 64)
	hop := o.HopSize()
	sum := make([]float64, len(vL))
	for i := range sum {
		sum[i] = vL[i] + bL[i]
	}
	testutil.RequireSliceNearlyEqual(t, sum[hop:], l[hop:len(vL)], 1e-12)

	quarter := make([]float64, len(vL)-hop)
	for i := range quarter {
		quarter[i] = 0.25 * l[hop+i]
	}
	testutil.RequireSliceNearlyEqual(t, vL[hop:], quarter, 1e-12)
}

func TestOLAFailurePassesThrough(t *testing.T) {
	t.Parallel()

	const n = 128
	o, err := NewOLA(n, 4)
	if err != nil {
		t.Fatal(err)
	}
	in := testutil.StereoNoise(3, 0.5, 8*n)
	l, r := in.Stereo()

	vL, vR, bL, _, failures := runOLA(t, o, failingInferer{}, l, r, n)
	if want := len(vL) / o.HopSize(); failures != want {
		t.Fatalf("failures=%d, want %d", failures, want)
	}
	hop := o.HopSize()
	testutil.RequireSliceNearlyEqual(t, vL[hop:], l[hop:len(vL)], 1e-12)
	testutil.RequireSliceNearlyEqual(t, vR[hop:], r[hop:len(vR)], 1e-12)
	testutil.RequireSliceEqual(t, bL, make([]float64, len(bL)))
}

func TestOLAShortOutputPassesThrough(t *testing.T) {
	t.Parallel()

	const n = 64
	o, err := NewOLA(n, 2)
	if err != nil {
		t.Fatal(err)
	}
	sess := NewSession(&namedModel{input: InputName, outs: []string{"y"}, gain: 1, short: true}, "short")
	l := testutil.DC(0.5, n)
	if dropped := o.Write(l, l); dropped != 0 {
		t.Fatalf("dropped=%d", dropped)
	}

	hop, ok, err := o.Next(context.Background(), sess)
	if !ok || !errors.Is(err, ErrShortOutput) {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	testutil.RequireSliceEqual(t, hop.BgL, make([]float64, o.HopSize()))
}

func TestOLABackpressureDropsOldestHops(t *testing.T) {
	t.Parallel()

	o, err := NewOLA(64, 2)
	if err != nil {
		t.Fatal(err)
	}
	ramp := make([]float64, 140)
	for i := range ramp {
		ramp[i] = float64(i)
	}

	dropped := o.Write(ramp, ramp)
	// 140 frames over a 128-frame bound drops one 32-frame hop.
	if dropped != 32 {
		t.Fatalf("dropped=%d, want 32", dropped)
	}
	if o.Pending() != 108 {
		t.Fatalf("pending=%d, want 108", o.Pending())
	}
	if got := o.inL[0]; got != 32 {
		t.Fatalf("oldest frame %v, want 32", got)
	}

	if dropped := o.Write(ramp[:10], ramp[:10]); dropped != 0 {
		t.Fatalf("second write dropped %d", dropped)
	}
}

func TestOLAWriteUsesShorterChannel(t *testing.T) {
	t.Parallel()

	o, err := NewOLA(64, 2)
	if err != nil {
		t.Fatal(err)
	}
	o.Write(make([]float64, 10), make([]float64, 7))
	if o.Pending() != 7 {
		t.Fatalf("pending=%d, want 7", o.Pending())
	}
}

func TestOLAReset(t *testing.T) {
	t.Parallel()

	const n = 64
	o, err := NewOLA(n, 2)
	if err != nil {
		t.Fatal(err)
	}
	x := testutil.DC(1, n)
	o.Write(x, x)
	if _, ok, _ := o.Next(context.Background(), scaleInferer{gain: 1}); !ok {
		t.Fatal("window not ready")
	}
	o.Write(x, x)
	o.Reset()
	if o.Pending() != 0 || o.Ready() {
		t.Fatalf("pending=%d after reset", o.Pending())
	}

	// After a reset, the first hop again carries a single window.
	o.Write(x, x)
	hop, _, _ := o.Next(context.Background(), scaleInferer{gain: 1})
	fresh, _ := NewOLA(n, 2)
	fresh.Write(x, x)
	want, _, _ := fresh.Next(context.Background(), scaleInferer{gain: 1})
	testutil.RequireSliceEqual(t, hop.VoiceL, want.VoiceL)
}

func TestNewOLAValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		n, max  int
		wantErr error
	}{
		{"not power of two", 100, 4, ErrInvalidWindow},
		{"too small", 32, 4, ErrInvalidWindow},
		{"zero", 0, 4, ErrInvalidWindow},
		{"pending too small", 256, 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewOLA(tt.n, tt.max)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err=%v, want %v", err, tt.wantErr)
			}
		})
	}

	o, err := NewOLA(DefaultWindow, DefaultMaxPendingWindows)
	if err != nil {
		t.Fatal(err)
	}
	if o.Window() != DefaultWindow || o.HopSize() != DefaultWindow/2 {
		t.Fatalf("window=%d hop=%d", o.Window(), o.HopSize())
	}
}
