package onepole

import (
	"math"
	"testing"
)

func TestLowPassStepResponse(t *testing.T) {
	t.Parallel()

	f := NewLowPass(0.15)
	want := 0.0
	for i := 0; i < 20; i++ {
		got := f.ProcessSample(1)
		want += 0.15 * (1 - want)
		if math.Abs(got-want) > 1e-15 {
			t.Fatalf("step %d: got %v want %v", i, got, want)
		}
	}

	for i := 0; i < 500; i++ {
		f.ProcessSample(1)
	}
	if math.Abs(f.Z-1) > 1e-12 {
		t.Fatalf("low-pass should settle at DC input, got %v", f.Z)
	}
}

func TestHighPassRemovesDC(t *testing.T) {
	t.Parallel()

	f := NewHighPass(0.02)
	var y float64
	for i := 0; i < 5000; i++ {
		y = f.ProcessSample(0.7)
	}
	if math.Abs(y) > 1e-9 {
		t.Fatalf("high-pass DC output = %v, want ~0", y)
	}
}

func TestProcessInPlaceMatchesSample(t *testing.T) {
	t.Parallel()

	in := make([]float64, 257)
	for i := range in {
		in[i] = math.Sin(0.1*float64(i)) + 0.3
	}

	lpA, lpB := NewLowPass(0.15), NewLowPass(0.15)
	hpA, hpB := NewHighPass(0.005), NewHighPass(0.005)

	bufLP := append([]float64(nil), in...)
	bufHP := append([]float64(nil), in...)
	lpB.ProcessInPlace(bufLP)
	hpB.ProcessInPlace(bufHP)

	for i, x := range in {
		if got := lpA.ProcessSample(x); got != bufLP[i] {
			t.Fatalf("lowpass[%d]: sample %v block %v", i, got, bufLP[i])
		}
		if got := hpA.ProcessSample(x); got != bufHP[i] {
			t.Fatalf("highpass[%d]: sample %v block %v", i, got, bufHP[i])
		}
	}
}

func TestEnvelopeAsymmetry(t *testing.T) {
	t.Parallel()

	e := NewEnvelope(0.25, 0.03)
	if got := e.Step(1); got != 0.25 {
		t.Fatalf("attack step = %v, want 0.25", got)
	}

	before := e.Y
	got := e.Step(0)
	if want := before - 0.03*before; math.Abs(got-want) > 1e-15 {
		t.Fatalf("release step = %v, want %v", got, want)
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	lp := NewLowPass(0.5)
	hp := NewHighPass(0.5)
	env := NewEnvelope(0.5, 0.5)
	lp.ProcessSample(1)
	hp.ProcessSample(1)
	env.Step(1)

	lp.Reset()
	hp.Reset()
	env.Reset()

	if lp.Z != 0 || hp.LP.Z != 0 || env.Y != 0 {
		t.Fatalf("state not cleared: lp=%v hp=%v env=%v", lp.Z, hp.LP.Z, env.Y)
	}
	if lp.A != 0.5 || env.Attack != 0.5 {
		t.Fatal("Reset must keep coefficients")
	}
}
