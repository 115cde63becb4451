package onepole

// LowPass is a one-pole low-pass: z += a*(x-z).
type LowPass struct {
	A float64
	Z float64
}

// NewLowPass returns a LowPass with pole a and zero state.
func NewLowPass(a float64) LowPass {
	return LowPass{A: a}
}

// ProcessSample filters one input sample and returns the output.
func (f *LowPass) ProcessSample(x float64) float64 {
	f.Z += f.A * (x - f.Z)
	return f.Z
}

// ProcessInPlace filters buf in place.
func (f *LowPass) ProcessInPlace(buf []float64) {
	a, z := f.A, f.Z
	for i, x := range buf {
		z += a * (x - z)
		buf[i] = z
	}
	f.Z = z
}

// Reset clears the filter state.
func (f *LowPass) Reset() {
	f.Z = 0
}

// HighPass is the complement of a LowPass: x - lowpass(x).
type HighPass struct {
	LP LowPass
}

// NewHighPass returns a HighPass whose internal low-pass has pole a.
func NewHighPass(a float64) HighPass {
	return HighPass{LP: NewLowPass(a)}
}

// ProcessSample filters one input sample and returns the output.
func (f *HighPass) ProcessSample(x float64) float64 {
	return x - f.LP.ProcessSample(x)
}

// ProcessInPlace filters buf in place.
func (f *HighPass) ProcessInPlace(buf []float64) {
	a, z := f.LP.A, f.LP.Z
	for i, x := range buf {
		z += a * (x - z)
		buf[i] = x - z
	}
	f.LP.Z = z
}

// Reset clears the filter state.
func (f *HighPass) Reset() {
	f.LP.Reset()
}

// Envelope follows its input with separate attack and release poles:
// rising inputs use Attack, falling inputs use Release.
type Envelope struct {
	Attack  float64
	Release float64
	Y       float64
}

// NewEnvelope returns an Envelope with the given poles and zero state.
func NewEnvelope(attack, release float64) Envelope {
	return Envelope{Attack: attack, Release: release}
}

// Step advances the envelope by one sample (or one block, when used as a
// block-rate smoother) and returns the new value.
func (e *Envelope) Step(x float64) float64 {
	c := e.Release
	if x > e.Y {
		c = e.Attack
	}
	e.Y += c * (x - e.Y)
	return e.Y
}

// Reset clears the envelope state.
func (e *Envelope) Reset() {
	e.Y = 0
}
