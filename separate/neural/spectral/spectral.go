package spectral

import (
	"context"
	"fmt"
	"math"
	"strings"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-stems/separate/neural"
	"github.com/cwbudde/algo-vecmath"
)

// Locator selects the spectral backend.
const Locator = "builtin:spectral"

// OutputName is the name of the single output tensor.
const OutputName = "voice"

// Defaults.
const (
	DefaultSampleRate = 48000.0
	DefaultLowHz      = 120.0
	DefaultHighHz     = 7000.0
)

const powerFloor = 1e-18

type config struct {
	sampleRate float64
	low, high  float64
}

// Option configures the spectral model.
type Option func(*config)

// WithSampleRate sets the sample rate used to map bins to frequencies.
func WithSampleRate(sr float64) Option {
	return func(c *config) { c.sampleRate = sr }
}

// WithBand sets the speech band edges in Hz.
func WithBand(lowHz, highHz float64) Option {
	return func(c *config) {
		c.low = lowHz
		c.high = highHz
	}
}

func applyOptions(opts []Option) (config, error) {
	c := config{sampleRate: DefaultSampleRate, low: DefaultLowHz, high: DefaultHighHz}
	for _, o := range opts {
		if o != nil {
			o(&c)
		}
	}
	if c.sampleRate <= 0 || math.IsNaN(c.sampleRate) || math.IsInf(c.sampleRate, 0) {
		return c, fmt.Errorf("spectral: sample rate must be > 0 and finite: %f", c.sampleRate)
	}
	if !(c.low > 0) || !(c.high > c.low) || math.IsInf(c.high, 0) {
		return c, fmt.Errorf("spectral: band must satisfy 0 < low < high: %f..%f", c.low, c.high)
	}
	return c, nil
}

// Backend opens spectral models. It implements neural.Backend.
type Backend struct {
	opts []Option
}

// NewBackend returns a backend whose models use opts.
func NewBackend(opts ...Option) *Backend {
	return &Backend{opts: opts}
}

// Name implements neural.Backend.
func (b *Backend) Name() string { return "spectral" }

// Open implements neural.Backend.
func (b *Backend) Open(_ context.Context, locator string) (neural.Model, error) {
	if strings.TrimSpace(locator) != Locator {
		return nil, neural.ErrUnsupportedLocator
	}
	return New(b.opts...)
}

// Model is the centre-channel mask model. It accepts a [1,2,N] planar
// stereo tensor under either conventional input name and returns a tensor
// of the same shape under OutputName, with the estimate in both channels.
//
// A Model keeps per-size scratch and is not safe for concurrent use.
type Model struct {
	cfg config

	n    int
	plan *algofft.Plan[complex128]
	band []float64

	specL, specR []complex128
	mid          []complex128
	re, im       []float64
	powL, powR   []float64
	mask         []float64
}

// New returns a Model configured by opts.
func New(opts ...Option) (*Model, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Model{cfg: cfg}, nil
}

// Run implements neural.Model.
func (m *Model) Run(ctx context.Context, feeds map[string]neural.Tensor) (map[string]neural.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in, ok := feeds[neural.InputName]
	if !ok {
		in, ok = feeds[neural.AltInputName]
	}
	if !ok {
		return nil, neural.ErrMissingInput
	}

	n := len(in.Data) / 2
	if n < 2 || len(in.Data) != 2*n {
		return nil, fmt.Errorf("spectral: input must hold two equal channels: %d samples", len(in.Data))
	}
	if err := m.prepare(n); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		m.specL[i] = complex(float64(in.Data[i]), 0)
		m.specR[i] = complex(float64(in.Data[n+i]), 0)
	}
	if err := m.plan.Forward(m.specL, m.specL); err != nil {
		return nil, fmt.Errorf("spectral: forward FFT failed: %w", err)
	}
	if err := m.plan.Forward(m.specR, m.specR); err != nil {
		return nil, fmt.Errorf("spectral: forward FFT failed: %w", err)
	}

	split(m.re, m.im, m.specL)
	vecmath.Power(m.powL, m.re, m.im)
	split(m.re, m.im, m.specR)
	vecmath.Power(m.powR, m.re, m.im)

	for k := 0; k < n; k++ {
		l, r := m.specL[k], m.specR[k]
		cross := real(l)*real(r) + imag(l)*imag(r)
		sim := 2 * cross / (m.powL[k] + m.powR[k] + powerFloor)
		if sim < 0 {
			sim = 0
		} else if sim > 1 {
			sim = 1
		}
		m.mask[k] = sim * m.band[k]
		m.mid[k] = (l + r) * complex(0.5*m.mask[k], 0)
	}

	if err := m.plan.Inverse(m.mid, m.mid); err != nil {
		return nil, fmt.Errorf("spectral: inverse FFT failed: %w", err)
	}

	out := make([]float32, 2*n)
	for i := 0; i < n; i++ {
		v := float32(real(m.mid[i]))
		out[i] = v
		out[n+i] = v
	}

	return map[string]neural.Tensor{
		OutputName: {Shape: []int{1, 2, n}, Data: out},
	}, nil
}

// Close implements neural.Model.
func (m *Model) Close() error { return nil }

// Mask returns the mask computed by the last Run, one value per bin. The
// slice is reused by the next call.
func (m *Model) Mask() []float64 { return m.mask }

func (m *Model) prepare(n int) error {
	if n == m.n {
		return nil
	}
	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return fmt.Errorf("spectral: failed to create FFT plan: %w", err)
	}

	m.n = n
	m.plan = plan
	m.specL = make([]complex128, n)
	m.specR = make([]complex128, n)
	m.mid = make([]complex128, n)
	m.re = make([]float64, n)
	m.im = make([]float64, n)
	m.powL = make([]float64, n)
	m.powR = make([]float64, n)
	m.mask = make([]float64, n)
	m.band = BandWeights(n, m.cfg.sampleRate, m.cfg.low, m.cfg.high)
	return nil
}

// BandWeights returns per-bin weights for an n-point FFT: one inside
// [lowHz, highHz], zero below lowHz/2 and above 2*highHz, with raised-cosine
// transitions in between. Bins above n/2 mirror their negative-frequency
// counterparts so that a masked real spectrum stays conjugate-symmetric.
func BandWeights(n int, sampleRate, lowHz, highHz float64) []float64 {
	w := make([]float64, n)
	for k := 0; k < n; k++ {
		bin := k
		if bin > n/2 {
			bin = n - k
		}
		f := float64(bin) * sampleRate / float64(n)
		w[k] = bandWeight(f, lowHz, highHz)
	}
	return w
}

func bandWeight(f, low, high float64) float64 {
	switch {
	case f < low/2 || f > 2*high:
		return 0
	case f < low:
		return raisedCosine((f - low/2) / (low / 2))
	case f > high:
		return raisedCosine((2*high - f) / high)
	default:
		return 1
	}
}

// raisedCosine maps x in [0,1] to a smooth ramp from 0 to 1.
func raisedCosine(x float64) float64 {
	return 0.5 - 0.5*math.Cos(math.Pi*x)
}

func split(re, im []float64, x []complex128) {
	for i, v := range x {
		re[i] = real(v)
		im[i] = imag(v)
	}
}
