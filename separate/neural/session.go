package neural

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Conventional input binding names. A session starts with InputName and
// falls back to AltInputName.
const (
	InputName    = "input"
	AltInputName = "input_1"
)

// Session is a loaded model plus the tensor binding names negotiated with
// it. It is used by a single inference goroutine.
type Session struct {
	model   Model
	backend string

	inName  string
	outName string
	bound   bool

	feeds     map[string]Tensor
	in        []float32
	closeOnce sync.Once
	closeErr  error
}

// NewSession wraps a model opened by the named backend.
func NewSession(m Model, backend string) *Session {
	return &Session{
		model:   m,
		backend: backend,
		inName:  InputName,
		feeds:   make(map[string]Tensor, 1),
	}
}

// Backend returns the name of the backend that opened the model.
func (s *Session) Backend() string { return s.backend }

// Names returns the cached input and output binding names. Both are empty
// until the first successful call.
func (s *Session) Names() (in, out string) {
	if !s.bound {
		return "", ""
	}
	return s.inName, s.outName
}

// Infer runs the model on one stereo window. l and r hold the windowed
// input; the estimate is written to outL and outR. All four slices must
// have the same length N. The input is bound as a [1,2,N] planar tensor.
//
// The call is made with the cached input name. If it fails, it is retried
// once with the alternate name, and whichever succeeds is cached.
func (s *Session) Infer(ctx context.Context, l, r, outL, outR []float64) error {
	n := len(l)
	if len(r) != n || len(outL) != n || len(outR) != n {
		return fmt.Errorf("neural: mismatched window lengths %d/%d/%d/%d", n, len(r), len(outL), len(outR))
	}

	if cap(s.in) < 2*n {
		s.in = make([]float32, 2*n)
	}
	s.in = s.in[:2*n]
	for i := 0; i < n; i++ {
		s.in[i] = float32(l[i])
		s.in[n+i] = float32(r[i])
	}
	tensor := Tensor{Shape: []int{1, 2, n}, Data: s.in}

	out, err := s.run(ctx, s.inName, tensor)
	if err != nil {
		alt := alternateInput(s.inName)
		out, err = s.run(ctx, alt, tensor)
		if err != nil {
			return err
		}
		s.inName = alt
		s.outName = ""
	}

	y, err := s.pickOutput(out)
	if err != nil {
		return err
	}
	if len(y.Data) < 2*n {
		return fmt.Errorf("%w: got %d samples, want %d", ErrShortOutput, len(y.Data), 2*n)
	}

	for i := 0; i < n; i++ {
		outL[i] = float64(y.Data[i])
		outR[i] = float64(y.Data[n+i])
	}
	s.bound = true
	return nil
}

func (s *Session) run(ctx context.Context, name string, t Tensor) (out map[string]Tensor, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("neural: model panicked: %v", r)
		}
	}()

	clear(s.feeds)
	s.feeds[name] = t
	return s.model.Run(ctx, s.feeds)
}

// pickOutput returns the cached output tensor, choosing the first output
// name in sorted order when none is cached yet.
func (s *Session) pickOutput(out map[string]Tensor) (Tensor, error) {
	if s.outName != "" {
		if y, ok := out[s.outName]; ok {
			return y, nil
		}
	}
	if len(out) == 0 {
		return Tensor{}, ErrMissingOutput
	}

	names := make([]string, 0, len(out))
	for k := range out {
		names = append(names, k)
	}
	sort.Strings(names)
	s.outName = names[0]
	return out[s.outName], nil
}

// Close releases the model. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.model != nil {
			s.closeErr = s.model.Close()
		}
	})
	return s.closeErr
}

func alternateInput(name string) string {
	if name == AltInputName {
		return InputName
	}
	return AltInputName
}
