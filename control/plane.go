package control

import (
	"log/slog"
	"sync/atomic"
)

// Plane publishes the current State to the render path.
// Load is safe from any goroutine and never blocks. Apply and ApplyJSON may
// be called concurrently; each patch is merged atomically.
type Plane struct {
	cur     atomic.Pointer[State]
	version atomic.Uint64
	logger  *slog.Logger
}

// PlaneOption configures a Plane.
type PlaneOption func(*Plane)

// WithLogger sets the logger used to report dropped control messages.
func WithLogger(l *slog.Logger) PlaneOption {
	return func(p *Plane) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPlane returns a Plane holding initial.
func NewPlane(initial State, opts ...PlaneOption) *Plane {
	p := &Plane{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	st := initial
	p.cur.Store(&st)
	return p
}

// Load returns the current snapshot. The returned State must not be
// modified.
func (p *Plane) Load() *State {
	return p.cur.Load()
}

// Version returns the number of patches applied so far.
func (p *Plane) Version() uint64 {
	return p.version.Load()
}

// Apply merges patch into the current state and returns the result.
func (p *Plane) Apply(patch Patch) State {
	for {
		old := p.cur.Load()
		next := old.Merge(patch)
		if p.cur.CompareAndSwap(old, &next) {
			p.version.Add(1)
			return next
		}
	}
}

// ApplyJSON decodes a control message and applies it. A message that is not
// a JSON object is logged and dropped; the state is left unchanged and the
// decode error is returned.
func (p *Plane) ApplyJSON(data []byte) (State, error) {
	patch, err := DecodePatch(data)
	if err != nil {
		p.logger.Warn("dropping control message", "err", err, "bytes", len(data))
		return *p.cur.Load(), err
	}
	return p.Apply(patch), nil
}
