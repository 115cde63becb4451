package neural

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// LoadResult reports the outcome of Load. It serializes as
// {"ok":true,"backend":"spectral"} or {"ok":false,"error":"..."}.
type LoadResult struct {
	OK      bool   `json:"ok"`
	Backend string `json:"backend,omitempty"`
	Error   string `json:"error,omitempty"`
}

// String returns the JSON form.
func (r LoadResult) String() string {
	b, _ := json.Marshal(r)
	return string(b)
}

// Load opens locator with the first backend that accepts it, in the given
// order. It never panics: a panicking backend counts as a failed one. On
// failure the Session is nil and the result carries every backend's error.
func Load(ctx context.Context, locator string, backends ...Backend) (*Session, LoadResult) {
	if len(backends) == 0 {
		return nil, LoadResult{Error: ErrNoBackend.Error()}
	}

	var errs []error
	for _, be := range backends {
		if be == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		m, err := open(ctx, be, locator)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", be.Name(), err))
			continue
		}

		return NewSession(m, be.Name()), LoadResult{OK: true, Backend: be.Name()}
	}

	if len(errs) == 0 {
		errs = append(errs, ErrNoBackend)
	}
	return nil, LoadResult{Error: errors.Join(errs...).Error()}
}

func open(ctx context.Context, be Backend, locator string) (m Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = fmt.Errorf("panic during open: %v", r)
		}
	}()

	m, err = be.Open(ctx, locator)
	if err == nil && m == nil {
		err = errors.New("backend returned nil model")
	}
	return m, err
}
