package main

import (
	"fmt"

	"github.com/cwbudde/algo-stems/internal/config"
	"github.com/cwbudde/algo-stems/separate/neural"
	"github.com/cwbudde/algo-stems/separate/neural/spectral"
)

// newBackends builds the configured backends in preference order.
func newBackends(names []string, sampleRate float64) ([]neural.Backend, error) {
	out := make([]neural.Backend, 0, len(names))
	for _, name := range names {
		switch name {
		case config.BackendSpectral:
			out = append(out, spectral.NewBackend(spectral.WithSampleRate(sampleRate)))
		case config.BackendIdentity:
			out = append(out, neural.IdentityBackend{})
		default:
			return nil, fmt.Errorf("unknown backend %q", name)
		}
	}
	return out, nil
}
