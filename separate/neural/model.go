package neural

import (
	"context"
	"errors"
)

var (
	// ErrUnsupportedLocator is returned by a Backend that cannot open the
	// given locator.
	ErrUnsupportedLocator = errors.New("neural: unsupported model locator")
	// ErrNoBackend is returned by Load when no backend was supplied.
	ErrNoBackend = errors.New("neural: no backend available")
	// ErrShortOutput is returned when a model produces fewer than 2*N samples.
	ErrShortOutput = errors.New("neural: model output shorter than input")
	// ErrMissingOutput is returned when a model result has no usable tensor.
	ErrMissingOutput = errors.New("neural: model returned no output tensor")
	// ErrMissingInput is returned by a model that finds no feed under the
	// name it expects.
	ErrMissingInput = errors.New("neural: input tensor not bound")
)

// Tensor is a dense float32 tensor.
type Tensor struct {
	Shape []int
	Data  []float32
}

// Model runs inference on named input tensors.
type Model interface {
	Run(ctx context.Context, feeds map[string]Tensor) (map[string]Tensor, error)
	Close() error
}

// Backend opens models for one execution backend. Backends are tried in a
// fixed preference order by Load.
type Backend interface {
	Name() string
	Open(ctx context.Context, locator string) (Model, error)
}

// ModelFunc adapts a function to the Model interface. Close is a no-op.
type ModelFunc func(ctx context.Context, feeds map[string]Tensor) (map[string]Tensor, error)

// Run calls f.
func (f ModelFunc) Run(ctx context.Context, feeds map[string]Tensor) (map[string]Tensor, error) {
	return f(ctx, feeds)
}

// Close implements Model.
func (ModelFunc) Close() error { return nil }
