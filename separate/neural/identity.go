package neural

import (
	"context"
	"strings"
)

// IdentityLocator selects the identity backend.
const IdentityLocator = "builtin:identity"

// IdentityBackend serves a model that returns its input unchanged. With it
// the pipeline reduces to pure overlap-add resynthesis.
type IdentityBackend struct{}

// Name implements Backend.
func (IdentityBackend) Name() string { return "identity" }

// Open implements Backend.
func (IdentityBackend) Open(_ context.Context, locator string) (Model, error) {
	if strings.TrimSpace(locator) != IdentityLocator {
		return nil, ErrUnsupportedLocator
	}
	return ModelFunc(identityRun), nil
}

func identityRun(_ context.Context, feeds map[string]Tensor) (map[string]Tensor, error) {
	in, ok := feeds[InputName]
	if !ok {
		return nil, ErrMissingInput
	}
	return map[string]Tensor{"output": in}, nil
}
