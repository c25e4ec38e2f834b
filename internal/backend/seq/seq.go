// Package seq provides the sequential host execution context. Items run one
// at a time on the calling goroutine, in record order.
package seq

import (
	"context"
	"errors"

	"github.com/seantiz/warp/internal/backend"
)

// BackendName is the name used when registering with the backend registry.
const BackendName = "seq"

// Backend invokes every item on the goroutine that calls Launch.
type Backend struct {
	name string
}

// New creates a sequential backend registered under name. An empty name
// falls back to BackendName.
func New(name string) *Backend {
	if name == "" {
		name = BackendName
	}
	return &Backend{name: name}
}

// Launch runs body for each index in order and returns a finished completion.
// Failures do not stop later items; they are joined into the outcome.
func (b *Backend) Launch(ctx context.Context, n int, body backend.Body) *backend.Completion {
	if err := ctx.Err(); err != nil {
		return backend.Completed(n, err)
	}

	c := backend.NewCompletion(n)
	var errs []error
	for i := range n {
		if err := body(i); err != nil {
			errs = append(errs, err)
		}
	}
	c.Finish(errors.Join(errs...))
	return c
}

// Capabilities reports a synchronous, ordered host context.
func (b *Backend) Capabilities() backend.Capabilities {
	return backend.Capabilities{
		Name:           b.name,
		Target:         backend.TargetHost,
		Completion:     backend.CompletionSync,
		MaxConcurrency: 1,
		Ordered:        true,
	}
}

// Close is a no-op; launches finish before Launch returns.
func (b *Backend) Close(_ context.Context) error {
	return nil
}
