// Package pool provides the parallel host execution context: a bounded
// worker fan-out over the items of a launch.
package pool

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/seantiz/warp/internal/backend"
)

// BackendName is the name used when registering with the backend registry.
const BackendName = "parallel"

// ErrPoolClosed is reported by launches made after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Backend runs items on up to Workers goroutines. Launch blocks until every
// item has run.
type Backend struct {
	name    string
	workers int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a pool backend. A non-positive workers count uses GOMAXPROCS.
func New(name string, workers int) *Backend {
	if name == "" {
		name = BackendName
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Backend{name: name, workers: workers}
}

// Launch fans the items out over the pool. Items are independent and may
// finish in any order. Every item runs even if another fails.
func (b *Backend) Launch(ctx context.Context, n int, body backend.Body) *backend.Completion {
	if err := ctx.Err(); err != nil {
		return backend.Completed(n, err)
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return backend.Completed(n, ErrPoolClosed)
	}
	b.wg.Add(1)
	b.mu.RUnlock()
	defer b.wg.Done()

	c := backend.NewCompletion(n)

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(b.workers)
	for i := range n {
		g.Go(func() error {
			if err := body(i); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	c.Finish(errors.Join(errs...))
	return c
}

// Capabilities reports a synchronous, unordered host context.
func (b *Backend) Capabilities() backend.Capabilities {
	return backend.Capabilities{
		Name:           b.name,
		Target:         backend.TargetHost,
		Completion:     backend.CompletionSync,
		MaxConcurrency: b.workers,
	}
}

// Close rejects new launches and waits for those still running on other
// goroutines.
func (b *Backend) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
