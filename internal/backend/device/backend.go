// Package device provides an emulated accelerator stream. Launches are queued
// in submission order on a single stream and each launch fans its items out
// over a fixed number of lanes. Launch returns as soon as the launch is
// queued; callers observe completion through the returned handle.
package device

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seantiz/warp/internal/backend"
)

// ErrStreamClosed is returned for launches submitted after Close.
var ErrStreamClosed = errors.New("device stream closed")

// launch is one queued unit of stream work.
type launch struct {
	n        int
	body     backend.Body
	c        *backend.Completion
	queuedAt time.Time
}

// Backend implements backend.Backend as an asynchronous device stream.
type Backend struct {
	name   string
	cfg    Config
	logger *slog.Logger

	mu      sync.RWMutex
	closed  bool
	stream  chan *launch
	drained chan struct{}

	launched atomic.Uint64
}

// New creates a device backend and starts its stream goroutine.
func New(name string, cfg Config, logger *slog.Logger) *Backend {
	if name == "" {
		name = BackendName
	}
	cfg = cfg.normalize()

	b := &Backend{
		name:    name,
		cfg:     cfg,
		logger:  logger,
		stream:  make(chan *launch, cfg.QueueDepth),
		drained: make(chan struct{}),
	}
	go b.run()
	return b
}

// Launch queues n items on the stream and returns immediately. When the
// stream buffer is full Launch blocks until there is room or ctx is done.
func (b *Backend) Launch(ctx context.Context, n int, body backend.Body) *backend.Completion {
	if err := ctx.Err(); err != nil {
		return backend.Completed(n, err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return backend.Completed(n, ErrStreamClosed)
	}

	l := &launch{
		n:        n,
		body:     body,
		c:        backend.NewCompletion(n),
		queuedAt: time.Now(),
	}
	select {
	case b.stream <- l:
		return l.c
	case <-ctx.Done():
		return backend.Completed(n, ctx.Err())
	}
}

// run executes queued launches one at a time, in submission order.
func (b *Backend) run() {
	defer close(b.drained)
	for l := range b.stream {
		b.execute(l)
	}
}

func (b *Backend) execute(l *launch) {
	start := time.Now()
	queueWait.Observe(start.Sub(l.queuedAt).Seconds())
	activeLaunches.Inc()
	defer activeLaunches.Dec()

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(b.cfg.Lanes)
	for i := range l.n {
		g.Go(func() error {
			if err := l.body(i); err != nil {
				itemsTotal.WithLabelValues(statusFailed).Inc()
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			itemsTotal.WithLabelValues(statusCompleted).Inc()
			return nil
		})
	}
	_ = g.Wait()

	launchDuration.Observe(time.Since(start).Seconds())
	seq := b.launched.Add(1)
	err := errors.Join(errs...)
	if b.logger != nil {
		b.logger.Debug("device launch finished",
			"backend", b.name,
			"launch", seq,
			"items", l.n,
			"failed", len(errs),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	l.c.Finish(err)
}

// Capabilities reports an asynchronous device context.
func (b *Backend) Capabilities() backend.Capabilities {
	return backend.Capabilities{
		Name:           b.name,
		Target:         backend.TargetDevice,
		Completion:     backend.CompletionAsync,
		MaxConcurrency: b.cfg.Lanes,
	}
}

// Launched returns the number of launches the stream has finished.
func (b *Backend) Launched() uint64 {
	return b.launched.Load()
}

// Close stops accepting launches and waits until every queued launch has
// finished or ctx is done.
func (b *Backend) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.stream)
	}
	b.mu.Unlock()

	select {
	case <-b.drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
