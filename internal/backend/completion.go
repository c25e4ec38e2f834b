package backend

import (
	"context"
	"sync"
	"time"
)

// Completion is the handle of one launch. It is finished exactly once.
type Completion struct {
	items   int
	started time.Time

	once     sync.Once
	done     chan struct{}
	err      error
	finished time.Time
}

// NewCompletion creates an unfinished completion for a launch of n items.
func NewCompletion(n int) *Completion {
	return &Completion{
		items:   n,
		started: time.Now(),
		done:    make(chan struct{}),
	}
}

// Completed returns an already finished completion.
func Completed(n int, err error) *Completion {
	c := NewCompletion(n)
	c.Finish(err)
	return c
}

// Finish records the outcome and wakes all waiters. Later calls are ignored.
func (c *Completion) Finish(err error) {
	c.once.Do(func() {
		c.err = err
		c.finished = time.Now()
		close(c.done)
	})
}

// Done is closed once the launch has finished.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Finished reports whether the launch has finished.
func (c *Completion) Finished() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the launch finishes or ctx is done. Giving up on the wait
// does not stop the launch.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the launch outcome, or nil while it is still running.
func (c *Completion) Err() error {
	if !c.Finished() {
		return nil
	}
	return c.err
}

// Items returns the number of items in the launch.
func (c *Completion) Items() int {
	return c.items
}

// Duration returns the time from creation to finish, or the time elapsed so
// far for an unfinished launch.
func (c *Completion) Duration() time.Duration {
	if !c.Finished() {
		return time.Since(c.started)
	}
	return c.finished.Sub(c.started)
}
