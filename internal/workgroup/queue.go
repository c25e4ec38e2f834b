package workgroup

import (
	"context"
	"fmt"
	"sync"

	"github.com/seantiz/warp/internal/arena"
	"github.com/seantiz/warp/internal/backend"
	"github.com/seantiz/warp/internal/model"
)

// Queue is a finalized, immutable collection of work items. It owns its
// storage until Release or Transfer.
type Queue[A any] struct {
	id   string
	name string

	mu       sync.RWMutex
	arena    *arena.Arena[A]
	hostOnly int
	released bool
	inflight sync.WaitGroup
}

func newQueue[A any](name string, a *arena.Arena[A]) *Queue[A] {
	q := &Queue[A]{
		id:    model.NewID(),
		name:  name,
		arena: a,
	}
	q.countHostOnly()
	return q
}

func (q *Queue[A]) countHostOnly() {
	q.hostOnly = 0
	for i := range q.arena.Len() {
		if !q.arena.Record(i).Table.DeviceCapable() {
			q.hostOnly++
		}
	}
}

// ID returns the queue's unique identifier. Transfer keeps the ID.
func (q *Queue[A]) ID() string { return q.id }

// Name returns the label given with WithName.
func (q *Queue[A]) Name() string { return q.name }

// Len returns the number of stored items, or zero once released.
func (q *Queue[A]) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.arena.Len()
}

// StorageBytes returns the bytes occupied by the stored items.
func (q *Queue[A]) StorageBytes() uintptr {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.arena.Used()
}

// DeviceCapable reports whether every stored item has a device entry point.
func (q *Queue[A]) DeviceCapable() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.hostOnly == 0
}

// Run invokes every stored item once on b, passing args to each. Items are
// called through the host or device entry point according to b's target.
//
// Whether the returned completion is already finished depends on the
// backend's completion mode. A panicking item is reported as ErrItemPanic
// through the completion; the remaining items still run. Running a queue
// with host-only items on a device backend fails with ErrCapabilityMismatch
// before any item is invoked.
func (q *Queue[A]) Run(ctx context.Context, b backend.Backend, args A) (*backend.Completion, error) {
	q.mu.RLock()
	if q.released {
		q.mu.RUnlock()
		return nil, ErrReleased
	}
	a := q.arena
	hostOnly := q.hostOnly
	q.inflight.Add(1)
	q.mu.RUnlock()

	device := b.Capabilities().Target == backend.TargetDevice
	if device && hostOnly > 0 {
		q.inflight.Done()
		return nil, fmt.Errorf("run on %s: %w: %d of %d items are host-only",
			b.Capabilities().Name, ErrCapabilityMismatch, hostOnly, a.Len())
	}

	body := func(i int) (err error) {
		rec := a.Record(i)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("item %d (%s): %w: %v", i, rec.Table.Name(), ErrItemPanic, r)
			}
		}()
		obj := a.At(rec.Offset)
		if device {
			if err := rec.Table.InvokeDevice(obj, args); err != nil {
				return fmt.Errorf("item %d: %w: %w", i, ErrCapabilityMismatch, err)
			}
			return nil
		}
		rec.Table.InvokeHost(obj, args)
		return nil
	}

	c := b.Launch(ctx, a.Len(), body)
	if c.Finished() {
		q.inflight.Done()
	} else {
		go func() {
			<-c.Done()
			q.inflight.Done()
		}()
	}
	return c, nil
}

// Transfer moves the stored items into a new Queue without relocating them.
// It waits for in-flight runs first. The receiver is released afterwards.
func (q *Queue[A]) Transfer() (*Queue[A], error) {
	if err := q.markReleased(); err != nil {
		return nil, err
	}
	q.inflight.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()
	moved := &Queue[A]{
		id:       q.id,
		name:     q.name,
		arena:    q.arena.Take(),
		hostOnly: q.hostOnly,
	}
	q.hostOnly = 0
	return moved, nil
}

// Release waits for in-flight runs, destroys every stored item exactly once
// and frees the storage. Destroy failures do not stop the remaining items;
// they are returned joined. A second call returns ErrReleased.
func (q *Queue[A]) Release() error {
	if err := q.markReleased(); err != nil {
		return err
	}
	q.inflight.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()
	q.hostOnly = 0
	if err := q.arena.Destroy(); err != nil {
		return fmt.Errorf("release queue %s: %w", q.id, err)
	}
	return nil
}

func (q *Queue[A]) markReleased() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.released {
		return ErrReleased
	}
	q.released = true
	return nil
}

// Bind pairs the queue with fixed arguments.
func (q *Queue[A]) Bind(args A) *Launch[A] {
	return &Launch[A]{q: q, args: args}
}

// Launch is a queue bound to one argument set. It is the unit the engine
// schedules.
type Launch[A any] struct {
	q    *Queue[A]
	args A
}

// QueueID returns the bound queue's ID.
func (l *Launch[A]) QueueID() string { return l.q.ID() }

// Len returns the number of items in the bound queue.
func (l *Launch[A]) Len() int { return l.q.Len() }

// DeviceCapable reports whether the bound queue can run on a device backend.
func (l *Launch[A]) DeviceCapable() bool { return l.q.DeviceCapable() }

// StorageBytes returns the bound queue's storage footprint.
func (l *Launch[A]) StorageBytes() int64 { return int64(l.q.StorageBytes()) }

// Run runs the bound queue with the bound arguments.
func (l *Launch[A]) Run(ctx context.Context, b backend.Backend) (*backend.Completion, error) {
	return l.q.Run(ctx, b, l.args)
}

// Release releases the bound queue.
func (l *Launch[A]) Release() error { return l.q.Release() }
