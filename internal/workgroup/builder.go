package workgroup

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"

	"github.com/seantiz/warp/internal/arena"
	"github.com/seantiz/warp/internal/vtable"
)

// Builder accumulates work items for one Queue. It is not safe for concurrent
// use.
type Builder[A any] struct {
	opts      options
	arena     *arena.Arena[A]
	finalized bool
}

// NewBuilder creates an empty builder for items invoked with arguments of
// type A.
func NewBuilder[A any](opts ...Option) (*Builder[A], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	a, err := newArena[A](o)
	if err != nil {
		return nil, fmt.Errorf("create builder: %w", err)
	}
	return &Builder[A]{opts: o, arena: a}, nil
}

func newArena[A any](o options) (*arena.Arena[A], error) {
	return arena.New[A](arena.Config{
		GrowthFactor: o.growth,
		InitialBytes: o.initialBytes,
		MaxBytes:     o.maxBytes,
	})
}

// Add erases item into b's storage. Items are invoked in the order they were
// added unless the builder orders by cost.
func Add[T vtable.Callable[A], A any](b *Builder[A], item T) error {
	if b.finalized {
		return ErrFinalized
	}
	if isNil(item) {
		return ErrNilItem
	}

	table := vtable.For[T, A]()
	if b.opts.requireDevice && !table.DeviceCapable() {
		return fmt.Errorf("add %s: %w: no device entry point", table.Name(), ErrCapabilityMismatch)
	}

	off, err := b.arena.Place(table.Size(), table.Align())
	if err != nil {
		return fmt.Errorf("add %s: %w", table.Name(), err)
	}
	table.Construct(b.arena.At(off), item)

	var cost int
	if c, ok := any(item).(vtable.Coster); ok {
		cost = c.Cost()
	}
	b.arena.Append(off, table, cost)
	return nil
}

// AddFunc adds a host-only function item.
func (b *Builder[A]) AddFunc(fn func(A)) error {
	return Add(b, vtable.Func[A](fn))
}

// AddKernel adds a function item that runs on both host and device backends.
func (b *Builder[A]) AddKernel(fn func(A)) error {
	return Add(b, vtable.Kernel[A](fn))
}

// Reserve pre-sizes the builder for items more items occupying bytes more
// bytes of storage.
func (b *Builder[A]) Reserve(items int, bytes uintptr) error {
	if b.finalized {
		return ErrFinalized
	}
	if items > 0 {
		b.arena.GrowRecords(items)
	}
	if err := b.arena.Reserve(bytes); err != nil {
		return fmt.Errorf("reserve %d bytes: %w", bytes, err)
	}
	return nil
}

// Len returns the number of items added so far.
func (b *Builder[A]) Len() int {
	if b.finalized {
		return 0
	}
	return b.arena.Len()
}

// StorageBytes returns the bytes occupied by the items added so far.
func (b *Builder[A]) StorageBytes() uintptr {
	if b.finalized {
		return 0
	}
	return b.arena.Used()
}

// Grows returns how many times storage moved to a larger region.
func (b *Builder[A]) Grows() int {
	if b.finalized {
		return 0
	}
	return b.arena.Grows()
}

// Clear destroys every item added so far and leaves the builder empty and
// usable. Destroy failures are returned joined after all items are gone.
func (b *Builder[A]) Clear() error {
	if b.finalized {
		return ErrFinalized
	}
	err := b.arena.Destroy()
	a, nerr := newArena[A](b.opts)
	if nerr != nil {
		return errors.Join(err, nerr)
	}
	b.arena = a
	return err
}

// Finalize transfers the items to a new Queue. The builder stays finalized;
// every later call returns ErrFinalized.
func (b *Builder[A]) Finalize() (*Queue[A], error) {
	if b.finalized {
		return nil, ErrFinalized
	}
	if b.opts.orderByCost {
		b.arena.Reorder(func(x, y arena.Record[A]) int {
			return cmp.Compare(y.Cost, x.Cost)
		})
	}
	q := newQueue(b.opts.name, b.arena.Take())
	b.arena = nil
	b.finalized = true
	return q, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Map, reflect.Chan, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
