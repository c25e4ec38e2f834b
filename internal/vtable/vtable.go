package vtable

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"
)

var (
	// ErrHostOnly is returned by InvokeDevice for item types without a device
	// entry point.
	ErrHostOnly = errors.New("work item has no device entry point")

	// ErrRelocate is returned by Relocate when an item's Relocator panics.
	// Both slots are left as they were.
	ErrRelocate = errors.New("work item relocation failed")
)

// Slot is one addressable cell of work storage. It holds at most one erased
// work item.
type Slot struct {
	obj any
}

// Empty reports whether the slot holds no item.
func (s *Slot) Empty() bool {
	return s.obj == nil
}

// Table is the dispatch table for one concrete work item type. Implementations
// are immutable and shared; stored items reference their table, never a copy.
type Table[A any] interface {
	// Name is the concrete item type, for diagnostics.
	Name() string

	// Size is the number of bytes an item occupies once erased. Never zero.
	Size() uintptr

	// Align is the alignment the item type requires.
	Align() uintptr

	// DeviceCapable reports whether InvokeDevice can succeed.
	DeviceCapable() bool

	// Relocate moves the item in src to dst and clears src. On error neither
	// slot is changed.
	Relocate(dst, src *Slot) error

	// InvokeHost calls the item on the host. The stored value is not mutated.
	InvokeHost(obj *Slot, args A)

	// InvokeDevice calls the item from a device lane. Returns an error
	// wrapping ErrHostOnly when the type has no device entry point.
	InvokeDevice(obj *Slot, args A) error

	// Destroy releases the item's resources and clears the slot.
	Destroy(obj *Slot) error
}

// Typed is the Table implementation for item type T. It is obtained through
// For and never constructed directly.
type Typed[T Callable[A], A any] struct {
	name   string
	size   uintptr
	align  uintptr
	device bool
}

var _ Table[int] = (*Typed[Func[int], int])(nil)

func newTyped[T Callable[A], A any]() *Typed[T, A] {
	var zero T
	size := unsafe.Sizeof(zero)
	if size == 0 {
		size = 1
	}
	rt := reflect.TypeFor[T]()
	return &Typed[T, A]{
		name:   rt.String(),
		size:   size,
		align:  unsafe.Alignof(zero),
		device: rt.Implements(reflect.TypeFor[DeviceCallable[A]]()),
	}
}

func (t *Typed[T, A]) Name() string        { return t.name }
func (t *Typed[T, A]) Size() uintptr       { return t.size }
func (t *Typed[T, A]) Align() uintptr      { return t.align }
func (t *Typed[T, A]) DeviceCapable() bool { return t.device }

// Construct places v into dst. This is the initial placement of an item and
// does not go through Relocate.
func (t *Typed[T, A]) Construct(dst *Slot, v T) {
	dst.obj = v
}

func (t *Typed[T, A]) Relocate(dst, src *Slot) (err error) {
	v := src.obj.(T)
	if r, ok := any(v).(Relocator[T]); ok {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("relocate %s: %w: %v", t.name, ErrRelocate, p)
			}
		}()
		v = r.Relocate()
	}
	dst.obj = v
	src.obj = nil
	return nil
}

func (t *Typed[T, A]) InvokeHost(obj *Slot, args A) {
	obj.obj.(T).Call(args)
}

func (t *Typed[T, A]) InvokeDevice(obj *Slot, args A) error {
	if !t.device {
		return fmt.Errorf("%s: %w", t.name, ErrHostOnly)
	}
	obj.obj.(DeviceCallable[A]).CallDevice(args)
	return nil
}

func (t *Typed[T, A]) Destroy(obj *Slot) (err error) {
	v := obj.obj
	obj.obj = nil
	if v == nil {
		return nil
	}
	d, ok := v.(Destroyer)
	if !ok {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("destroy %s: panic: %v", t.name, r)
		}
	}()
	return d.Destroy()
}
