package vtable

// Callable is a work item that can be invoked on the host with the queue's
// uniform argument set.
type Callable[A any] interface {
	Call(args A)
}

// DeviceCallable is a Callable that can also be invoked from a device lane.
type DeviceCallable[A any] interface {
	Callable[A]
	CallDevice(args A)
}

// Destroyer is implemented by work items that own resources which must be
// released when the item leaves storage.
type Destroyer interface {
	Destroy() error
}

// Relocator is implemented by work items whose state depends on where they
// are stored. Relocate returns the value to store at the new location; the
// old location is then cleared without being destroyed.
type Relocator[T any] interface {
	Relocate() T
}

// Coster reports a relative cost estimate for a work item. Builders created
// with cost ordering run expensive items first.
type Coster interface {
	Cost() int
}

// Func adapts a plain function to a host-only Callable.
type Func[A any] func(A)

// Call invokes f.
func (f Func[A]) Call(args A) { f(args) }

// Kernel adapts a plain function to a DeviceCallable. The same body runs on
// both the host and the device path.
type Kernel[A any] func(A)

// Call invokes k on the host.
func (k Kernel[A]) Call(args A) { k(args) }

// CallDevice invokes k from a device lane.
func (k Kernel[A]) CallDevice(args A) { k(args) }
