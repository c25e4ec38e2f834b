package workgroup

// Option configures a Builder.
type Option func(*options)

type options struct {
	name          string
	growth        float64
	initialBytes  uintptr
	maxBytes      uintptr
	requireDevice bool
	orderByCost   bool
}

// WithName labels the queue produced by the builder.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithGrowthFactor sets the storage capacity multiplier applied on growth.
func WithGrowthFactor(f float64) Option {
	return func(o *options) { o.growth = f }
}

// WithInitialStorage pre-sizes storage to n bytes.
func WithInitialStorage(n uintptr) Option {
	return func(o *options) { o.initialBytes = n }
}

// WithMaxStorage caps storage at n bytes. Adds that would exceed the cap
// fail with ErrAllocation.
func WithMaxStorage(n uintptr) Option {
	return func(o *options) { o.maxBytes = n }
}

// RequireDevice makes Add reject item types that cannot run on a device.
func RequireDevice() Option {
	return func(o *options) { o.requireDevice = true }
}

// OrderByCost makes Finalize order items by descending Cost. Items that do
// not implement vtable.Coster have cost zero. Ties keep insertion order.
func OrderByCost() Option {
	return func(o *options) { o.orderByCost = true }
}
