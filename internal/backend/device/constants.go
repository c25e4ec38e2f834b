package device

// BackendName is the name used when registering with the backend registry.
const BackendName = "device"

// Default stream settings.
const (
	// DefaultLanes is the number of items of one launch executed concurrently.
	DefaultLanes = 32

	// DefaultQueueDepth is the number of launches that may wait on the stream
	// before Launch blocks.
	DefaultQueueDepth = 64
)

// MaxLanes caps the lane count accepted from configuration.
const MaxLanes = 1024
