package device

import (
	"os"
	"strconv"
)

// Environment variable names for device stream configuration.
const (
	envLanes      = "WARP_DEVICE_LANES"
	envQueueDepth = "WARP_DEVICE_QUEUE_DEPTH"
)

// Config holds configuration for the emulated device stream.
type Config struct {
	// Lanes is the number of items of one launch executed concurrently.
	Lanes int

	// QueueDepth is the number of launches buffered on the stream.
	QueueDepth int
}

// LoadConfig reads device configuration from environment variables,
// applying defaults for values not set or invalid.
func LoadConfig() Config {
	cfg := Config{
		Lanes:      DefaultLanes,
		QueueDepth: DefaultQueueDepth,
	}

	if v := os.Getenv(envLanes); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Lanes = n
		}
	}
	if v := os.Getenv(envQueueDepth); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.QueueDepth = n
		}
	}

	return cfg.normalize()
}

func (c Config) normalize() Config {
	if c.Lanes <= 0 {
		c.Lanes = DefaultLanes
	}
	if c.Lanes > MaxLanes {
		c.Lanes = MaxLanes
	}
	if c.QueueDepth < 0 {
		c.QueueDepth = 0
	}
	return c
}
