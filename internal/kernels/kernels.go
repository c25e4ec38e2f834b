// Package kernels provides the built-in work groups that the API and the
// benchmark binary run. Each kernel splits a vector into chunks and adds one
// work item per chunk.
package kernels

import (
	"errors"
	"fmt"
	"slices"
)

// Kernel names.
const (
	KernelAxpy = "axpy"
	KernelSum  = "sum"
	KernelFill = "fill"
)

// Size limits for a kernel spec.
const (
	MaxLength     = 1 << 24
	DefaultChunks = 64
)

var (
	// ErrUnknownKernel is returned for a kernel name not in Names.
	ErrUnknownKernel = errors.New("unknown kernel")

	// ErrInvalidSpec is returned for out-of-range spec sizes.
	ErrInvalidSpec = errors.New("invalid kernel spec")
)

// Names lists the available kernels.
func Names() []string {
	return []string{KernelAxpy, KernelFill, KernelSum}
}

// Spec selects and sizes a kernel.
type Spec struct {
	Kernel string  `json:"kernel"`
	Length int     `json:"length"`
	Chunks int     `json:"chunks,omitempty"`
	Alpha  float64 `json:"alpha,omitempty"`
	Value  float64 `json:"value,omitempty"`
}

// Args is passed unchanged to every item of a kernel queue.
type Args struct {
	Alpha float64
	Value float64
}

// Validate checks the spec and fills in defaults.
func (s *Spec) Validate() error {
	if !slices.Contains(Names(), s.Kernel) {
		return fmt.Errorf("%w %q: must be one of %v", ErrUnknownKernel, s.Kernel, Names())
	}
	if s.Length <= 0 || s.Length > MaxLength {
		return fmt.Errorf("%w: length must be in [1, %d]", ErrInvalidSpec, MaxLength)
	}
	if s.Chunks < 0 {
		return fmt.Errorf("%w: chunks must not be negative", ErrInvalidSpec)
	}
	if s.Chunks == 0 {
		s.Chunks = DefaultChunks
	}
	s.Chunks = min(s.Chunks, s.Length)
	return nil
}

// chunkBounds returns the half-open range of chunk c out of n over length.
func chunkBounds(c, n, length int) (lo, hi int) {
	return c * length / n, (c + 1) * length / n
}
