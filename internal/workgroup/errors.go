package workgroup

import (
	"errors"

	"github.com/seantiz/warp/internal/arena"
	"github.com/seantiz/warp/internal/vtable"
)

// Sentinel errors for builder and queue misuse.
var (
	// ErrFinalized is returned by every Builder call after Finalize.
	ErrFinalized = errors.New("workgroup: builder already finalized")

	// ErrReleased is returned by every Queue call after Release or Transfer.
	ErrReleased = errors.New("workgroup: queue released")

	// ErrCapabilityMismatch is returned when items are dispatched to a target
	// they have no entry point for.
	ErrCapabilityMismatch = errors.New("workgroup: capability mismatch")

	// ErrItemPanic wraps a panic raised by a work item during a run.
	ErrItemPanic = errors.New("workgroup: work item panicked")

	// ErrNilItem is returned when adding a nil callable.
	ErrNilItem = errors.New("workgroup: nil work item")
)

var (
	// ErrAllocation is returned when storage cannot grow. The builder keeps
	// every item added before the failing call.
	ErrAllocation = arena.ErrAllocation

	// ErrRelocate is joined with ErrAllocation when growth failed because an
	// item's Relocate panicked. No item was moved.
	ErrRelocate = vtable.ErrRelocate
)
