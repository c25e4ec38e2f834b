// Package arena implements the contiguous, growable storage that holds erased
// work items back to back. Items are addressed by byte offset; the arena never
// interprets an item's contents and moves items only through their dispatch
// tables.
package arena

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/seantiz/warp/internal/vtable"
)

// SlotBytes is the addressing granularity of the arena. Every item starts on
// a slot boundary.
const SlotBytes uintptr = 8

// DefaultGrowthFactor is the capacity multiplier applied when the arena grows.
const DefaultGrowthFactor = 2.0

// minGrowBytes is the smallest region allocated on first growth.
const minGrowBytes uintptr = 64

// ErrAllocation is returned when the arena cannot grow to the requested size.
// The arena is left exactly as it was before the failing call.
var ErrAllocation = errors.New("arena allocation failed")

// Config tunes arena growth.
type Config struct {
	// GrowthFactor multiplies the current capacity on growth. Values below 1
	// fall back to DefaultGrowthFactor.
	GrowthFactor float64

	// InitialBytes pre-sizes the arena.
	InitialBytes uintptr

	// MaxBytes caps the capacity. Zero means unbounded.
	MaxBytes uintptr
}

// Record locates one stored item and the table that manipulates it.
type Record[A any] struct {
	Offset uintptr
	Table  vtable.Table[A]
	Cost   int
}

// Arena owns a contiguous region of slots and the ordered records of the
// items stored in it. It is not safe for concurrent mutation.
type Arena[A any] struct {
	slots   []vtable.Slot
	used    uintptr
	records []Record[A]
	growth  float64
	limit   uintptr
	grows   int
}

// New creates an empty arena.
func New[A any](cfg Config) (*Arena[A], error) {
	a := &Arena[A]{
		growth: cfg.GrowthFactor,
		limit:  cfg.MaxBytes,
	}
	if a.growth < 1 {
		a.growth = DefaultGrowthFactor
	}
	if cfg.InitialBytes > 0 {
		if err := a.Reserve(cfg.InitialBytes); err != nil {
			return nil, err
		}
		a.grows = 0
	}
	return a, nil
}

// Len returns the number of stored items.
func (a *Arena[A]) Len() int { return len(a.records) }

// Used returns the number of bytes up to the end of the last item.
func (a *Arena[A]) Used() uintptr { return a.used }

// Cap returns the capacity of the current region in bytes.
func (a *Arena[A]) Cap() uintptr { return uintptr(len(a.slots)) * SlotBytes }

// Grows returns how many times the arena has moved to a larger region.
func (a *Arena[A]) Grows() int { return a.grows }

// Record returns the i-th record in invocation order.
func (a *Arena[A]) Record(i int) Record[A] { return a.records[i] }

// At returns the slot stored at offset. Offsets are only valid until the next
// growth; callers must look them up again from the records afterwards.
func (a *Arena[A]) At(offset uintptr) *vtable.Slot {
	return &a.slots[offset/SlotBytes]
}

// Reserve ensures room for additional bytes past the current cursor. When the
// region is too small a larger one is allocated first, then every item is
// relocated into it in ascending offset order and its record updated.
//
// Growth either completes or leaves the arena unchanged. If an item fails to
// relocate, the items already moved are put back into their old slots and an
// error wrapping ErrAllocation and vtable.ErrRelocate is returned.
func (a *Arena[A]) Reserve(additional uintptr) error {
	need := a.used + additional
	if need <= a.Cap() {
		return nil
	}

	size := alignUp(max(uintptr(float64(a.Cap())*a.growth), need, minGrowBytes), SlotBytes)
	if a.limit > 0 {
		ceiling := a.limit / SlotBytes * SlotBytes
		if need > ceiling {
			return fmt.Errorf("%w: need %d bytes, limit is %d", ErrAllocation, need, a.limit)
		}
		size = min(size, ceiling)
	}

	next := make([]vtable.Slot, size/SlotBytes)

	order := make([]int, len(a.records))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(x, y int) int {
		return cmp.Compare(a.records[x].Offset, a.records[y].Offset)
	})

	offsets := make([]uintptr, len(a.records))
	var cursor uintptr
	for k, i := range order {
		rec := a.records[i]
		off := alignUp(cursor, slotAlign(rec.Table.Align()))
		if err := rec.Table.Relocate(&next[off/SlotBytes], &a.slots[rec.Offset/SlotBytes]); err != nil {
			a.unwind(next, order[:k], offsets)
			return fmt.Errorf("%w: item %d: %w", ErrAllocation, i, err)
		}
		offsets[i] = off
		cursor = off + rec.Table.Size()
	}

	for i := range a.records {
		a.records[i].Offset = offsets[i]
	}
	a.slots = next
	a.used = cursor
	a.grows++
	return nil
}

// unwind moves the items listed in moved from next back to their current
// record offsets. The values are copied as they are, without another
// Relocate call.
func (a *Arena[A]) unwind(next []vtable.Slot, moved []int, offsets []uintptr) {
	for _, i := range moved {
		a.slots[a.records[i].Offset/SlotBytes] = next[offsets[i]/SlotBytes]
		next[offsets[i]/SlotBytes] = vtable.Slot{}
	}
}

// Place reserves size bytes at the given alignment and returns their offset.
func (a *Arena[A]) Place(size, align uintptr) (uintptr, error) {
	if size == 0 {
		size = 1
	}
	al := slotAlign(align)
	pad := alignUp(a.used, al) - a.used
	if err := a.Reserve(pad + size); err != nil {
		return 0, err
	}
	off := alignUp(a.used, al)
	a.used = off + size
	return off, nil
}

// Append records an item already constructed at offset.
func (a *Arena[A]) Append(offset uintptr, table vtable.Table[A], cost int) {
	a.records = append(a.records, Record[A]{Offset: offset, Table: table, Cost: cost})
}

// GrowRecords pre-sizes the record list for n more items.
func (a *Arena[A]) GrowRecords(n int) {
	a.records = slices.Grow(a.records, n)
}

// Reorder stably sorts the records with cmp. Storage is not touched; only the
// invocation order changes.
func (a *Arena[A]) Reorder(cmp func(x, y Record[A]) int) {
	slices.SortStableFunc(a.records, cmp)
}

// Take moves the region and records into a new arena and leaves the receiver
// empty.
// No item is relocated.
func (a *Arena[A]) Take() *Arena[A] {
	moved := *a
	*a = Arena[A]{growth: a.growth, limit: a.limit}
	return &moved
}

// Destroy destroys every stored item and releases the region. A failing
// destroy does not stop the others; all failures are returned joined.
func (a *Arena[A]) Destroy() error {
	var errs []error
	for i, rec := range a.records {
		if err := rec.Table.Destroy(a.At(rec.Offset)); err != nil {
			errs = append(errs, fmt.Errorf("item %d (%s): %w", i, rec.Table.Name(), err))
		}
	}
	a.slots = nil
	a.records = nil
	a.used = 0
	return errors.Join(errs...)
}

func slotAlign(align uintptr) uintptr {
	if align <= SlotBytes {
		return SlotBytes
	}
	return alignUp(align, SlotBytes)
}

func alignUp(n, align uintptr) uintptr {
	return (n + align - 1) / align * align
}

