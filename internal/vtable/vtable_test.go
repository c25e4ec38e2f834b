package vtable_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seantiz/warp/internal/vtable"
)

type counter struct {
	hits *int
}

func (c counter) Call(n int) { *c.hits += n }

type deviceCounter struct {
	host   *int
	device *int
}

func (d deviceCounter) Call(n int)       { *d.host += n }
func (d deviceCounter) CallDevice(n int) { *d.device += n }

type tracked struct {
	destroyed *int
	err       error
}

func (tr tracked) Call(int) {}
func (tr tracked) Destroy() error {
	*tr.destroyed++
	return tr.err
}

type panicky struct{}

func (panicky) Call(int)       {}
func (panicky) Destroy() error { panic("boom") }

type moved struct {
	generation int
	moves      *int
}

func (m moved) Call(int) {}
func (m moved) Relocate() moved {
	*m.moves++
	return moved{generation: m.generation + 1, moves: m.moves}
}

type empty struct{}

func (empty) Call(int) {}

func TestForReturnsSameTable(t *testing.T) {
	a := vtable.For[counter, int]()
	b := vtable.For[counter, int]()
	assert.Same(t, a, b)

	other := vtable.For[deviceCounter, int]()
	assert.NotEqual(t, a.Name(), other.Name())
}

func TestForDistinguishesArgumentTypes(t *testing.T) {
	s := vtable.For[vtable.Func[string], string]()
	f := vtable.For[vtable.Func[float64], float64]()
	assert.NotEqual(t, s.Name(), f.Name())
	assert.GreaterOrEqual(t, vtable.Registered(), 2)
}

func TestTableFootprint(t *testing.T) {
	tbl := vtable.For[counter, int]()
	assert.Equal(t, uintptr(8), tbl.Size())
	assert.Equal(t, uintptr(8), tbl.Align())

	// Zero-sized types still occupy storage.
	assert.Equal(t, uintptr(1), vtable.For[empty, int]().Size())
}

func TestInvokeHost(t *testing.T) {
	hits := 0
	tbl := vtable.For[counter, int]()
	var slot vtable.Slot
	tbl.Construct(&slot, counter{hits: &hits})

	tbl.InvokeHost(&slot, 3)
	tbl.InvokeHost(&slot, 4)
	assert.Equal(t, 7, hits)
}

func TestInvokeDevice(t *testing.T) {
	var host, device int
	tbl := vtable.For[deviceCounter, int]()
	require.True(t, tbl.DeviceCapable())

	var slot vtable.Slot
	tbl.Construct(&slot, deviceCounter{host: &host, device: &device})
	require.NoError(t, tbl.InvokeDevice(&slot, 5))
	tbl.InvokeHost(&slot, 1)

	assert.Equal(t, 1, host)
	assert.Equal(t, 5, device)
}

func TestInvokeDeviceHostOnly(t *testing.T) {
	hits := 0
	tbl := vtable.For[counter, int]()
	assert.False(t, tbl.DeviceCapable())

	var slot vtable.Slot
	tbl.Construct(&slot, counter{hits: &hits})
	err := tbl.InvokeDevice(&slot, 1)
	assert.ErrorIs(t, err, vtable.ErrHostOnly)
	assert.Zero(t, hits)
}

func TestAdapters(t *testing.T) {
	got := 0
	fn := vtable.For[vtable.Func[int], int]()
	kernel := vtable.For[vtable.Kernel[int], int]()
	assert.False(t, fn.DeviceCapable())
	assert.True(t, kernel.DeviceCapable())

	var slot vtable.Slot
	kernel.Construct(&slot, vtable.Kernel[int](func(n int) { got += n }))
	require.NoError(t, kernel.InvokeDevice(&slot, 2))
	kernel.InvokeHost(&slot, 3)
	assert.Equal(t, 5, got)
}

func TestRelocateMovesState(t *testing.T) {
	hits := 0
	tbl := vtable.For[counter, int]()
	var src, dst vtable.Slot
	tbl.Construct(&src, counter{hits: &hits})

	require.NoError(t, tbl.Relocate(&dst, &src))
	assert.True(t, src.Empty())
	assert.False(t, dst.Empty())

	tbl.InvokeHost(&dst, 1)
	assert.Equal(t, 1, hits)
}

func TestRelocateUsesRelocator(t *testing.T) {
	moves := 0
	tbl := vtable.For[moved, int]()
	var a, b, c vtable.Slot
	tbl.Construct(&a, moved{moves: &moves})

	require.NoError(t, tbl.Relocate(&b, &a))
	require.NoError(t, tbl.Relocate(&c, &b))
	assert.Equal(t, 2, moves)
	assert.True(t, a.Empty())
	assert.True(t, b.Empty())
}

type stuck struct {
	hits *int
}

func (s stuck) Call(n int)      { *s.hits += n }
func (s stuck) Relocate() stuck { panic("cannot move") }

func TestRelocateFailureLeavesSlots(t *testing.T) {
	hits := 0
	tbl := vtable.For[stuck, int]()
	var src, dst vtable.Slot
	tbl.Construct(&src, stuck{hits: &hits})

	err := tbl.Relocate(&dst, &src)
	require.ErrorIs(t, err, vtable.ErrRelocate)
	assert.Contains(t, err.Error(), "cannot move")
	assert.False(t, src.Empty())
	assert.True(t, dst.Empty())

	tbl.InvokeHost(&src, 2)
	assert.Equal(t, 2, hits)
}

func TestDestroy(t *testing.T) {
	destroyed := 0
	tbl := vtable.For[tracked, int]()
	var slot vtable.Slot
	tbl.Construct(&slot, tracked{destroyed: &destroyed})

	require.NoError(t, tbl.Destroy(&slot))
	assert.Equal(t, 1, destroyed)
	assert.True(t, slot.Empty())

	// An empty slot has nothing left to destroy.
	require.NoError(t, tbl.Destroy(&slot))
	assert.Equal(t, 1, destroyed)
}

func TestDestroyReportsFailure(t *testing.T) {
	destroyed := 0
	sentinel := errors.New("close failed")
	tbl := vtable.For[tracked, int]()
	var slot vtable.Slot
	tbl.Construct(&slot, tracked{destroyed: &destroyed, err: sentinel})

	assert.ErrorIs(t, tbl.Destroy(&slot), sentinel)
	assert.True(t, slot.Empty())
}

func TestDestroyRecoversPanic(t *testing.T) {
	tbl := vtable.For[panicky, int]()
	var slot vtable.Slot
	tbl.Construct(&slot, panicky{})

	err := tbl.Destroy(&slot)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.True(t, slot.Empty())
}
