package kernels

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seantiz/warp/internal/backend"
	"github.com/seantiz/warp/internal/backend/device"
	"github.com/seantiz/warp/internal/backend/pool"
	"github.com/seantiz/warp/internal/backend/seq"
	"github.com/seantiz/warp/internal/workgroup"
)

func testBackends(t *testing.T) []backend.Backend {
	t.Helper()
	d := device.New("", device.Config{Lanes: 8, QueueDepth: 2}, nil)
	t.Cleanup(func() { _ = d.Close(context.Background()) })
	return []backend.Backend{seq.New(""), pool.New("", 4), d}
}

func runJob(t *testing.T, j *Job, b backend.Backend) {
	t.Helper()
	c, err := j.Run(context.Background(), b)
	require.NoError(t, err)
	require.NoError(t, c.Wait(context.Background()))
}

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name       string
		spec       Spec
		wantErr    error
		wantChunks int
	}{
		{"defaults chunks", Spec{Kernel: KernelSum, Length: 1000}, nil, DefaultChunks},
		{"chunks capped by length", Spec{Kernel: KernelAxpy, Length: 5, Chunks: 10}, nil, 5},
		{"explicit chunks", Spec{Kernel: KernelFill, Length: 100, Chunks: 7}, nil, 7},
		{"unknown kernel", Spec{Kernel: "gemm", Length: 10}, ErrUnknownKernel, 0},
		{"zero length", Spec{Kernel: KernelSum}, ErrInvalidSpec, 0},
		{"too long", Spec{Kernel: KernelSum, Length: MaxLength + 1}, ErrInvalidSpec, 0},
		{"negative chunks", Spec{Kernel: KernelSum, Length: 10, Chunks: -1}, ErrInvalidSpec, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.spec.Validate()
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantChunks, tc.spec.Chunks)
		})
	}
}

func TestChunkBoundsCoverLength(t *testing.T) {
	for _, tc := range []struct{ n, length int }{{1, 10}, {3, 10}, {7, 7}, {64, 1000}} {
		next := 0
		for c := range tc.n {
			lo, hi := chunkBounds(c, tc.n, tc.length)
			assert.Equal(t, next, lo, "chunk %d of %d", c, tc.n)
			assert.LessOrEqual(t, lo, hi)
			next = hi
		}
		assert.Equal(t, tc.length, next)
	}
}

func TestAxpy(t *testing.T) {
	for _, b := range testBackends(t) {
		j, err := Build(Spec{Kernel: KernelAxpy, Length: 1000, Chunks: 16, Alpha: 2})
		require.NoError(t, err)
		assert.True(t, j.DeviceCapable())
		assert.Equal(t, 16, j.Len())

		runJob(t, j, b)

		for i, v := range j.Output() {
			want := 2*float64(i%10) + 1
			if v != want {
				t.Fatalf("%s: y[%d] = %g, want %g", b.Capabilities().Name, i, v, want)
			}
		}
		require.NoError(t, j.Release())
	}
}

func TestSum(t *testing.T) {
	const n = 12345
	var want float64
	for i := range n {
		want += float64(i % 10)
	}

	for _, b := range testBackends(t) {
		j, err := Build(Spec{Kernel: KernelSum, Length: n, Chunks: 37})
		require.NoError(t, err)

		runJob(t, j, b)
		assert.Equal(t, want, j.Total(), b.Capabilities().Name)
		assert.Contains(t, j.Summary(), "sum = ")

		// Summing is pure, so a second run gives the same answer.
		runJob(t, j, b)
		assert.Equal(t, want, j.Total(), b.Capabilities().Name)
		require.NoError(t, j.Release())
	}
}

func TestFillIsHostOnly(t *testing.T) {
	j, err := Build(Spec{Kernel: KernelFill, Length: 100, Chunks: 4, Value: 3.5})
	require.NoError(t, err)
	defer j.Release()

	assert.False(t, j.DeviceCapable())

	d := device.New("", device.Config{Lanes: 2}, nil)
	defer d.Close(context.Background())
	_, err = j.Run(context.Background(), d)
	require.ErrorIs(t, err, workgroup.ErrCapabilityMismatch)

	runJob(t, j, seq.New(""))
	for i, v := range j.Output() {
		if v != 3.5 {
			t.Fatalf("out[%d] = %g, want 3.5", i, v)
		}
	}
	assert.Equal(t, "fill: length 100, checksum 350", j.Summary())
}

func TestBuildRejectsInvalidSpec(t *testing.T) {
	_, err := Build(Spec{Kernel: "nope", Length: 10})
	assert.ErrorIs(t, err, ErrUnknownKernel)
}

func TestBuildRespectsStorageLimit(t *testing.T) {
	_, err := Build(Spec{Kernel: KernelSum, Length: 1000, Chunks: 100}, workgroup.WithMaxStorage(64))
	require.Error(t, err)
	assert.ErrorIs(t, err, workgroup.ErrAllocation)
	assert.Contains(t, err.Error(), "build sum")
	// The partial queue was cleared cleanly, so only the add failure is reported.
	assert.NotContains(t, err.Error(), "\n")
}

func TestBuildOrderByCost(t *testing.T) {
	j, err := Build(Spec{Kernel: KernelAxpy, Length: 10, Chunks: 3, Alpha: 1}, workgroup.OrderByCost())
	require.NoError(t, err)
	defer j.Release()

	runJob(t, j, seq.New(""))
	for i, v := range j.Output() {
		assert.Equal(t, float64(i%10)+1, v)
	}
}
