package kernels

import (
	"errors"
	"fmt"

	"github.com/seantiz/warp/internal/workgroup"
)

// Job is a built kernel queue bound to its arguments. It owns the queue and
// the vectors the items write to.
type Job struct {
	*workgroup.Launch[Args]

	spec     Spec
	x        []float64
	out      []float64
	partials []float64
}

// Build creates the queue for spec and binds it to the spec's arguments.
func Build(spec Spec, opts ...workgroup.Option) (*Job, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	opts = append([]workgroup.Option{workgroup.WithName(spec.Kernel)}, opts...)
	b, err := workgroup.NewBuilder[Args](opts...)
	if err != nil {
		return nil, err
	}
	if err := b.Reserve(spec.Chunks, 0); err != nil {
		return nil, err
	}

	j := &Job{spec: spec, x: input(spec.Length)}
	switch spec.Kernel {
	case KernelAxpy:
		err = j.addAxpy(b)
	case KernelSum:
		err = j.addSum(b)
	case KernelFill:
		err = j.addFill(b)
	}
	if err != nil {
		return nil, errors.Join(fmt.Errorf("build %s: %w", spec.Kernel, err), b.Clear())
	}

	q, err := b.Finalize()
	if err != nil {
		return nil, err
	}
	j.Launch = q.Bind(Args{Alpha: spec.Alpha, Value: spec.Value})
	return j, nil
}

// input returns the deterministic input vector x[i] = i mod 10.
func input(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i % 10)
	}
	return x
}

func (j *Job) addAxpy(b *workgroup.Builder[Args]) error {
	j.out = make([]float64, j.spec.Length)
	for i := range j.out {
		j.out[i] = 1
	}
	for c := range j.spec.Chunks {
		lo, hi := chunkBounds(c, j.spec.Chunks, j.spec.Length)
		if err := workgroup.Add(b, axpyChunk{x: j.x[lo:hi], y: j.out[lo:hi]}); err != nil {
			return err
		}
	}
	return nil
}

func (j *Job) addSum(b *workgroup.Builder[Args]) error {
	j.partials = make([]float64, j.spec.Chunks)
	for c := range j.spec.Chunks {
		lo, hi := chunkBounds(c, j.spec.Chunks, j.spec.Length)
		if err := workgroup.Add(b, sumChunk{x: j.x[lo:hi], out: &j.partials[c]}); err != nil {
			return err
		}
	}
	return nil
}

// addFill adds plain function items, so fill queues are host-only.
func (j *Job) addFill(b *workgroup.Builder[Args]) error {
	j.out = make([]float64, j.spec.Length)
	for c := range j.spec.Chunks {
		lo, hi := chunkBounds(c, j.spec.Chunks, j.spec.Length)
		dst := j.out[lo:hi]
		if err := b.AddFunc(func(a Args) {
			for i := range dst {
				dst[i] = a.Value
			}
		}); err != nil {
			return err
		}
	}
	return nil
}

// Spec returns the validated spec the job was built from.
func (j *Job) Spec() Spec { return j.spec }

// Output returns the vector written by axpy and fill jobs.
func (j *Job) Output() []float64 { return j.out }

// Total returns the reduced result of a sum job.
func (j *Job) Total() float64 {
	var s float64
	for _, p := range j.partials {
		s += p
	}
	return s
}

// Summary describes the job result after a run.
func (j *Job) Summary() string {
	switch j.spec.Kernel {
	case KernelSum:
		return fmt.Sprintf("sum = %g", j.Total())
	default:
		var s float64
		for _, v := range j.out {
			s += v
		}
		return fmt.Sprintf("%s: length %d, checksum %g", j.spec.Kernel, j.spec.Length, s)
	}
}
