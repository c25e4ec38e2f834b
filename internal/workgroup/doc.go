// Package workgroup builds and runs type-erased deferred work queues.
//
// A Builder collects callables of arbitrary concrete types that share one
// argument type A. Each item is erased into a contiguous arena together with
// a reference to its dispatch table. Finalize hands the arena to a Queue,
// which invokes every stored item through its table on a chosen backend,
// forwarding the same arguments to each item.
//
//	b, _ := workgroup.NewBuilder[int]()
//	workgroup.Add(b, myItem{})
//	b.AddKernel(func(i int) { out[i] = x[i] * a })
//	q, _ := b.Finalize()
//	defer q.Release()
//	c, err := q.Run(ctx, seq.New(""), 0)
//
// Building is single-goroutine. A finalized Queue may be run concurrently
// from several goroutines; stored items are never mutated by a run.
package workgroup
