// warp-bench builds a kernel work group and runs it on every configured
// backend, printing per-backend timings.
//
// Usage: go run ./cmd/warp-bench -kernel axpy -length 1000000 -chunks 256
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/seantiz/warp/internal/backend"
	"github.com/seantiz/warp/internal/config"
	"github.com/seantiz/warp/internal/kernels"
	"github.com/seantiz/warp/internal/topology"
	"github.com/seantiz/warp/internal/workgroup"
)

func main() {
	var (
		spec    kernels.Spec
		rounds  int
		ordered bool
	)
	flag.StringVar(&spec.Kernel, "kernel", kernels.KernelAxpy, "kernel to run")
	flag.IntVar(&spec.Length, "length", 1<<20, "vector length")
	flag.IntVar(&spec.Chunks, "chunks", kernels.DefaultChunks, "work items per queue")
	flag.Float64Var(&spec.Alpha, "alpha", 2, "axpy scale factor")
	flag.Float64Var(&spec.Value, "value", 1, "fill value")
	flag.IntVar(&rounds, "rounds", 5, "launches per backend")
	flag.BoolVar(&ordered, "order-by-cost", false, "order items by descending cost")
	flag.Parse()

	if err := config.LoadDotenv(); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}
	cfg := config.Load()
	logger := config.NewLogger(io.Discard, cfg.LogLevel)

	specs := config.DefaultBackends(cfg.Workers)
	if cfg.BackendsFile != "" {
		var err error
		if specs, err = config.LoadBackends(cfg.BackendsFile); err != nil {
			log.Fatalf("failed to load backends: %v", err)
		}
	}

	reg, err := topology.Build(specs, logger)
	if err != nil {
		log.Fatalf("failed to build backends: %v", err)
	}
	defer reg.Close(context.Background())

	var opts []workgroup.Option
	if ordered {
		opts = append(opts, workgroup.OrderByCost())
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BACKEND\tTARGET\tITEMS\tSTORAGE\tBEST\tMEAN\tRESULT")
	for _, info := range reg.List() {
		b, err := reg.Resolve(info.Name, true)
		if err != nil {
			log.Fatalf("resolve %s: %v", info.Name, err)
		}
		res, err := bench(b, spec, rounds, opts...)
		switch {
		case errors.Is(err, workgroup.ErrCapabilityMismatch):
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t-\thost-only kernel\n", info.Name, info.Capabilities.Target)
			continue
		case err != nil:
			log.Fatalf("bench %s: %v", info.Name, err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			info.Name,
			info.Capabilities.Target,
			humanize.Comma(int64(res.items)),
			humanize.Bytes(uint64(res.storage)),
			res.best.Round(time.Microsecond),
			res.mean.Round(time.Microsecond),
			res.summary,
		)
	}
	tw.Flush()
}

type result struct {
	items      int
	storage    int64
	best, mean time.Duration
	summary    string
}

// bench builds one queue for spec and launches it rounds times on b.
func bench(b backend.Backend, spec kernels.Spec, rounds int, opts ...workgroup.Option) (result, error) {
	job, err := kernels.Build(spec, opts...)
	if err != nil {
		return result{}, err
	}
	defer job.Release()

	res := result{items: job.Len(), storage: job.StorageBytes()}
	var total time.Duration
	for i := range max(rounds, 1) {
		start := time.Now()
		c, err := job.Run(context.Background(), b)
		if err != nil {
			return result{}, err
		}
		if err := c.Wait(context.Background()); err != nil {
			return result{}, err
		}
		d := time.Since(start)
		total += d
		if i == 0 || d < res.best {
			res.best = d
		}
	}
	res.mean = total / time.Duration(max(rounds, 1))
	res.summary = job.Summary()
	return res, nil
}
