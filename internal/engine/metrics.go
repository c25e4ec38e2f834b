package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warp_runs_total",
			Help: "Total number of finished runs.",
		},
		[]string{"backend", "status"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warp_run_duration_seconds",
			Help:    "Run duration from start to completion, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	itemsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warp_items_dispatched_total",
			Help: "Total number of work items dispatched to backends.",
		},
		[]string{"backend"},
	)

	runsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warp_runs_in_flight",
			Help: "Number of runs currently executing.",
		},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(itemsDispatched)
	prometheus.MustRegister(runsInFlight)
}
