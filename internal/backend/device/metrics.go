package device

import "github.com/prometheus/client_golang/prometheus"

// Metric label values for item status.
const (
	statusCompleted = "completed"
	statusFailed    = "failed"
)

var (
	launchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warp_device_launch_seconds",
			Help:    "Duration of a launch on the device stream, from first item start to last item end, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	queueWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warp_device_queue_wait_seconds",
			Help:    "Time a launch waited on the stream before execution, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	activeLaunches = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warp_device_active_launches",
			Help: "Number of launches currently executing on device streams.",
		},
	)

	itemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warp_device_items_total",
			Help: "Total number of work items executed by device streams.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(launchDuration)
	prometheus.MustRegister(queueWait)
	prometheus.MustRegister(activeLaunches)
	prometheus.MustRegister(itemsTotal)

	// Pre-initialize label combinations so they appear in /metrics from
	// startup with value 0.
	itemsTotal.WithLabelValues(statusCompleted)
	itemsTotal.WithLabelValues(statusFailed)
}
