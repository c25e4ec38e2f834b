package api

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seantiz/warp/internal/kernels"
)

const unmatched = "unmatched"

// Submission outcomes.
const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warp_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warp_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	runSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warp_http_run_submissions_total",
			Help: "Run submissions by kernel, policy and outcome.",
		},
		[]string{"kernel", "policy", "outcome"},
	)

	eventStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warp_http_event_streams",
			Help: "Number of open run event streams.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(runSubmissions)
	prometheus.MustRegister(eventStreams)
}

// recordSubmission counts one POST /v1/runs. Kernel and policy values that
// were not accepted are folded into "unknown" to bound label cardinality.
func (s *Server) recordSubmission(kernel, policy, outcome string) {
	if !slices.Contains(kernels.Names(), kernel) {
		kernel = "unknown"
	}
	if _, ok := s.policyTarget(policy); !ok {
		policy = "unknown"
	}
	runSubmissions.WithLabelValues(kernel, policy, outcome).Inc()
}

// metricsMiddleware records request count and duration labelled by the chi
// route pattern, not the raw path.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start).Seconds()
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		path := routePattern(r)
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern returns the matched chi route pattern or "unmatched".
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return unmatched
}

// metricsHandler returns the Prometheus metrics handler.
func metricsHandler() http.Handler {
	return promhttp.Handler()
}
