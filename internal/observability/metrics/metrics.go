// Package metrics exposes Prometheus instruments for the gateway, the rate
// limiter and background jobs. A nil *Registry is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	obserrors "github.com/civicline/civicline-api/internal/observability/errors"
)

// Result constants for metric labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Rate limit decision outcomes.
const (
	DecisionAllowed    = "allowed"
	DecisionLimited    = "limited"
	DecisionFailedOpen = "failed_open"
)

// Registry owns a private Prometheus registry and the application's instruments.
type Registry struct {
	reg *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	authAttempts      *prometheus.CounterVec
	rateLimitDecision *prometheus.CounterVec
	storeErrors       *prometheus.CounterVec
	sweepRuns         *prometheus.CounterVec
	sweepRemoved      prometheus.Counter
	relayPublished    *prometheus.CounterVec
}

// New creates a Registry with Go runtime and process collectors registered.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Login and registration attempts by outcome.",
		}, []string{"endpoint", "outcome"}),
		rateLimitDecision: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_decisions_total",
			Help: "Rate limit checks by endpoint and decision.",
		}, []string{"endpoint", "decision"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Backing store failures by operation and error class.",
		}, []string{"op", "class"}),
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_sweep_runs_total",
			Help: "Rate limit sweeper runs by result.",
		}, []string{"result"}),
		sweepRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ratelimit_sweep_removed_total",
			Help: "Rate limit entries removed by the sweeper.",
		}),
		relayPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_events_total",
			Help: "Relay events by type and delivery result.",
		}, []string{"type", "result"}),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpInFlight,
		r.httpRequestsTotal,
		r.httpRequestDuration,
		r.authAttempts,
		r.rateLimitDecision,
		r.storeErrors,
		r.sweepRuns,
		r.sweepRemoved,
		r.relayPublished,
	)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves the scrape endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Instrument records request count, latency and in-flight gauge. route
// resolves the label for a request after it has been served, so the router's
// matched pattern is available.
func (r *Registry) Instrument(route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if r == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.httpInFlight.Inc()
			defer r.httpInFlight.Dec()
			start := time.Now()

			sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(sw, req)

			status := strconv.Itoa(sw.code)
			label := route(req)
			r.httpRequestDuration.WithLabelValues(req.Method, label, status).Observe(time.Since(start).Seconds())
			r.httpRequestsTotal.WithLabelValues(req.Method, label, status).Inc()
		})
	}
}

// AuthAttempt counts a login or registration outcome.
func (r *Registry) AuthAttempt(endpoint, outcome string) {
	if r == nil {
		return
	}
	r.authAttempts.WithLabelValues(endpoint, outcome).Inc()
}

// RateLimitDecision counts one limiter check.
func (r *Registry) RateLimitDecision(endpoint, decision string) {
	if r == nil {
		return
	}
	r.rateLimitDecision.WithLabelValues(endpoint, decision).Inc()
}

// StoreError counts a backing store failure.
func (r *Registry) StoreError(op string, err error) {
	if r == nil || err == nil {
		return
	}
	r.storeErrors.WithLabelValues(op, obserrors.Classify(err)).Inc()
}

// SweepCompleted records one sweeper pass.
func (r *Registry) SweepCompleted(removed int64, err error) {
	if r == nil {
		return
	}
	switch {
	case err != nil:
		r.sweepRuns.WithLabelValues(ResultError).Inc()
	case removed == 0:
		r.sweepRuns.WithLabelValues(ResultNoop).Inc()
	default:
		r.sweepRuns.WithLabelValues(ResultSuccess).Inc()
	}
	if removed > 0 {
		r.sweepRemoved.Add(float64(removed))
	}
}

// RelayPublished records a relay delivery result.
func (r *Registry) RelayPublished(eventType string, err error) {
	if r == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	r.relayPublished.WithLabelValues(eventType, result).Inc()
}

// statusWriter captures the response code.
type statusWriter struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.code = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
