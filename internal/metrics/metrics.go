// Package metrics publishes the gateway's Prometheus series
// (SPEC_FULL.md §4.J), grounded on the pack's prometheus/client_golang
// registry pattern.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements gateway.Metrics against a Prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	requests           *prometheus.CounterVec
	phaseDuration      *prometheus.HistogramVec
	middlewareFailures *prometheus.CounterVec
}

// NewRecorder creates a fresh Prometheus registry and registers the
// gateway's three series on it.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubeware_requests_total",
			Help: "Total requests served, labeled by final HTTP status.",
		},
		[]string{"status"},
	)

	phaseDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kubeware_phase_duration_seconds",
			Help:    "Wall-clock duration of each orchestration phase.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)

	middlewareFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubeware_middleware_failures_total",
			Help: "Middleware call failures, labeled by endpoint URL and failure kind.",
		},
		[]string{"url", "kind"},
	)

	reg.MustRegister(requests, phaseDuration, middlewareFailures)

	return &Recorder{
		registry:           reg,
		requests:           requests,
		phaseDuration:      phaseDuration,
		middlewareFailures: middlewareFailures,
	}
}

// Registry exposes the underlying Prometheus registry for the admin
// listener's /metrics handler.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// IncRequest records one completed request under its final HTTP status.
func (r *Recorder) IncRequest(status int) {
	r.requests.WithLabelValues(strconv.Itoa(status)).Inc()
}

// ObservePhase records one phase's wall-clock duration.
func (r *Recorder) ObservePhase(phase string, d time.Duration) {
	r.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// IncMiddlewareFailure records one middleware call failure.
func (r *Recorder) IncMiddlewareFailure(url, kind string) {
	r.middlewareFailures.WithLabelValues(url, kind).Inc()
}
