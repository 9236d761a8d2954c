// Package metrics exposes Prometheus collectors for the HTTP layer and the
// upload pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "imgrelay"

// Metrics groups every collector the service reports. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	stageDuration   *prometheus.HistogramVec
	uploads         *prometheus.CounterVec
	cleanupFailures prometheus.Counter
}

// MustNewMetrics registers the collectors with reg and panics on duplicate
// registration, mirroring promauto. Pass a fresh registry in tests.
func MustNewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method, route pattern and status code.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by method and route pattern.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "upload",
				Name:      "stage_duration_seconds",
				Help:      "Time spent in each upload pipeline stage.",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage", "status"},
		),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Upload pipeline invocations by profile and result.",
			},
			[]string{"profile", "result"},
		),
		cleanupFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cleanup_failures_total",
				Help:      "Temporary files that could not be deleted.",
			},
		),
	}

	reg.MustRegister(m.httpRequests, m.httpDuration, m.stageDuration, m.uploads, m.cleanupFailures)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveStage records the duration of one pipeline stage.
func (m *Metrics) ObserveStage(stage string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.stageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

// IncUpload counts one finished pipeline invocation.
func (m *Metrics) IncUpload(profile, result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(profile, result).Inc()
}

// AddCleanupFailures counts temporary files left behind.
func (m *Metrics) AddCleanupFailures(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cleanupFailures.Add(float64(n))
}
