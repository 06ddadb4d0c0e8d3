package fetcher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the archiver.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	DownloadsTotal  prometheus.Counter
	SkipsTotal      *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archiver_requests_total",
			Help: "Total HTTP requests issued by the archiver.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "archiver_request_duration_seconds",
			Help:    "HTTP request latency for archiver requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	downloads := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "archiver_downloads_total",
			Help: "Total number of comic images written to disk.",
		},
	)
	skips := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archiver_skips_total",
			Help: "Total number of comics skipped by reason.",
		},
		[]string{"reason"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archiver_errors_total",
			Help: "Total number of archiver errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, downloads, skips, errorsTotal)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		DownloadsTotal:  downloads,
		SkipsTotal:      skips,
		ErrorsTotal:     errorsTotal,
	}
}

// IncRequest increments the requests total counter for a phase.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncDownload increments the downloads counter.
func (m *Metrics) IncDownload() {
	if m == nil {
		return
	}
	m.DownloadsTotal.Inc()
}

// IncSkip increments the skips counter for a reason label.
func (m *Metrics) IncSkip(reason string) {
	if m == nil {
		return
	}
	m.SkipsTotal.WithLabelValues(reason).Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
