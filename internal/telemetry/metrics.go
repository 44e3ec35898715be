// Package telemetry exports Prometheus metrics for the download service.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mediafetch"

// Metrics holds all service Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	DownloadRequests *prometheus.CounterVec
	DownloadDuration *prometheus.HistogramVec
	DownloadSize     prometheus.Histogram
	ActiveWorkers    prometheus.Gauge
	StrategyAttempts *prometheus.CounterVec
}

// NewMetrics registers the metrics on a private registry, so several
// instances can coexist in one process
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		DownloadRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_requests_total",
			Help:      "Download and stream jobs by terminal status",
		}, []string{"status"}),

		DownloadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_duration_seconds",
			Help:      "Time from admission to terminal state",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}, []string{"status"}),

		DownloadSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_size_bytes",
			Help:      "Size of delivered artifacts",
			Buckets:   prometheus.ExponentialBuckets(1<<20, 4, 8),
		}),

		ActiveWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workers",
			Help:      "Jobs currently holding a concurrency slot",
		}),

		StrategyAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_attempts_total",
			Help:      "Extraction attempts by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveDownload records one finished job
func (m *Metrics) ObserveDownload(status string, duration time.Duration, sizeBytes int64) {
	m.DownloadRequests.WithLabelValues(status).Inc()
	m.DownloadDuration.WithLabelValues(status).Observe(duration.Seconds())
	if sizeBytes > 0 {
		m.DownloadSize.Observe(float64(sizeBytes))
	}
}

// ObserveAttempt records one strategy attempt
func (m *Metrics) ObserveAttempt(outcome string) {
	m.StrategyAttempts.WithLabelValues(outcome).Inc()
}

// SetActiveWorkers updates the active worker gauge
func (m *Metrics) SetActiveWorkers(n int) {
	m.ActiveWorkers.Set(float64(n))
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
