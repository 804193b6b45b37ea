package sink

import (
	"net/http"
	"time"

	"github.com/adalundhe/dirsentry/core/change"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records change and scan-cycle counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	changes      *prometheus.CounterVec
	cycles       prometheus.Counter
	hashFailures prometheus.Counter
	storeErrors  prometheus.Counter
	trackedFiles prometheus.Gauge
	scanDuration prometheus.Histogram
}

// NewMetrics creates and registers the monitor's collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dirsentry_changes_total",
			Help: "Total number of detected file changes by kind",
		}, []string{"kind"}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dirsentry_scan_cycles_total",
			Help: "Total number of completed scan cycles",
		}),
		hashFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dirsentry_hash_failures_total",
			Help: "Total number of files that could not be read during a scan",
		}),
		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dirsentry_store_errors_total",
			Help: "Total number of failed snapshot saves",
		}),
		trackedFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dirsentry_tracked_files",
			Help: "Number of files in the most recent snapshot",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dirsentry_scan_duration_seconds",
			Help:    "Duration of scan cycles",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}

	m.registry.MustRegister(
		m.changes,
		m.cycles,
		m.hashFailures,
		m.storeErrors,
		m.trackedFiles,
		m.scanDuration,
	)
	return m
}

// Emit counts event by kind.
func (m *Metrics) Emit(event change.Event) {
	m.changes.WithLabelValues(event.Kind.String()).Inc()
}

// ObserveCycle records the outcome of a completed scan cycle.
func (m *Metrics) ObserveCycle(duration time.Duration, files, hashFailures int, storeFailed bool) {
	m.cycles.Inc()
	m.hashFailures.Add(float64(hashFailures))
	m.trackedFiles.Set(float64(files))
	m.scanDuration.Observe(duration.Seconds())
	if storeFailed {
		m.storeErrors.Inc()
	}
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
