package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "avyrss"

// Metrics holds the Prometheus counters, histograms, and gauges for fetching,
// storage, feed generation and migration.
type Metrics struct {
	// Upstream fetches.
	FetchRequests *prometheus.CounterVec // labels: outcome={success,error}
	FetchDuration prometheus.Histogram

	// Storage.
	ForecastsSaved prometheus.Counter
	CorruptSkipped prometheus.Counter
	CacheLookups   *prometheus.CounterVec // labels: result={hit,miss}

	// Feeds and batches.
	FeedsGenerated *prometheus.CounterVec   // labels: outcome={success,error}
	BatchDuration  *prometheus.HistogramVec // labels: operation={download_all,generate_all_feeds,full_update}
	MigrationFiles *prometheus.CounterVec   // labels: outcome={copied,skipped,failed}

	// Notifications and scheduling.
	NotificationsPublished *prometheus.CounterVec // labels: outcome={success,error}
	SchedulerRunning       prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Forecast API requests by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Forecast API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ForecastsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_saved_total",
			Help:      "Forecast payloads written to the store.",
		}),
		CorruptSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corrupt_forecasts_skipped_total",
			Help:      "Stored forecast files skipped because they could not be parsed.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Read cache lookups by result.",
		}, []string{"result"}),
		FeedsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feeds_generated_total",
			Help:      "Feed generations by outcome.",
		}, []string{"outcome"}),
		BatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Duration of batch operations in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"operation"}),
		MigrationFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migration_files_total",
			Help:      "Files handled by migration, by outcome.",
		}, []string{"outcome"}),
		NotificationsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_published_total",
			Help:      "Forecast-saved notifications published, by outcome.",
		}, []string{"outcome"}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 when the periodic updater is active, 0 otherwise.",
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.ForecastsSaved,
		m.CorruptSkipped,
		m.CacheLookups,
		m.FeedsGenerated,
		m.BatchDuration,
		m.MigrationFiles,
		m.NotificationsPublished,
		m.SchedulerRunning,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as many
// as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
