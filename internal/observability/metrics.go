package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	ReadingsLoaded   prometheus.Counter
	ReadingsIngested prometheus.Counter
	IngestErrors     *prometheus.CounterVec // labels: kind={decoding,malformed,other}
	IngestDuration   prometheus.Histogram
	StoreReadings    prometheus.Gauge
	StoreDates       prometheus.Gauge

	// Query metrics.
	Queries      *prometheus.CounterVec // labels: outcome={data,no_data,invalid_date}
	SummaryCache *prometheus.CounterVec // labels: result={hit,miss}

	// Sink metrics.
	SinkPublished prometheus.Counter
	SinkErrors    prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.ReadingsLoaded,
		m.ReadingsIngested,
		m.IngestErrors,
		m.IngestDuration,
		m.StoreReadings,
		m.StoreDates,
		m.Queries,
		m.SummaryCache,
		m.SinkPublished,
		m.SinkErrors,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReadingsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pm_density",
			Name:      "readings_loaded_total",
			Help:      "Total readings bulk loaded from source files at startup.",
		}),
		ReadingsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pm_density",
			Name:      "readings_ingested_total",
			Help:      "Total readings appended through uploads.",
		}),
		IngestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pm_density",
			Name:      "ingest_errors_total",
			Help:      "Rejected ingestion calls by error kind.",
		}, []string{"kind"}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pm_density",
			Name:      "ingest_duration_seconds",
			Help:      "Duration of a decode-normalize-append cycle.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		StoreReadings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pm_density",
			Name:      "store_readings",
			Help:      "Number of readings held in memory.",
		}),
		StoreDates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pm_density",
			Name:      "store_dates",
			Help:      "Number of distinct dates with readings.",
		}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pm_density",
			Name:      "queries_total",
			Help:      "Summary queries by outcome.",
		}, []string{"outcome"}),
		SummaryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pm_density",
			Name:      "summary_cache_total",
			Help:      "Summary cache lookups by result.",
		}, []string{"result"}),
		SinkPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pm_density",
			Name:      "sink_published_total",
			Help:      "Readings published to the ingest sink.",
		}),
		SinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pm_density",
			Name:      "sink_errors_total",
			Help:      "Failed ingest sink publishes.",
		}),
	}
}
