package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "timetable_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for timetable reconciliation.
type Metrics struct {
	ReconcileRuns     *prometheus.CounterVec // labels: outcome={success,error}
	ReconcileDuration prometheus.Histogram
	TimetableRows     prometheus.Gauge
	PipelineRunning   prometheus.Gauge

	// Provider metrics.
	ProviderFetches       *prometheus.CounterVec   // labels: source, outcome={success,error}
	ProviderFetchDuration *prometheus.HistogramVec // labels: source
	ProviderEnabled       *prometheus.GaugeVec     // labels: source
	RecordsFetched        *prometheus.CounterVec   // labels: source
	RecordsDropped        *prometheus.CounterVec   // labels: reason

	RowsMerged    prometheus.Counter
	RowsPublished prometheus.Counter
	PublishErrors prometheus.Counter

	// Upstream response cache.
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ReconcileRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_runs_total",
			Help:      "Reconciliation runs by outcome.",
		}, []string{"outcome"}),
		ReconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of a full fetch-normalize-merge-filter run.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		TimetableRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "timetable_rows",
			Help:      "Number of rows in the most recent timetable.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the refresh loop is active, 0 when shut down.",
		}),
		ProviderFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fetches_total",
			Help:      "Provider fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		ProviderFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_fetch_duration_seconds",
			Help:      "Provider fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		ProviderEnabled: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_enabled",
			Help:      "1 when the provider is configured, 0 otherwise.",
		}, []string{"source"}),
		RecordsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_fetched_total",
			Help:      "Raw provider records received by source.",
		}, []string{"source"}),
		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "Provider records rejected during normalization by reason.",
		}, []string{"reason"}),
		RowsMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_merged_total",
			Help:      "Rows folded into another row describing the same leg.",
		}),
		RowsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_published_total",
			Help:      "Timetable rows written to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed timetable publishes.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Upstream response cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.ReconcileRuns,
		m.ReconcileDuration,
		m.TimetableRows,
		m.PipelineRunning,
		m.ProviderFetches,
		m.ProviderFetchDuration,
		m.ProviderEnabled,
		m.RecordsFetched,
		m.RecordsDropped,
		m.RowsMerged,
		m.RowsPublished,
		m.PublishErrors,
		m.CacheLookups,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReconcileRuns:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "reconcile_runs_total"}, []string{"outcome"}),
		ReconcileDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "reconcile_duration_seconds"}),
		TimetableRows:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "timetable_rows"}),
		PipelineRunning:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		ProviderFetches:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "provider_fetches_total"}, []string{"source", "outcome"}),
		ProviderFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "provider_fetch_duration_seconds"}, []string{"source"}),
		ProviderEnabled:       prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "provider_enabled"}, []string{"source"}),
		RecordsFetched:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "records_fetched_total"}, []string{"source"}),
		RecordsDropped:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "records_dropped_total"}, []string{"reason"}),
		RowsMerged:            prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "rows_merged_total"}),
		RowsPublished:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "rows_published_total"}),
		PublishErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "publish_errors_total"}),
		CacheLookups:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "cache_lookups_total"}, []string{"result"}),
	}
}
