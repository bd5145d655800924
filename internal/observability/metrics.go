package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingest pipeline.
type Metrics struct {
	RecordsExtracted prometheus.Counter
	RecordsLoaded    prometheus.Counter
	RecordsRejected  *prometheus.CounterVec // label: reason
	FactsLoaded      *prometheus.CounterVec // label: outcome={inserted,updated}
	Warnings         *prometheus.CounterVec // label: kind={outlier,unit_mismatch}
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RecordsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "well_etl",
			Name:      "records_extracted_total",
			Help:      "Total raw records read from the extractor.",
		}),
		RecordsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "well_etl",
			Name:      "records_loaded_total",
			Help:      "Total records fully resolved and loaded.",
		}),
		RecordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "well_etl",
			Name:      "records_rejected_total",
			Help:      "Records and readings rejected, by reason.",
		}, []string{"reason"}),
		FactsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "well_etl",
			Name:      "facts_loaded_total",
			Help:      "Production facts written, by upsert outcome.",
		}, []string{"outcome"}),
		Warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "well_etl",
			Name:      "warnings_total",
			Help:      "Soft audit warnings that do not affect exit status.",
		}, []string{"kind"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "well_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "well_etl",
			Name:      "batch_size",
			Help:      "Number of raw records per extracted batch.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "well_etl",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch normalize-resolve-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}

	prometheus.MustRegister(
		m.RecordsExtracted,
		m.RecordsLoaded,
		m.RecordsRejected,
		m.FactsLoaded,
		m.Warnings,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RecordsExtracted:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "well_etl", Name: "records_extracted_total"}),
		RecordsLoaded:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "well_etl", Name: "records_loaded_total"}),
		RecordsRejected:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "well_etl", Name: "records_rejected_total"}, []string{"reason"}),
		FactsLoaded:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "well_etl", Name: "facts_loaded_total"}, []string{"outcome"}),
		Warnings:                prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "well_etl", Name: "warnings_total"}, []string{"kind"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "well_etl", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "well_etl", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "well_etl", Name: "batch_processing_duration_seconds"}),
	}
}
