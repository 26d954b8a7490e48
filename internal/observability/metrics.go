package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dxspot"

// Metrics holds the Prometheus counters, histograms, and gauges for the spot pipeline.
type Metrics struct {
	LinesConsumed   prometheus.Counter
	SpotsProduced   prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Classification outcomes.
	SpotsByCategory      *prometheus.CounterVec // labels: category, dialect
	UnrecognizedLines    prometheus.Counter
	MalformedFields      *prometheus.CounterVec // labels: category, field
	TransformErrors      prometheus.Counter
	DuplicatesSuppressed prometheus.Counter

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.LinesConsumed,
		m.SpotsProduced,
		m.PipelineRunning,
		m.SpotsByCategory,
		m.UnrecognizedLines,
		m.MalformedFields,
		m.TransformErrors,
		m.DuplicatesSuppressed,
		m.BatchSize,
		m.BatchProcessingDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		LinesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_consumed_total",
			Help:      "Total lines read from the cluster connection or capture file.",
		}),
		SpotsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spots_produced_total",
			Help:      "Total spot events handed to the sinks.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		SpotsByCategory: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spots_total",
			Help:      "Parsed spots by category and dialect.",
		}, []string{"category", "dialect"}),
		UnrecognizedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unrecognized_lines_total",
			Help:      "Lines no rule matched (MOTD, prompts, chatter).",
		}),
		MalformedFields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_fields_total",
			Help:      "Matched lines dropped for a field that failed conversion.",
		}, []string{"category", "field"}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total transformation failures other than classification outcomes.",
		}),
		DuplicatesSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_suppressed_total",
			Help:      "Spots dropped because their ID was seen recently.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of lines per extracted batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}
}
