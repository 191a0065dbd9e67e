// =============================================================================
// Schedule Extractor - Run Metrics
// =============================================================================
//
// Counters and histograms describing an extraction run. Each Recorder owns
// its own registry so concurrent runs and tests never share state. A batch
// run dumps the registry in the node-exporter textfile format.
//
// METRICS:
//   schedex_documents_total{kind,outcome}   documents by result
//   schedex_records_total{kind}             records emitted
//   schedex_dropped_rows_total{reason}      rows/contexts discarded
//   schedex_field_errors_total{field}       unparseable fields
//   schedex_extract_duration_seconds{kind}  time per document
//
// =============================================================================

package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ginjaninja78/schedule-extractor/internal/engine"
)

const namespace = "schedex"

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

// Recorder collects run metrics.
type Recorder struct {
	registry    *prometheus.Registry
	documents   *prometheus.CounterVec
	records     *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	fieldErrors *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with a private registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents processed, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Investment records emitted.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_rows_total",
			Help:      "Rows or contexts discarded, by reason.",
		}, []string{"reason"}),
		fieldErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_errors_total",
			Help:      "Field values that failed to parse, by field.",
		}, []string{"field"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extract_duration_seconds",
			Help:      "Time spent extracting one document.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"kind"}),
	}

	r.registry.MustRegister(r.documents, r.records, r.dropped, r.fieldErrors, r.duration)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records the outcome of one extraction.
func (r *Recorder) Observe(res engine.Result) {
	kind := string(res.Kind)
	if kind == "" {
		kind = "unknown"
	}

	outcome := OutcomeOK
	if res.Diagnostics.Degraded() {
		outcome = OutcomeDegraded
	}
	r.documents.WithLabelValues(kind, outcome).Inc()
	r.records.WithLabelValues(kind).Add(float64(len(res.Records)))
	r.duration.WithLabelValues(kind).Observe(res.Duration.Seconds())

	for reason, n := range res.Diagnostics.Dropped {
		r.dropped.WithLabelValues(reason).Add(float64(n))
	}
	for _, fe := range res.Diagnostics.FieldErrors {
		field := fe.Field
		if field == "" {
			field = "unknown"
		}
		r.fieldErrors.WithLabelValues(field).Inc()
	}
}

// ObserveFailure records a document that could not be read.
func (r *Recorder) ObserveFailure(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	r.documents.WithLabelValues(kind, OutcomeFailed).Inc()
}

// WriteTextfile writes every metric to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
