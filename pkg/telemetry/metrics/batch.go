package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"formarter/compliance/pkg/config"
)

// BatchMetrics tracks collection audits.
//
// Metrics:
//   - formarter_compliance_batches_total: batch runs by collection
//   - formarter_compliance_batch_documents: documents per batch
//   - formarter_compliance_batch_degenerate_total: documents whose audit failed
//   - formarter_compliance_batch_aggregate_score: last aggregate score per collection
//   - formarter_compliance_batch_duration_seconds: batch wall time
type BatchMetrics struct {
	batchesTotal    *prometheus.CounterVec
	documents       prometheus.Histogram
	degenerateTotal *prometheus.CounterVec
	aggregate       *prometheus.GaugeVec
	duration        prometheus.Histogram
}

// NewBatchMetrics creates and registers batch metrics.
func NewBatchMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *BatchMetrics {
	bm := &BatchMetrics{
		batchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "batches_total",
				Help:      "Total number of collection audits",
			},
			[]string{"collection"},
		),
		documents: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "batch_documents",
				Help:      "Number of documents audited per batch",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		degenerateTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "batch_degenerate_total",
				Help:      "Documents in a batch whose audit failed",
			},
			[]string{"collection"},
		),
		aggregate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "batch_aggregate_score",
				Help:      "Aggregate score of the most recent batch per collection",
			},
			[]string{"collection"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "batch_duration_seconds",
				Help:      "Wall time of collection audits",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
	}

	registry.MustRegister(bm.batchesTotal, bm.documents, bm.degenerateTotal, bm.aggregate, bm.duration)
	return bm
}

// Record records a completed batch.
func (bm *BatchMetrics) Record(collection string, documents, degenerate int, aggregate float64, scored bool, duration time.Duration) {
	bm.batchesTotal.WithLabelValues(collection).Inc()
	bm.documents.Observe(float64(documents))
	if degenerate > 0 {
		bm.degenerateTotal.WithLabelValues(collection).Add(float64(degenerate))
	}
	if scored {
		bm.aggregate.WithLabelValues(collection).Set(aggregate)
	}
	bm.duration.Observe(duration.Seconds())
}
