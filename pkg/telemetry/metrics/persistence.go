package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"formarter/compliance/pkg/config"
)

// PersistenceMetrics tracks audit record saves.
//
// Metrics:
//   - formarter_compliance_persist_total: persist calls by result
//   - formarter_compliance_persist_retries_total: save attempts beyond the first
//   - formarter_compliance_persist_duration_seconds: persist time including retries
type PersistenceMetrics struct {
	persistTotal *prometheus.CounterVec
	retriesTotal prometheus.Counter
	duration     prometheus.Histogram
}

// NewPersistenceMetrics creates and registers persistence metrics.
func NewPersistenceMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PersistenceMetrics {
	pm := &PersistenceMetrics{
		persistTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "persist_total",
				Help:      "Audit record persist calls by result",
			},
			[]string{"result"},
		),
		retriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "persist_retries_total",
				Help:      "Audit record save attempts beyond the first",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "persist_duration_seconds",
				Help:      "Time spent persisting an audit record, including retries",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	registry.MustRegister(pm.persistTotal, pm.retriesTotal, pm.duration)
	return pm
}

// Record records one persist call.
func (pm *PersistenceMetrics) Record(duration time.Duration, attempts int, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	pm.persistTotal.WithLabelValues(result).Inc()
	if attempts > 1 {
		pm.retriesTotal.Add(float64(attempts - 1))
	}
	pm.duration.Observe(duration.Seconds())
}
