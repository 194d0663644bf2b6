package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"formarter/compliance/pkg/audit"
	"formarter/compliance/pkg/config"
)

// Audit outcomes.
const (
	outcomeCompleted  = "completed"
	outcomeDegenerate = "degenerate"
	outcomeCancelled  = "cancelled"
)

// AuditMetrics tracks single-document audits.
//
// Metrics:
//   - formarter_compliance_audits_total: audits by outcome
//   - formarter_compliance_audit_duration_seconds: evaluation time
//   - formarter_compliance_audit_score: distribution of defined scores
//   - formarter_compliance_rule_results_total: rule results by status
//   - formarter_compliance_rule_failures_total: failures by rule id
//   - formarter_compliance_catalog_loads_total: catalog loads by source and result
//   - formarter_compliance_catalog_rules: rules in the last loaded catalog
type AuditMetrics struct {
	auditsTotal   *prometheus.CounterVec
	duration      prometheus.Histogram
	score         *prometheus.HistogramVec
	resultsTotal  *prometheus.CounterVec
	failuresTotal *prometheus.CounterVec
	catalogLoads  *prometheus.CounterVec
	catalogRules  prometheus.Gauge
}

// NewAuditMetrics creates and registers audit metrics.
func NewAuditMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuditMetrics {
	am := &AuditMetrics{
		auditsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audits_total",
				Help:      "Total number of document audits by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_duration_seconds",
				Help:      "Time spent evaluating one document against the catalog",
				Buckets:   cfg.AuditDurationBuckets,
			},
		),
		score: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_score",
				Help:      "Compliance score of completed audits with a defined score",
				Buckets:   prometheus.LinearBuckets(10, 10, 10),
			},
			[]string{"formula"},
		),
		resultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_results_total",
				Help:      "Rule evaluation results by status",
			},
			[]string{"status"},
		),
		failuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_failures_total",
				Help:      "Failed rule checks by rule id and severity",
			},
			[]string{"rule_id", "severity"},
		),
		catalogLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "catalog_loads_total",
				Help:      "Rule catalog loads by source and result",
			},
			[]string{"source", "result"},
		),
		catalogRules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "catalog_rules",
				Help:      "Number of rules in the loaded catalog",
			},
		),
	}

	registry.MustRegister(
		am.auditsTotal,
		am.duration,
		am.score,
		am.resultsTotal,
		am.failuresTotal,
		am.catalogLoads,
		am.catalogRules,
	)
	return am
}

// Record records a completed audit record.
func (am *AuditMetrics) Record(rec *audit.Record, duration time.Duration) {
	if rec.Degenerate {
		am.auditsTotal.WithLabelValues(outcomeDegenerate).Inc()
		return
	}
	am.auditsTotal.WithLabelValues(outcomeCompleted).Inc()
	am.duration.Observe(duration.Seconds())
	if rec.Summary.ScoreDefined() {
		am.score.WithLabelValues(string(rec.Summary.ScoreFormula)).Observe(rec.Summary.Score)
	}
	for _, res := range rec.Results {
		am.resultsTotal.WithLabelValues(string(res.Status)).Inc()
	}
	for _, res := range rec.Failing() {
		am.failuresTotal.WithLabelValues(strconv.Itoa(res.RuleID), string(res.Severity)).Inc()
	}
}

// RecordCatalogLoad records a catalog load.
func (am *AuditMetrics) RecordCatalogLoad(source string, rules int, err error) {
	if err != nil {
		am.catalogLoads.WithLabelValues(source, "error").Inc()
		return
	}
	am.catalogLoads.WithLabelValues(source, "success").Inc()
	am.catalogRules.Set(float64(rules))
}
