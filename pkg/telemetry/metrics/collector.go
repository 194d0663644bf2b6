package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"formarter/compliance/pkg/audit"
	"formarter/compliance/pkg/config"
)

// maxCollections bounds the number of distinct collection label values.
const maxCollections = 1000

// otherLabel replaces label values past the cardinality limit.
const otherLabel = "other"

// Collector owns every Prometheus metric of the engine. A nil *Collector
// is valid and records nothing, so components can take one optionally.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	audits      *AuditMetrics
	batches     *BatchMetrics
	persistence *PersistenceMetrics
	http        *HTTPMetrics

	collections *CardinalityLimiter
}

// NewCollector creates a collector and registers its metrics with
// registry. A nil registry creates a fresh one that also carries the Go
// runtime and process collectors.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.AuditDurationBuckets) == 0 {
		cfg.AuditDurationBuckets = config.DefaultAuditDurationBuckets
	}

	return &Collector{
		config:      cfg,
		registry:    registry,
		audits:      NewAuditMetrics(cfg, registry),
		batches:     NewBatchMetrics(cfg, registry),
		persistence: NewPersistenceMetrics(cfg, registry),
		http:        NewHTTPMetrics(cfg, registry),
		collections: NewCardinalityLimiter(maxCollections),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordAudit records a completed audit session.
func (c *Collector) RecordAudit(rec *audit.Record, duration time.Duration) {
	if !c.enabled() || rec == nil {
		return
	}
	c.audits.Record(rec, duration)
}

// RecordAuditCancelled records an audit discarded by cancellation.
func (c *Collector) RecordAuditCancelled() {
	if !c.enabled() {
		return
	}
	c.audits.auditsTotal.WithLabelValues(outcomeCancelled).Inc()
}

// RecordBatch records a completed batch run. scored is false when no
// document produced a defined score.
func (c *Collector) RecordBatch(collection string, documents, degenerate int, aggregate float64, scored bool, duration time.Duration) {
	if !c.enabled() {
		return
	}
	if !c.collections.Allow(collection) {
		collection = otherLabel
	}
	c.batches.Record(collection, documents, degenerate, aggregate, scored, duration)
}

// RecordPersist records one Recorder.Persist call: its total duration,
// the number of save attempts and the final error.
func (c *Collector) RecordPersist(duration time.Duration, attempts int, err error) {
	if !c.enabled() {
		return
	}
	c.persistence.Record(duration, attempts, err)
}

// RecordCatalogLoad records a catalog load from source.
func (c *Collector) RecordCatalogLoad(source string, rules int, err error) {
	if !c.enabled() {
		return
	}
	c.audits.RecordCatalogLoad(source, rules, err)
}

// RecordHTTPRequest records a served API request.
func (c *Collector) RecordHTTPRequest(route string, code int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.http.Record(route, code, duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter bounds the number of distinct values admitted for a
// label.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter admitting at most maxCardinality values.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value is already admitted or can still be.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	_, exists := cl.current[value]
	cl.mu.RUnlock()
	if exists {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the number of admitted values.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
