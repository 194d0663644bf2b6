// Package metrics provides Prometheus metrics for the compliance engine.
//
// # Metrics Categories
//
//   - Audit metrics: audits by outcome, evaluation time, score
//     distribution, rule results by status, failures by rule id
//   - Catalog metrics: loads by source and result, rule count
//   - Batch metrics: runs, documents per run, degenerate documents,
//     aggregate score per collection
//   - Persistence metrics: persist results, retries, duration
//   - HTTP metrics: API requests by route and code
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordAudit(record, time.Since(start))
//	mux.Handle("/metrics", collector.Handler())
//
// All Record methods are safe on a nil *Collector and do nothing when
// metrics are disabled.
package metrics
