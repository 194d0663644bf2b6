// Package telemetry groups the observability of the compliance engine.
//
// # Components
//
//   - logging: slog setup with context attributes and PII redaction
//   - metrics: Prometheus metrics for audits, batches, persistence and HTTP
//   - tracing: OpenTelemetry spans around sessions, batches and requests
//   - health: liveness, readiness and version endpoints
//
// Every collector is optional. A nil *metrics.Collector or
// *tracing.Tracer records nothing, so components take them without checks:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//
//	a, err := auditor.New(auditor.Options{
//		Catalog: catalog,
//		Metrics: collector,
//		Tracer:  tracer,
//	})
//
// # PII Protection
//
// Log attributes pass through the redactor when
// telemetry.logging.redact_pii is set. The same redactor scrubs evidence
// snippets before they are stored when audit.redact_evidence is set:
//
//   - SSN: 123-45-6789 → ***-**-****
//   - Emails: jane@example.com → ***@***
//   - Phone numbers and account numbers are masked
//
// Custom patterns come from telemetry.logging.redact_patterns.
package telemetry
