// Package tracing provides OpenTelemetry tracing for audits, batches and
// API requests.
//
// Spans are exported over OTLP/gRPC. Sampling is one of always, never or
// ratio, always wrapped in ParentBased so a batch span's decision covers
// the document audits beneath it. With tracing disabled, or on a nil
// *Tracer, Start returns noop spans.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "audit.document", tracing.DocumentAttributes(id, ""))
//	defer span.End()
//	tracing.SetRecordAttributes(span, rec)
//
// Incoming W3C traceparent headers are honored by HTTPMiddleware.
package tracing
