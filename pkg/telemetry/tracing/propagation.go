package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Extract returns ctx carrying the W3C trace context found in headers.
// Without a traceparent header ctx is returned unchanged.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// HTTPMiddleware extracts incoming trace context, starts a server span
// named by route and echoes the trace id in the X-Trace-ID response
// header.
func (t *Tracer) HTTPMiddleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := Extract(r.Context(), r.Header)
		ctx, span := t.Start(ctx, route, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if id := TraceID(ctx); id != "" {
			w.Header().Set("X-Trace-ID", id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
