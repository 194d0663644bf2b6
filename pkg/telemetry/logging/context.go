package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	// RequestIDKey is the context key for HTTP request ids.
	RequestIDKey contextKey = "request_id"

	// SessionIDKey is the context key for audit session ids.
	SessionIDKey contextKey = "session_id"

	// DocumentIDKey is the context key for document ids.
	DocumentIDKey contextKey = "document_id"

	// BatchIDKey is the context key for batch ids.
	BatchIDKey contextKey = "batch_id"
)

// contextKeys lists the keys copied onto every record, in output order.
var contextKeys = []contextKey{RequestIDKey, BatchIDKey, DocumentIDKey, SessionIDKey}

// WithRequestID adds a request id to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// WithSessionID adds an audit session id to the context.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

// WithDocumentID adds a document id to the context.
func WithDocumentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, DocumentIDKey, id)
}

// WithBatchID adds a batch id to the context.
func WithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, BatchIDKey, id)
}

// GetRequestID returns the request id in ctx, or "".
func GetRequestID(ctx context.Context) string { return get(ctx, RequestIDKey) }

// GetSessionID returns the session id in ctx, or "".
func GetSessionID(ctx context.Context) string { return get(ctx, SessionIDKey) }

// GetDocumentID returns the document id in ctx, or "".
func GetDocumentID(ctx context.Context) string { return get(ctx, DocumentIDKey) }

// GetBatchID returns the batch id in ctx, or "".
func GetBatchID(ctx context.Context) string { return get(ctx, BatchIDKey) }

func get(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// FromContext returns the context's fields as slog key/value pairs.
func FromContext(ctx context.Context) []any {
	var fields []any
	for _, key := range contextKeys {
		if v := get(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}
	return fields
}

// contextHandler adds context fields to records logged with a context.
type contextHandler struct {
	next slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, key := range contextKeys {
		if v := get(ctx, key); v != "" {
			r.AddAttrs(slog.String(string(key), v))
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name)}
}
