package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// StatusRecorder wraps http.ResponseWriter to capture the status code.
type StatusRecorder struct {
	http.ResponseWriter
	Status  int
	written bool
}

// NewStatusRecorder wraps w. The status defaults to 200.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	if sr, ok := w.(*StatusRecorder); ok {
		return sr
	}
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

// WriteHeader records code before writing it.
func (sr *StatusRecorder) WriteHeader(code int) {
	if sr.written {
		return
	}
	sr.Status = code
	sr.written = true
	sr.ResponseWriter.WriteHeader(code)
}

// Write writes the header first if needed.
func (sr *StatusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.WriteHeader(http.StatusOK)
	}
	return sr.ResponseWriter.Write(b)
}

// Logging logs each request at a level chosen by the response status.
// Request and session ids are added by the context-aware log handler.
func Logging(next http.Handler) http.Handler {
	logger := slog.Default().With("component", "server")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := NewStatusRecorder(w)

		next.ServeHTTP(sr, r)

		level := slog.LevelInfo
		switch {
		case sr.Status >= 500:
			level = slog.LevelError
		case sr.Status >= 400:
			level = slog.LevelWarn
		}
		logger.Log(r.Context(), level, "request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sr.Status,
			"latency_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)
	})
}
