// Package middleware provides HTTP middleware for the audit API.
//
// The server chains them as
//
//	handler = Recovery(Logging(RequestID(MaxBody(n)(mux))))
//
// so that panics are recovered outermost, every request is logged with
// its request id, and bodies are capped before any handler decodes them.
package middleware
