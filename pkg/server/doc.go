// Package server exposes the audit engine over HTTP.
//
// # Routes
//
//   - POST /v1/audits: audit a library document or inline text
//   - GET /v1/audits: audit history, filtered by document_id, collection and status
//   - GET /v1/audits/{id}: one audit record
//   - GET /v1/audits/{id}/progress: session progress
//   - GET /v1/audits/{id}/guidance: fix guidance for every failed rule
//   - POST /v1/collections/{name}/audits: audit every document of a collection
//   - GET /v1/rules: the rule catalog, optionally filtered by category
//   - GET /v1/rules/{id}/guidance: fix guidance for one rule
//
// The metrics, liveness, readiness and version endpoints are mounted
// alongside the API.
//
// Unknown documents, collections, sessions and rules answer 404 with a
// JSON error body. A completed audit with no failures answers 200 or 201
// with an empty failing list, so the two are never confused.
//
// # Middleware Chain
//
// Requests pass through, outermost first: Recovery, Logging, RequestID
// and MaxBody. Each API route is additionally wrapped in a server span
// and request metrics labelled by its route pattern.
//
// # Graceful Shutdown
//
// Start serves until its context is cancelled and then calls Shutdown,
// which stops accepting connections and waits for in-flight audits up to
// the configured shutdown timeout.
package server
