// Package logging provides structured logging with PII redaction.
//
// The logger wraps log/slog. Install it as the process default so that
// component loggers created with slog.Default().With("component", ...)
// share its handler:
//
//	logger, err := logging.New(logging.FromConfig(&cfg.Telemetry.Logging))
//	slog.SetDefault(logger.Slog())
//
// # Context Fields
//
// Records logged with a context carry its request, batch, document and
// session ids:
//
//	ctx = logging.WithSessionID(ctx, s.ID())
//	slog.Default().InfoContext(ctx, "audit completed")
//
// # PII Redaction
//
// With RedactPII set, string attributes are scanned for bearer tokens,
// API keys, email addresses, SSNs, dates of birth, account numbers and
// phone numbers, and attributes under sensitive keys (token, password,
// secret, ...) are masked entirely. The same Redactor can scrub evidence
// snippets before an audit record is stored.
package logging
