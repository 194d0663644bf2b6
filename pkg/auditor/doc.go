// Package auditor runs compliance audits end to end.
//
// An Auditor ties the rule catalog, the pattern evaluator, the document
// library and the audit store together behind the operations exposed by
// the CLI and the HTTP API:
//
//   - AuditDocument and AuditText evaluate one document in a new session
//   - AuditCollection and AuditBatch evaluate many documents concurrently
//   - Progress reports a stored session's progress
//   - Guidance and FailingGuidance return fix guidance
//
// Sessions are persisted when created, after every recorded result and on
// completion. A cancelled audit is discarded: the store may hold its
// in_progress checkpoint but never a completed record.
package auditor
