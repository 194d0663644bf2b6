// Package audit provides audit sessions, their persisted records and the
// storage contract for them.
//
// # Session Lifecycle
//
// A Session evaluates one document. It is created in_progress, accepts one
// result per rule through RecordResult, and is completed by Finalize (or
// by Fail for a document that could not be audited). A completed session
// rejects further changes; re-running an audit creates a new session.
//
//	s := audit.NewSession("motions/tro-draft", audit.SessionOptions{TotalItems: catalog.Len()})
//	for _, rule := range catalog.All() {
//	    s.RecordResult(evaluator.Evaluate(text, rule, &ctx))
//	    recorder.Persist(ctx, s)
//	}
//	s.Finalize()
//	recorder.Persist(ctx, s)
//
// # Scoring
//
// score = round(passed / (passed + failed) * 100, 1). Warning, manual and
// not_applicable results are excluded. FormulaIncludeWarnings adds
// warnings to the denominator for compatibility with legacy reports. A
// zero denominator reports 0 with FlagNoCheckableItems.
//
// # Persistence
//
// Recorder saves session snapshots to a Store, retrying a failed write
// once. If the retry fails the session gets a warning and keeps its
// in-memory results. Storage backends live in the storage subpackage.
package audit
