// Package batch audits a set of documents in parallel.
//
// Each document is evaluated in its own session on a bounded errgroup
// worker pool; sessions share no state and finish in any order. When all
// are complete the runner reduces them: the aggregate score is the mean of
// the defined per-document scores and the common issues are the rule ids
// failing in two or more documents. A document whose audit errors or
// panics is recorded as a degenerate session and excluded from the mean.
package batch
