package auditor

import (
	"context"
	"time"

	"formarter/compliance/pkg/audit"
	"formarter/compliance/pkg/batch"
	"formarter/compliance/pkg/checklist"
	"formarter/compliance/pkg/telemetry/logging"
	"formarter/compliance/pkg/telemetry/tracing"
)

type batchContextKey struct{}

// BatchOptions configures a batch audit.
type BatchOptions struct {
	// Collection labels the batch and its records.
	Collection string

	// Context applies to documents that carry no context of their own. It
	// takes precedence over the configured default context.
	Context *checklist.Context
}

// AuditCollection audits every document of a library collection. An
// unknown collection returns an error wrapping library.ErrCollectionNotFound.
func (a *Auditor) AuditCollection(ctx context.Context, collection string, defaults *checklist.Context) (*batch.Result, error) {
	ids, err := a.library.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	return a.AuditBatch(ctx, ids, BatchOptions{Collection: collection, Context: defaults})
}

// AuditBatch audits the given library documents concurrently. A document
// that cannot be audited, including one that is not in the library, gets
// a degenerate record and the batch continues.
func (a *Auditor) AuditBatch(ctx context.Context, documentIDs []string, opts BatchOptions) (*batch.Result, error) {
	ctx, span := a.opts.Tracer.Start(ctx, "audit.batch")
	defer span.End()

	start := time.Now()
	ctx = context.WithValue(ctx, batchContextKey{}, opts)
	res, err := a.runner.Run(ctx, opts.Collection, documentIDs)
	if err != nil {
		tracing.SetError(span, err)
		return nil, err
	}

	a.opts.Metrics.RecordBatch(opts.Collection, len(res.Sessions), res.Degenerate,
		res.AggregateScore, res.AggregateFlag == "", time.Since(start))
	tracing.SetBatchAttributes(span, res.BatchID, len(res.Sessions), res.AggregateScore)
	tracing.SetError(span, nil)
	return res, nil
}

func batchOptions(ctx context.Context) BatchOptions {
	opts, _ := ctx.Value(batchContextKey{}).(BatchOptions)
	return opts
}

func (a *Auditor) batchAudit(ctx context.Context, documentID string) (*audit.Record, error) {
	doc, err := a.library.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	opts := batchOptions(ctx)
	req := a.requestFor(doc, opts.Context)
	if req.Collection == "" {
		req.Collection = opts.Collection
	}
	return a.run(ctx, req, false)
}

// batchFail persists and returns the degenerate record of a document
// whose audit failed.
func (a *Auditor) batchFail(ctx context.Context, documentID string, cause error) *audit.Record {
	opts := batchOptions(ctx)
	session := audit.NewSession(documentID, audit.SessionOptions{
		Collection:     opts.Collection,
		CatalogVersion: a.catalog.Version(),
		TotalItems:     a.catalog.Len(),
		Formula:        a.opts.Formula,
		Now:            a.opts.Now,
	})
	_ = session.Fail(cause)
	ctx = logging.WithDocumentID(ctx, documentID)
	_ = a.recorder.Persist(ctx, session)

	rec := session.Snapshot()
	a.opts.Metrics.RecordAudit(rec, 0)
	return rec
}
