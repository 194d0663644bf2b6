package auditor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"formarter/compliance/pkg/audit"
	"formarter/compliance/pkg/batch"
	"formarter/compliance/pkg/checklist"
	"formarter/compliance/pkg/checklist/classifier"
	"formarter/compliance/pkg/checklist/matcher"
	"formarter/compliance/pkg/library"
	"formarter/compliance/pkg/telemetry/logging"
	"formarter/compliance/pkg/telemetry/metrics"
	"formarter/compliance/pkg/telemetry/tracing"
)

// Options configures an Auditor. Catalog, Library and Store are required.
type Options struct {
	Catalog *checklist.Catalog
	Library library.Library
	Store   audit.Store

	// Formula selects the score denominator.
	// Default: audit.FormulaExcludeWarnings
	Formula audit.ScoreFormula

	// MaxEvidence bounds evidence snippets in runes.
	// Default: matcher.DefaultMaxEvidence
	MaxEvidence int

	// EvidenceFilter rewrites evidence before it is recorded, e.g. to
	// redact personal data. Nil keeps evidence unchanged.
	EvidenceFilter classifier.EvidenceFilter

	// DefaultContext applies to documents that carry no context of their own.
	DefaultContext *checklist.Context

	// TrackCurrent also writes interactive audits to the store's
	// current-session record when the store supports one.
	TrackCurrent bool

	Recorder *audit.RecorderConfig
	Batch    *batch.Config

	// Metrics and Tracer are optional.
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer

	// Now overrides the session clock, for tests.
	Now func() time.Time
}

// TextRequest audits text that is not stored in the library.
type TextRequest struct {
	DocumentID   string
	DocumentName string
	Collection   string
	Text         string

	// Context overrides any stored or default context when set.
	Context *checklist.Context
}

// Auditor runs audit sessions over a fixed catalog and answers progress
// and guidance queries. It is safe for concurrent use.
type Auditor struct {
	catalog   *checklist.Catalog
	library   library.Library
	store     audit.Store
	recorder  *audit.Recorder
	evaluator *classifier.Evaluator
	runner    *batch.Runner
	opts      Options
	logger    *slog.Logger
}

// New creates an Auditor.
func New(opts Options) (*Auditor, error) {
	if opts.Catalog == nil {
		return nil, errors.New("auditor: catalog is required")
	}
	if opts.Library == nil {
		return nil, errors.New("auditor: library is required")
	}
	if opts.Store == nil {
		return nil, errors.New("auditor: store is required")
	}
	if !opts.Formula.Valid() {
		opts.Formula = audit.FormulaExcludeWarnings
	}
	if opts.MaxEvidence <= 0 {
		opts.MaxEvidence = matcher.DefaultMaxEvidence
	}

	recCfg := audit.DefaultRecorderConfig()
	if opts.Recorder != nil {
		c := *opts.Recorder
		recCfg = &c
	}
	if opts.Metrics != nil {
		next := recCfg.OnPersist
		recCfg.OnPersist = func(d time.Duration, attempts int, err error) {
			opts.Metrics.RecordPersist(d, attempts, err)
			if next != nil {
				next(d, attempts, err)
			}
		}
	}

	a := &Auditor{
		catalog:   opts.Catalog,
		library:   opts.Library,
		store:     opts.Store,
		recorder:  audit.NewRecorder(opts.Store, recCfg),
		evaluator: classifier.NewEvaluator(matcher.New(opts.MaxEvidence), opts.EvidenceFilter),
		opts:      opts,
		logger:    slog.Default().With("component", "auditor"),
	}
	a.runner = batch.NewRunner(a.batchAudit, a.batchFail, opts.Batch)
	return a, nil
}

// Catalog returns the rule catalog.
func (a *Auditor) Catalog() *checklist.Catalog {
	return a.catalog
}

// Store returns the audit store.
func (a *Auditor) Store() audit.Store {
	return a.store
}

// AuditDocument audits a library document. An unknown id returns an error
// wrapping library.ErrDocumentNotFound.
func (a *Auditor) AuditDocument(ctx context.Context, documentID string) (*audit.Record, error) {
	doc, err := a.library.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return a.run(ctx, a.requestFor(doc, nil), true)
}

// AuditText audits text supplied by the caller.
func (a *Auditor) AuditText(ctx context.Context, req TextRequest) (*audit.Record, error) {
	if req.DocumentID == "" {
		return nil, errors.New("document id is required")
	}
	if req.Context == nil {
		req.Context = a.opts.DefaultContext
	}
	return a.run(ctx, req, true)
}

func (a *Auditor) requestFor(doc *library.Document, fallback *checklist.Context) TextRequest {
	req := TextRequest{
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
		Collection:   doc.Collection,
		Text:         doc.Text,
		Context:      doc.Context,
	}
	if req.Context == nil {
		req.Context = fallback
	}
	if req.Context == nil {
		req.Context = a.opts.DefaultContext
	}
	return req
}

// run evaluates every catalog rule in id order. The session is persisted
// when created, after every recorded result and when finalized. On
// cancellation the session is dropped and ctx.Err() returned; nothing is
// persisted as completed.
func (a *Auditor) run(ctx context.Context, req TextRequest, interactive bool) (*audit.Record, error) {
	ctx = logging.WithDocumentID(ctx, req.DocumentID)
	ctx, span := a.opts.Tracer.Start(ctx, "audit.document", tracing.DocumentAttributes(req.DocumentID, req.Collection))
	defer span.End()

	start := time.Now()
	opts := audit.SessionOptions{
		DocumentName:   req.DocumentName,
		Collection:     req.Collection,
		CatalogVersion: a.catalog.Version(),
		TotalItems:     a.catalog.Len(),
		Formula:        a.opts.Formula,
		Now:            a.opts.Now,
	}
	if req.Context != nil {
		opts.Context = *req.Context
	}
	session := audit.NewSession(req.DocumentID, opts)
	ctx = logging.WithSessionID(ctx, session.ID())
	a.logger.DebugContext(ctx, "audit started", "rules", a.catalog.Len())
	_ = a.recorder.Persist(ctx, session)

	for _, rule := range a.catalog.All() {
		if err := ctx.Err(); err != nil {
			a.opts.Metrics.RecordAuditCancelled()
			a.logger.WarnContext(ctx, "audit cancelled", "items_checked", session.Progress().ItemsChecked)
			tracing.SetError(span, err)
			return nil, err
		}
		if err := session.RecordResult(a.evaluator.Evaluate(req.Text, rule, req.Context)); err != nil {
			tracing.SetError(span, err)
			return nil, fmt.Errorf("record rule %d: %w", rule.ID, err)
		}
		_ = a.recorder.Persist(ctx, session)
	}

	if err := ctx.Err(); err != nil {
		a.opts.Metrics.RecordAuditCancelled()
		tracing.SetError(span, err)
		return nil, err
	}
	if err := session.Finalize(); err != nil {
		tracing.SetError(span, err)
		return nil, err
	}
	_ = a.recorder.Persist(ctx, session)

	rec := session.Snapshot()
	if interactive && a.opts.TrackCurrent {
		a.saveCurrent(ctx, rec)
	}

	a.opts.Metrics.RecordAudit(rec, time.Since(start))
	tracing.SetRecordAttributes(span, rec)
	tracing.SetError(span, nil)
	a.logger.InfoContext(ctx, "audit completed",
		"score", rec.Summary.Score,
		"score_flag", rec.Summary.ScoreFlag,
		"passed", rec.Summary.Passed,
		"failed", rec.Summary.Failed,
		"critical_issues", len(rec.CriticalIssues),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

func (a *Auditor) saveCurrent(ctx context.Context, rec *audit.Record) {
	cs, ok := a.store.(audit.CurrentStore)
	if !ok {
		return
	}
	if err := cs.SaveCurrent(ctx, rec); err != nil {
		a.logger.WarnContext(ctx, "failed to update current session record", "error", err)
	}
}

// Session returns a stored session record or an error wrapping
// audit.ErrSessionNotFound.
func (a *Auditor) Session(ctx context.Context, sessionID string) (*audit.Record, error) {
	return a.store.Get(ctx, sessionID)
}

// Current returns the current interactive session record.
func (a *Auditor) Current(ctx context.Context) (*audit.Record, error) {
	cs, ok := a.store.(audit.CurrentStore)
	if !ok {
		return nil, audit.ErrSessionNotFound
	}
	return cs.Current(ctx)
}

// Latest returns the most recent record of a document.
func (a *Auditor) Latest(ctx context.Context, documentID string) (*audit.Record, error) {
	return a.store.Latest(ctx, documentID)
}

// History returns stored records matching query, newest first by default.
func (a *Auditor) History(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	return a.store.Query(ctx, query)
}
