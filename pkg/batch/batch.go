package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"formarter/compliance/pkg/audit"
)

// FlagNoScoredDocuments explains an undefined aggregate score.
const FlagNoScoredDocuments = "no documents with a defined score"

// AuditFunc audits one document and returns its completed record.
type AuditFunc func(ctx context.Context, documentID string) (*audit.Record, error)

// FailFunc builds the degenerate record for a document whose audit failed.
type FailFunc func(ctx context.Context, documentID string, cause error) *audit.Record

// Config contains configuration for the batch runner.
type Config struct {
	// Workers is the maximum number of documents audited at once.
	// Default: runtime.NumCPU()
	Workers int

	// OnProgress, when set, is called after each document with the number
	// of documents finished so far. Calls may come from several goroutines.
	OnProgress func(done, total int)
}

// Result is the outcome of a batch run.
type Result struct {
	BatchID     string    `json:"batch_id"`
	Collection  string    `json:"collection,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	// Sessions holds one completed record per document, ordered by
	// document id.
	Sessions []*audit.Record `json:"sessions"`

	// AggregateScore is the mean of the defined per-document scores,
	// rounded to one decimal.
	AggregateScore  float64 `json:"aggregate_score"`
	AggregateFlag   string  `json:"aggregate_flag,omitempty"`
	ScoredDocuments int     `json:"scored_documents"`

	// CommonIssues lists rule ids that failed in at least two documents.
	CommonIssues []int `json:"common_issues"`

	// Degenerate counts documents whose audit failed.
	Degenerate int `json:"degenerate"`
}

// Runner audits many documents concurrently and reduces the results.
type Runner struct {
	audit  AuditFunc
	fail   FailFunc
	config *Config
	logger *slog.Logger
}

// NewRunner creates a runner. A nil fail builds an unpersisted degenerate
// record.
func NewRunner(auditFn AuditFunc, fail FailFunc, config *Config) *Runner {
	if config == nil {
		config = &Config{}
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if fail == nil {
		fail = Degenerate
	}
	return &Runner{
		audit:  auditFn,
		fail:   fail,
		config: config,
		logger: slog.Default().With("component", "batch.runner"),
	}
}

// Run audits every document in documentIDs. Each document gets an
// independent session; a document that fails (error or panic) gets a
// degenerate record and the batch continues. Duplicate ids are audited
// once. Cancelling ctx stops the batch and returns ctx.Err().
func (r *Runner) Run(ctx context.Context, collection string, documentIDs []string) (*Result, error) {
	ids := dedupe(documentIDs)
	res := &Result{
		BatchID:    "batch-" + uuid.NewString(),
		Collection: collection,
		StartedAt:  time.Now().UTC(),
	}
	r.logger.Info("batch started",
		"batch_id", res.BatchID,
		"collection", collection,
		"documents", len(ids),
		"workers", r.config.Workers,
	)

	records := make([]*audit.Record, len(ids))
	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := r.auditOne(gctx, id)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.Warn("document audit failed", "batch_id", res.BatchID, "document_id", id, "error", err)
				rec = r.fail(gctx, id, err)
			}
			records[i] = rec
			if r.config.OnProgress != nil {
				r.config.OnProgress(int(done.Add(1)), len(ids))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Warn("batch cancelled", "batch_id", res.BatchID, "error", err)
		return nil, err
	}

	res.Sessions = records
	Reduce(res)
	res.CompletedAt = time.Now().UTC()

	r.logger.Info("batch completed",
		"batch_id", res.BatchID,
		"documents", len(records),
		"aggregate_score", res.AggregateScore,
		"common_issues", len(res.CommonIssues),
		"degenerate", res.Degenerate,
		"duration_ms", res.CompletedAt.Sub(res.StartedAt).Milliseconds(),
	)
	return res, nil
}

func (r *Runner) auditOne(ctx context.Context, id string) (rec *audit.Record, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("audit of %s panicked: %v", id, p)
		}
	}()
	rec, err = r.audit(ctx, id)
	if err == nil && rec == nil {
		err = errors.New("audit returned no record")
	}
	return rec, err
}

// Reduce fills the aggregate fields of res from res.Sessions.
func Reduce(res *Result) {
	var sum float64
	res.ScoredDocuments = 0
	res.Degenerate = 0
	failing := make(map[int]int)

	for _, rec := range res.Sessions {
		if rec.Degenerate {
			res.Degenerate++
		}
		if !rec.Degenerate && rec.Summary.ScoreDefined() {
			sum += rec.Summary.Score
			res.ScoredDocuments++
		}
		for _, id := range rec.FailedRuleIDs() {
			failing[id]++
		}
	}

	res.AggregateFlag = ""
	if res.ScoredDocuments == 0 {
		res.AggregateScore = 0
		res.AggregateFlag = FlagNoScoredDocuments
	} else {
		res.AggregateScore = audit.RoundScore(sum / float64(res.ScoredDocuments))
	}

	res.CommonIssues = []int{}
	for id, n := range failing {
		if n >= 2 {
			res.CommonIssues = append(res.CommonIssues, id)
		}
	}
	sort.Ints(res.CommonIssues)
}

// Degenerate returns an unpersisted failed record for documentID.
func Degenerate(ctx context.Context, documentID string, cause error) *audit.Record {
	s := audit.NewSession(documentID, audit.SessionOptions{})
	_ = s.Fail(cause)
	return s.Snapshot()
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
