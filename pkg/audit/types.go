package audit

import (
	"context"
	"io"
	"time"

	"formarter/compliance/pkg/checklist"
)

// State is the lifecycle state of an audit session.
type State string

const (
	// StateNotStarted exists only before a session is created; sessions
	// are never observed in this state.
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// ScoreFormula selects the score denominator.
type ScoreFormula string

const (
	// FormulaExcludeWarnings scores passed / (passed + failed).
	FormulaExcludeWarnings ScoreFormula = "exclude_warnings"

	// FormulaIncludeWarnings scores passed / (passed + failed + warnings),
	// matching legacy reports.
	FormulaIncludeWarnings ScoreFormula = "include_warnings"
)

// Valid reports whether f is a known formula.
func (f ScoreFormula) Valid() bool {
	return f == FormulaExcludeWarnings || f == FormulaIncludeWarnings
}

// Score flags explain an undefined score. The score itself is reported as 0.
const (
	FlagNoCheckableItems = "no checkable items evaluated"
	FlagAuditFailed      = "audit failed before evaluation"
)

// Progress tracks how far a session has come.
type Progress struct {
	TotalItems      int `json:"total_items"`
	ItemsChecked    int `json:"items_checked"`
	PercentComplete int `json:"percent_complete"`
}

// Summary holds per-status counts and the score.
type Summary struct {
	Passed        int          `json:"passed"`
	Failed        int          `json:"failed"`
	Warnings      int          `json:"warnings"`
	ManualReview  int          `json:"manual_review"`
	NotApplicable int          `json:"not_applicable"`
	Score         float64      `json:"score"`
	ScoreFormula  ScoreFormula `json:"score_formula"`
	ScoreFlag     string       `json:"score_flag,omitempty"`
}

// ScoreDefined reports whether Score is meaningful.
func (s Summary) ScoreDefined() bool {
	return s.ScoreFlag == ""
}

// CriticalIssue is a failed rule of critical severity.
type CriticalIssue struct {
	RuleID      int    `json:"item_id"`
	Description string `json:"description"`
}

// Record is the persisted form of an audit session.
type Record struct {
	SessionID      string             `json:"session_id"`
	DocumentID     string             `json:"document_id"`
	DocumentName   string             `json:"document_name,omitempty"`
	Collection     string             `json:"collection,omitempty"`
	Status         State              `json:"status"`
	CatalogVersion string             `json:"catalog_version,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
	Context        checklist.Context  `json:"context"`
	Progress       Progress           `json:"progress"`
	Summary        Summary            `json:"summary"`
	Results        []checklist.Result `json:"results"`
	CriticalIssues []CriticalIssue    `json:"critical_issues"`
	Warnings       []string           `json:"warnings,omitempty"`
	Errors         []string           `json:"errors,omitempty"`
	Degenerate     bool               `json:"degenerate,omitempty"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	c.Results = cloneSlice(r.Results)
	c.CriticalIssues = cloneSlice(r.CriticalIssues)
	c.Warnings = cloneSlice(r.Warnings)
	c.Errors = cloneSlice(r.Errors)
	return &c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

// Failing returns the results with status fail in ascending rule id order.
func (r *Record) Failing() []checklist.Result {
	var out []checklist.Result
	for _, res := range r.Results {
		if res.Status == checklist.StatusFail {
			out = append(out, res)
		}
	}
	sortResults(out)
	return out
}

// FailedRuleIDs returns the ids of failed rules in ascending order.
func (r *Record) FailedRuleIDs() []int {
	failing := r.Failing()
	ids := make([]int, len(failing))
	for i, res := range failing {
		ids[i] = res.RuleID
	}
	return ids
}

// Query defines filter parameters for audit records.
type Query struct {
	SessionID  string `json:"session_id,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	Collection string `json:"collection,omitempty"`
	Status     State  `json:"status,omitempty"`

	// Time range on CreatedAt, inclusive.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	MinScore *float64 `json:"min_score,omitempty"`
	MaxScore *float64 `json:"max_score,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// SortOrder is "asc" or "desc" on CreatedAt. Default: desc.
	SortOrder string `json:"sort_order,omitempty"`
}

// Matches reports whether rec satisfies the query filters. Pagination and
// sorting are not considered.
func (q *Query) Matches(rec *Record) bool {
	if q == nil {
		return true
	}
	if q.SessionID != "" && rec.SessionID != q.SessionID {
		return false
	}
	if q.DocumentID != "" && rec.DocumentID != q.DocumentID {
		return false
	}
	if q.Collection != "" && rec.Collection != q.Collection {
		return false
	}
	if q.Status != "" && rec.Status != q.Status {
		return false
	}
	if q.StartTime != nil && rec.CreatedAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && rec.CreatedAt.After(*q.EndTime) {
		return false
	}
	if q.MinScore != nil && rec.Summary.Score < *q.MinScore {
		return false
	}
	if q.MaxScore != nil && rec.Summary.Score > *q.MaxScore {
		return false
	}
	return true
}

// Store persists audit records. Saving a record with an existing session
// id replaces it. Implementations must be safe for concurrent use and
// keep records of different documents independent.
type Store interface {
	// Save inserts or replaces the record for rec.SessionID.
	Save(ctx context.Context, rec *Record) error

	// Get returns the record for a session id or ErrSessionNotFound.
	Get(ctx context.Context, sessionID string) (*Record, error)

	// Latest returns the most recent record for a document or
	// ErrSessionNotFound.
	Latest(ctx context.Context, documentID string) (*Record, error)

	// Query returns records matching the filters, newest first by default.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of records matching the filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes matching records and returns how many were removed.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases resources held by the backend.
	Close() error
}

// Exporter writes audit records in a report format.
type Exporter interface {
	// Export writes records to w.
	Export(ctx context.Context, records []*Record, w io.Writer) error

	// Format returns the export format name.
	Format() string

	// ContentType returns the MIME type of the export.
	ContentType() string
}

// CurrentStore is implemented by stores that keep a single current-session
// record for interactive audits.
type CurrentStore interface {
	// SaveCurrent replaces the current-session record.
	SaveCurrent(ctx context.Context, rec *Record) error

	// Current returns the current-session record or ErrSessionNotFound.
	Current(ctx context.Context) (*Record, error)
}
