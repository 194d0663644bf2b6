package audit

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"formarter/compliance/pkg/checklist"
)

// SessionOptions configures a new session.
type SessionOptions struct {
	DocumentName   string
	Collection     string
	CatalogVersion string
	Context        checklist.Context

	// TotalItems is the number of rules the session will evaluate.
	TotalItems int

	// Formula selects the score denominator.
	// Default: FormulaExcludeWarnings
	Formula ScoreFormula

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Session is a single-document evaluation run. It is owned by the
// goroutine that created it and is not safe for concurrent use.
type Session struct {
	rec     Record
	formula ScoreFormula
	now     func() time.Time
	seen    map[int]struct{}
}

// NewSession creates a session for documentID. The session starts in
// StateInProgress.
func NewSession(documentID string, opts SessionOptions) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	formula := opts.Formula
	if !formula.Valid() {
		formula = FormulaExcludeWarnings
	}

	created := now().UTC()
	return &Session{
		rec: Record{
			SessionID:      NewSessionID(created),
			DocumentID:     documentID,
			DocumentName:   opts.DocumentName,
			Collection:     opts.Collection,
			Status:         StateInProgress,
			CatalogVersion: opts.CatalogVersion,
			CreatedAt:      created,
			UpdatedAt:      created,
			Context:        opts.Context,
			Progress:       Progress{TotalItems: opts.TotalItems},
			Summary:        Summary{ScoreFormula: formula},
			Results:        []checklist.Result{},
			CriticalIssues: []CriticalIssue{},
		},
		formula: formula,
		now:     now,
		seen:    make(map[int]struct{}, opts.TotalItems),
	}
}

// NewSessionID returns a sortable unique session id.
func NewSessionID(t time.Time) string {
	return fmt.Sprintf("audit-%s-%s", t.UTC().Format("20060102-150405"), uuid.NewString()[:8])
}

// ID returns the session id.
func (s *Session) ID() string { return s.rec.SessionID }

// DocumentID returns the audited document id.
func (s *Session) DocumentID() string { return s.rec.DocumentID }

// State returns the current state.
func (s *Session) State() State { return s.rec.Status }

// Progress returns the current progress counters.
func (s *Session) Progress() Progress { return s.rec.Progress }

// RecordResult appends a result and advances progress. It is legal only
// while the session is in progress, and each rule may be recorded once.
func (s *Session) RecordResult(res checklist.Result) error {
	if s.rec.Status != StateInProgress {
		return ErrSessionCompleted
	}
	if !res.Status.Valid() {
		return fmt.Errorf("%w: rule %d has status %q", ErrInvalidResult, res.RuleID, res.Status)
	}
	if _, dup := s.seen[res.RuleID]; dup {
		return fmt.Errorf("%w %d", ErrDuplicateResult, res.RuleID)
	}
	s.seen[res.RuleID] = struct{}{}

	s.rec.Results = append(s.rec.Results, res)
	s.rec.Progress.ItemsChecked++
	if s.rec.Progress.ItemsChecked > s.rec.Progress.TotalItems {
		s.rec.Progress.TotalItems = s.rec.Progress.ItemsChecked
	}
	s.rec.Progress.PercentComplete = percent(s.rec.Progress.ItemsChecked, s.rec.Progress.TotalItems)
	count(&s.rec.Summary, res.Status)
	s.rec.UpdatedAt = s.now().UTC()
	return nil
}

// Finalize computes the score and critical issues and completes the
// session. It may be called once.
func (s *Session) Finalize() error {
	if s.rec.Status != StateInProgress {
		return ErrSessionCompleted
	}

	sortResults(s.rec.Results)
	s.rec.Summary.Score, s.rec.Summary.ScoreFlag = Score(s.rec.Summary, s.formula)
	s.rec.CriticalIssues = criticalIssues(s.rec.Results)
	s.complete()
	return nil
}

// Fail completes the session as degenerate: the score is undefined and
// cause is recorded as the single error entry.
func (s *Session) Fail(cause error) error {
	if s.rec.Status != StateInProgress {
		return ErrSessionCompleted
	}

	if cause == nil {
		cause = errors.New("unknown failure")
	}
	s.rec.Degenerate = true
	s.rec.Errors = append(s.rec.Errors, cause.Error())
	s.rec.Summary.Score = 0
	s.rec.Summary.ScoreFlag = FlagAuditFailed
	s.rec.CriticalIssues = []CriticalIssue{}
	s.complete()
	return nil
}

// AddWarning attaches a session-level warning. Warnings may be added in
// any state.
func (s *Session) AddWarning(msg string) {
	s.rec.Warnings = append(s.rec.Warnings, msg)
}

// Snapshot returns a copy of the session's current record.
func (s *Session) Snapshot() *Record {
	return s.rec.Clone()
}

func (s *Session) complete() {
	t := s.now().UTC()
	s.rec.Status = StateCompleted
	s.rec.UpdatedAt = t
	s.rec.CompletedAt = &t
}

func count(sum *Summary, status checklist.Status) {
	switch status {
	case checklist.StatusPass:
		sum.Passed++
	case checklist.StatusFail:
		sum.Failed++
	case checklist.StatusWarning:
		sum.Warnings++
	case checklist.StatusManual:
		sum.ManualReview++
	case checklist.StatusNotApplicable:
		sum.NotApplicable++
	}
}

// Score computes the score for a summary. With a zero denominator it
// returns 0 and FlagNoCheckableItems.
func Score(sum Summary, formula ScoreFormula) (float64, string) {
	denominator := sum.Passed + sum.Failed
	if formula == FormulaIncludeWarnings {
		denominator += sum.Warnings
	}
	if denominator == 0 {
		return 0, FlagNoCheckableItems
	}
	return RoundScore(float64(sum.Passed) / float64(denominator) * 100), ""
}

// RoundScore rounds to one decimal place, halves away from zero.
func RoundScore(v float64) float64 {
	return math.Round(v*10) / 10
}

func percent(n, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}

func criticalIssues(results []checklist.Result) []CriticalIssue {
	issues := []CriticalIssue{}
	for _, res := range results {
		if res.Status == checklist.StatusFail && res.Severity == checklist.SeverityCritical {
			issues = append(issues, CriticalIssue{RuleID: res.RuleID, Description: res.Description})
		}
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].RuleID < issues[j].RuleID })
	return issues
}

func sortResults(results []checklist.Result) {
	sort.SliceStable(results, func(i, j int) bool { return results[i].RuleID < results[j].RuleID })
}
