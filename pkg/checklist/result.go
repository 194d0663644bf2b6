package checklist

// Status is the outcome of evaluating one rule against one document.
type Status string

const (
	StatusPass          Status = "pass"
	StatusFail          Status = "fail"
	StatusWarning       Status = "warning"
	StatusManual        Status = "manual"
	StatusNotApplicable Status = "not_applicable"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPass, StatusFail, StatusWarning, StatusManual, StatusNotApplicable:
		return true
	}
	return false
}

// Scored reports whether the status counts toward the score denominator
// under the default formula.
func (s Status) Scored() bool {
	return s == StatusPass || s == StatusFail
}

// MatchKind identifies which pattern produced a match.
type MatchKind string

const (
	MatchNone       MatchKind = "none"
	MatchPrimary    MatchKind = "primary"
	MatchRedundancy MatchKind = "redundancy"
)

// MatchSource records the pattern that matched, if any.
type MatchSource struct {
	Kind MatchKind `json:"kind"`

	// Index is the 1-based redundancy position. Zero otherwise.
	Index int `json:"index,omitempty"`

	// Pattern is the matching pattern as declared in the catalog.
	Pattern string `json:"pattern,omitempty"`
}

// Result is the evaluation result of one rule in one session.
type Result struct {
	RuleID      int         `json:"item_id"`
	Category    Category    `json:"category"`
	Description string      `json:"description"`
	Citation    string      `json:"citation,omitempty"`
	Severity    Severity    `json:"severity"`
	Status      Status      `json:"status"`
	MatchedBy   MatchSource `json:"matched_by"`
	Evidence    string      `json:"evidence,omitempty"`
	Line        int         `json:"line,omitempty"`
	Note        string      `json:"note"`
}
