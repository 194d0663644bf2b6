package checklist

import (
	"fmt"
	"regexp"
)

// Category groups related checklist items. The set is closed; unknown
// categories are rejected at load time.
type Category string

const (
	CategoryCaption            Category = "caption"
	CategoryMotionContent      Category = "motion_content"
	CategoryCertificateNotice  Category = "certificate_notice"
	CategorySecurityBond       Category = "security_bond"
	CategoryReliefRequested    Category = "relief_requested"
	CategoryVerification       Category = "verification"
	CategoryFormatting         Category = "formatting"
	CategorySignature          Category = "signature"
	CategoryCertificateService Category = "certificate_service"
	CategoryDateFiling         Category = "date_filing"
	CategoryExhibits           Category = "exhibits"
	CategoryProposedOrder      Category = "proposed_order"
	CategoryUrgentEmergency    Category = "urgent_emergency"
	CategoryProSe              Category = "pro_se"
)

var categoryTitles = map[Category]string{
	CategoryCaption:            "Caption and Title",
	CategoryMotionContent:      "Motion Content",
	CategoryCertificateNotice:  "Certificate of Notice",
	CategorySecurityBond:       "Security/Bond",
	CategoryReliefRequested:    "Relief Requested",
	CategoryVerification:       "Verification/Declaration",
	CategoryFormatting:         "Formatting",
	CategorySignature:          "Signature Block",
	CategoryCertificateService: "Certificate of Service",
	CategoryDateFiling:         "Date and Filing",
	CategoryExhibits:           "Exhibits and Attachments",
	CategoryProposedOrder:      "Proposed Order",
	CategoryUrgentEmergency:    "Urgent/Emergency",
	CategoryProSe:              "Pro Se Specific",
}

// Categories returns every category in checklist order.
func Categories() []Category {
	return []Category{
		CategoryCaption,
		CategoryMotionContent,
		CategoryCertificateNotice,
		CategorySecurityBond,
		CategoryReliefRequested,
		CategoryVerification,
		CategoryFormatting,
		CategorySignature,
		CategoryCertificateService,
		CategoryDateFiling,
		CategoryExhibits,
		CategoryProposedOrder,
		CategoryUrgentEmergency,
		CategoryProSe,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryTitles[c]
	return ok
}

// Title returns the human-readable heading for the category.
func (c Category) Title() string {
	if title, ok := categoryTitles[c]; ok {
		return title
	}
	return string(c)
}

// Severity determines how a failed check is reported.
type Severity string

const (
	// SeverityCritical failures are listed in a session's critical issues.
	SeverityCritical Severity = "critical"

	// SeverityWarning marks informational checks. A failed check is
	// reported as a warning and is excluded from the score.
	SeverityWarning Severity = "warning"

	SeverityNormal Severity = "normal"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityNormal:
		return true
	}
	return false
}

// Polarity is the direction of a check.
type Polarity string

const (
	// PolarityPositive rules pass when a pattern matches.
	PolarityPositive Polarity = "positive"

	// PolarityNegative rules fail when a pattern matches (prohibited content).
	PolarityNegative Polarity = "negative"
)

// Valid reports whether p is a known polarity.
func (p Polarity) Valid() bool {
	return p == PolarityPositive || p == PolarityNegative
}

// Applicability gates whether a rule is evaluated for a document at all.
type Applicability string

const (
	ApplicabilityNone Applicability = "none"
	RequiresExParte   Applicability = "requires_ex_parte"
	RequiresUrgent    Applicability = "requires_urgent"
)

// Valid reports whether a is a known applicability predicate.
func (a Applicability) Valid() bool {
	switch a {
	case ApplicabilityNone, RequiresExParte, RequiresUrgent:
		return true
	}
	return false
}

// SatisfiedBy reports whether the predicate holds for ctx. A nil context
// satisfies only ApplicabilityNone.
func (a Applicability) SatisfiedBy(ctx *Context) bool {
	switch a {
	case ApplicabilityNone:
		return true
	case RequiresExParte:
		return ctx != nil && ctx.IsExParte
	case RequiresUrgent:
		return ctx != nil && ctx.IsUrgent
	}
	return false
}

// Context carries the case metadata flags that condition rule applicability.
type Context struct {
	IsExParte      bool `json:"is_ex_parte" yaml:"is_ex_parte"`
	IsUrgent       bool `json:"is_urgent" yaml:"is_urgent"`
	HasCaseProfile bool `json:"has_case_profile" yaml:"has_case_profile"`
}

// Region bounds the part of the document a rule searches. The zero value
// means the full text.
type Region struct {
	// FirstLines restricts matching to the first N lines.
	FirstLines int `json:"first_lines,omitempty" yaml:"first_lines"`

	// LastLines restricts matching to the last N lines.
	LastLines int `json:"last_lines,omitempty" yaml:"last_lines"`
}

// IsZero reports whether the region covers the whole document.
func (r Region) IsZero() bool {
	return r.FirstLines == 0 && r.LastLines == 0
}

// Pattern is a compiled, case-insensitive detection pattern.
type Pattern struct {
	source  string
	literal bool
	re      *regexp.Regexp
}

// CompilePattern compiles a regular expression pattern. Matching is always
// case-insensitive.
func CompilePattern(expr string) (Pattern, error) {
	return compilePattern(expr, false)
}

// CompileLiteral compiles a pattern that matches text verbatim.
func CompileLiteral(text string) (Pattern, error) {
	return compilePattern(text, true)
}

// MustPattern is like CompilePattern but panics on error.
func MustPattern(expr string) Pattern {
	p, err := CompilePattern(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func compilePattern(source string, literal bool) (Pattern, error) {
	if source == "" {
		return Pattern{}, fmt.Errorf("empty pattern")
	}
	expr := source
	if literal {
		expr = regexp.QuoteMeta(source)
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return Pattern{}, err
	}
	return Pattern{source: source, literal: literal, re: re}, nil
}

// String returns the pattern as declared in the catalog.
func (p Pattern) String() string {
	return p.source
}

// Literal reports whether the pattern matches its text verbatim.
func (p Pattern) Literal() bool {
	return p.literal
}

// Regexp returns the compiled expression, or nil for the zero Pattern.
func (p Pattern) Regexp() *regexp.Regexp {
	return p.re
}

// IsZero reports whether the pattern is unset.
func (p Pattern) IsZero() bool {
	return p.re == nil
}

// Rule is one checklist item. Rules handed out by a Catalog are shared and
// must not be modified.
type Rule struct {
	ID            int
	Category      Category
	Description   string
	Citation      string
	Severity      Severity
	Polarity      Polarity
	Applicability Applicability
	AutoCheckable bool

	// Primary is tried first. Redundancy patterns are tried in order only
	// when Primary does not match.
	Primary    Pattern
	Redundancy []Pattern

	Region Region

	SuccessCriteria string
	Explanation     string
	FixSuggestion   string

	// GeneratedFix is true when the catalog declared no fix suggestion and
	// FixSuggestion was derived from the description.
	GeneratedFix bool
}

// Informational reports whether a failed check is reported as a warning.
func (r *Rule) Informational() bool {
	return r.Severity == SeverityWarning
}

// Guidance returns the fix guidance for the rule.
func (r *Rule) Guidance() *Guidance {
	return &Guidance{
		RuleID:          r.ID,
		Category:        r.Category,
		Description:     r.Description,
		Citation:        r.Citation,
		Severity:        r.Severity,
		SuccessCriteria: r.SuccessCriteria,
		Explanation:     r.Explanation,
		FixSuggestion:   r.FixSuggestion,
	}
}

// validate checks a single rule in isolation.
func (r *Rule) validate() error {
	if r.ID <= 0 {
		return &MalformedRuleError{RuleID: r.ID, Field: "id", Reason: "must be a positive integer"}
	}
	if !r.Category.Valid() {
		return &MalformedRuleError{RuleID: r.ID, Field: "category", Reason: fmt.Sprintf("unknown category %q", r.Category)}
	}
	if !r.Severity.Valid() {
		return &MalformedRuleError{RuleID: r.ID, Field: "severity", Reason: fmt.Sprintf("unknown severity %q", r.Severity)}
	}
	if !r.Polarity.Valid() {
		return &MalformedRuleError{RuleID: r.ID, Field: "polarity", Reason: fmt.Sprintf("unknown polarity %q", r.Polarity)}
	}
	if !r.Applicability.Valid() {
		return &MalformedRuleError{RuleID: r.ID, Field: "applies_when", Reason: fmt.Sprintf("unknown applicability %q", r.Applicability)}
	}
	if r.Region.FirstLines < 0 || r.Region.LastLines < 0 {
		return &MalformedRuleError{RuleID: r.ID, Field: "region", Reason: "line counts must not be negative"}
	}
	if r.Region.FirstLines > 0 && r.Region.LastLines > 0 {
		return &MalformedRuleError{RuleID: r.ID, Field: "region", Reason: "first_lines and last_lines are mutually exclusive"}
	}
	if r.AutoCheckable && r.Primary.IsZero() {
		return &MalformedRuleError{RuleID: r.ID, Field: "primary", Reason: "auto-checkable rule has no pattern"}
	}
	if r.Primary.IsZero() && len(r.Redundancy) > 0 {
		return &MalformedRuleError{RuleID: r.ID, Field: "redundancy", Reason: "redundancy patterns require a primary pattern"}
	}
	for i, p := range r.Redundancy {
		if p.IsZero() {
			return &MalformedRuleError{RuleID: r.ID, Field: fmt.Sprintf("redundancy[%d]", i), Reason: "empty pattern"}
		}
	}
	return nil
}

// Guidance is the fix guidance returned for a rule.
type Guidance struct {
	RuleID          int      `json:"item_id"`
	Category        Category `json:"category"`
	Description     string   `json:"description"`
	Citation        string   `json:"citation,omitempty"`
	Severity        Severity `json:"severity"`
	SuccessCriteria string   `json:"success_criteria"`
	Explanation     string   `json:"rule_explanation"`
	FixSuggestion   string   `json:"fix_suggestion"`
}
