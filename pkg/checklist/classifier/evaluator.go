package classifier

import (
	"formarter/compliance/pkg/checklist"
	"formarter/compliance/pkg/checklist/matcher"
)

// EvidenceFilter rewrites an evidence snippet before it is stored, for
// example to redact personal data.
type EvidenceFilter func(string) string

// Evaluator runs the matcher and the classifier for one rule at a time.
// It is stateless and safe for concurrent use.
type Evaluator struct {
	matcher *matcher.Matcher
	filter  EvidenceFilter
}

// NewEvaluator creates an Evaluator. A nil matcher uses defaults; a nil
// filter keeps evidence unchanged.
func NewEvaluator(m *matcher.Matcher, filter EvidenceFilter) *Evaluator {
	if m == nil {
		m = &matcher.Matcher{}
	}
	return &Evaluator{matcher: m, filter: filter}
}

// Evaluate classifies rule against text. Rules that are not applicable or
// not auto-checkable are classified without running any pattern.
func (e *Evaluator) Evaluate(text string, rule *checklist.Rule, ctx *checklist.Context) checklist.Result {
	var outcome matcher.Outcome
	if rule.AutoCheckable && rule.Applicability.SatisfiedBy(ctx) {
		outcome = e.matcher.Evaluate(text, rule)
	}

	res := Classify(rule, outcome, ctx)
	if e.filter != nil && res.Evidence != "" {
		res.Evidence = e.filter(res.Evidence)
	}
	return res
}
