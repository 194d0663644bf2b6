// Package classifier turns pattern match outcomes into rule statuses.
//
// Classification order:
//
//  1. an unmet applicability predicate yields not_applicable
//  2. a rule that is not auto-checkable yields manual
//  3. positive rules pass on any match, negative rules fail on any match
//
// A failing informational rule (severity warning) is reported as warning
// instead of fail.
package classifier

import (
	"fmt"

	"formarter/compliance/pkg/checklist"
	"formarter/compliance/pkg/checklist/matcher"
)

// Note texts that do not depend on the rule.
const (
	NoteManual         = "requires manual review"
	NoteContextMissing = "not applicable: applicability context missing"
	NoteNoProhibited   = "no prohibited content found"
)

// Classify produces the result for rule from a match outcome. It performs
// no I/O and returns identical results for identical input.
func Classify(rule *checklist.Rule, outcome matcher.Outcome, ctx *checklist.Context) checklist.Result {
	res := checklist.Result{
		RuleID:      rule.ID,
		Category:    rule.Category,
		Description: rule.Description,
		Citation:    rule.Citation,
		Severity:    rule.Severity,
		MatchedBy:   checklist.MatchSource{Kind: checklist.MatchNone},
	}

	if !rule.Applicability.SatisfiedBy(ctx) {
		res.Status = checklist.StatusNotApplicable
		res.Note = notApplicableNote(rule.Applicability, ctx)
		return res
	}

	if !rule.AutoCheckable {
		res.Status = checklist.StatusManual
		res.Note = NoteManual
		return res
	}

	src, matched := source(rule, outcome)
	if matched {
		res.MatchedBy = src
		res.Evidence = outcome.Evidence
		res.Line = outcome.Line
	}

	switch rule.Polarity {
	case checklist.PolarityNegative:
		if matched {
			res.Status = failStatus(rule)
			res.Note = "prohibited content matched " + describe(res.MatchedBy)
		} else {
			res.Status = checklist.StatusPass
			res.Note = NoteNoProhibited
		}
	default:
		if matched {
			res.Status = checklist.StatusPass
			res.Note = "matched " + describe(res.MatchedBy)
		} else {
			res.Status = failStatus(rule)
			res.Note = missNote(rule)
		}
	}

	if res.Status == checklist.StatusWarning {
		res.Note += " (informational)"
	}
	return res
}

func failStatus(rule *checklist.Rule) checklist.Status {
	if rule.Informational() {
		return checklist.StatusWarning
	}
	return checklist.StatusFail
}

// source resolves the pattern named by outcome. A redundancy position
// outside the rule's declared patterns counts as no match.
func source(rule *checklist.Rule, outcome matcher.Outcome) (checklist.MatchSource, bool) {
	switch {
	case outcome.PrimaryMatched:
		return checklist.MatchSource{Kind: checklist.MatchPrimary, Pattern: rule.Primary.String()}, true
	case outcome.Redundancy > 0 && outcome.Redundancy <= len(rule.Redundancy):
		return checklist.MatchSource{
			Kind:    checklist.MatchRedundancy,
			Index:   outcome.Redundancy,
			Pattern: rule.Redundancy[outcome.Redundancy-1].String(),
		}, true
	}
	return checklist.MatchSource{}, false
}

func describe(src checklist.MatchSource) string {
	switch src.Kind {
	case checklist.MatchPrimary:
		return "primary pattern"
	case checklist.MatchRedundancy:
		return fmt.Sprintf("redundancy pattern %d %q", src.Index, src.Pattern)
	}
	return "no pattern"
}

func missNote(rule *checklist.Rule) string {
	switch n := len(rule.Redundancy); n {
	case 0:
		return "primary pattern not found"
	case 1:
		return "primary pattern and 1 redundancy pattern not found"
	default:
		return fmt.Sprintf("primary pattern and %d redundancy patterns not found", n)
	}
}

func notApplicableNote(a checklist.Applicability, ctx *checklist.Context) string {
	if ctx == nil {
		return NoteContextMissing
	}
	switch a {
	case checklist.RequiresExParte:
		return "not applicable: motion is not filed ex parte"
	case checklist.RequiresUrgent:
		return "not applicable: motion is not marked urgent"
	}
	return "not applicable"
}
