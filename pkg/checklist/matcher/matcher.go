// Package matcher evaluates a single checklist rule against document text.
//
// Evaluation is a pure function of the text and the rule: the primary
// pattern is tried first and short-circuits on a match; otherwise the
// redundancy patterns are tried in declared order and the first match wins.
// A miss is a normal outcome, never an error.
package matcher

import (
	"strings"
	"unicode/utf8"

	"formarter/compliance/pkg/checklist"
)

// DefaultMaxEvidence is the evidence snippet limit used by a zero Matcher.
const DefaultMaxEvidence = 120

// evidenceContext is how many bytes of surrounding text are kept on each
// side of a match.
const evidenceContext = 30

// Outcome is the raw result of matching one rule. The zero value is an
// outcome where nothing matched.
type Outcome struct {
	// PrimaryMatched is true when the primary pattern matched.
	PrimaryMatched bool

	// Redundancy is the 1-based position of the matching redundancy
	// pattern. Zero when no redundancy pattern matched.
	Redundancy int

	// Evidence is a snippet around the match. Empty when nothing matched.
	Evidence string

	// Line is the 1-based line of the match in the full text, 0 when
	// nothing matched.
	Line int
}

// Matched reports whether any pattern matched.
func (o Outcome) Matched() bool {
	return o.PrimaryMatched || o.Redundancy > 0
}

// Matcher evaluates rules. The zero value is ready to use.
type Matcher struct {
	// MaxEvidence caps evidence snippets in bytes.
	// Default: 120
	MaxEvidence int
}

// New creates a Matcher with the given evidence limit. A non-positive
// limit selects DefaultMaxEvidence.
func New(maxEvidence int) *Matcher {
	return &Matcher{MaxEvidence: maxEvidence}
}

// Evaluate matches rule against text. Rules without a primary pattern
// (manual items) always produce an unmatched outcome.
func (m *Matcher) Evaluate(text string, rule *checklist.Rule) Outcome {
	var out Outcome
	if rule == nil || rule.Primary.IsZero() {
		return out
	}

	region, offset := bound(text, rule.Region)

	if loc := rule.Primary.Regexp().FindStringIndex(region); loc != nil {
		out.PrimaryMatched = true
		out.Evidence = m.snippet(region, loc)
		out.Line = lineOf(text, offset+loc[0])
		return out
	}

	for i, p := range rule.Redundancy {
		if loc := p.Regexp().FindStringIndex(region); loc != nil {
			out.Redundancy = i + 1
			out.Evidence = m.snippet(region, loc)
			out.Line = lineOf(text, offset+loc[0])
			return out
		}
	}

	return out
}

// Evaluate matches rule against text with a default Matcher.
func Evaluate(text string, rule *checklist.Rule) Outcome {
	var m Matcher
	return m.Evaluate(text, rule)
}

// bound returns the part of text covered by region and its byte offset.
func bound(text string, region checklist.Region) (string, int) {
	switch {
	case region.FirstLines > 0:
		end := 0
		for n := 0; n < region.FirstLines; n++ {
			i := strings.IndexByte(text[end:], '\n')
			if i < 0 {
				return text, 0
			}
			end += i + 1
		}
		return text[:end], 0

	case region.LastLines > 0:
		trimmed := strings.TrimRight(text, "\n")
		start := len(trimmed)
		for n := 0; n < region.LastLines; n++ {
			i := strings.LastIndexByte(trimmed[:start], '\n')
			if i < 0 {
				return text, 0
			}
			start = i
		}
		return text[start+1:], start + 1
	}
	return text, 0
}

// lineOf returns the 1-based line number of byte offset pos.
func lineOf(text string, pos int) int {
	return strings.Count(text[:pos], "\n") + 1
}

// snippet extracts the match with surrounding context, collapses runs of
// whitespace and truncates to the evidence limit.
func (m *Matcher) snippet(text string, loc []int) string {
	limit := m.MaxEvidence
	if limit <= 0 {
		limit = DefaultMaxEvidence
	}

	start := max(loc[0]-evidenceContext, 0)
	end := min(loc[1]+evidenceContext, len(text))
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}

	s := strings.Join(strings.Fields(text[start:end]), " ")
	if len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = strings.TrimSpace(s[:cut]) + "..."
	}
	return s
}
