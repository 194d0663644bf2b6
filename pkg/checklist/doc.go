// Package checklist provides the rule catalog for TRO motion compliance
// audits.
//
// # Catalog
//
// A Catalog is an immutable table of Rules loaded once at startup. Loading
// validates every definition and fails on the first problem:
//
//   - duplicate rule ids
//   - unknown category, severity, polarity or applicability values
//   - an auto-checkable rule without a primary pattern
//   - a pattern that does not compile
//
// Patterns are compiled once, case-insensitive, and cached on the Rule.
//
// # Catalog Format
//
//	name: tro-motion
//	version: "2024.2"
//	rules:
//	  - id: 21
//	    category: motion_content
//	    description: States specific facts showing irreparable injury
//	    citation: Fed. R. Civ. P. 65(b)(1)(A)
//	    severity: critical
//	    auto_checkable: true
//	    primary: 'irreparable\s+(harm|injury|damage)'
//	    redundancy:
//	      - 'cannot\s+be\s+undone'
//
// A pattern may also be given as {text: "..."} to match literally. Rules
// may set polarity: negative (a match is a failure), applies_when
// (requires_ex_parte or requires_urgent) and region ({first_lines: N} or
// {last_lines: N}).
//
// The built-in 107-item checklist is embedded in the binary and returned by
// LoadDefault.
package checklist
