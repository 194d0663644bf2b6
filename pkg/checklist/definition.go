package checklist

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk YAML layout of a catalog.
type catalogFile struct {
	Name    string           `yaml:"name"`
	Version string           `yaml:"version"`
	Rules   []ruleDefinition `yaml:"rules"`
}

// ruleDefinition is the loosely typed YAML form of a Rule.
type ruleDefinition struct {
	ID              int           `yaml:"id"`
	Category        string        `yaml:"category"`
	Description     string        `yaml:"description"`
	Citation        string        `yaml:"citation"`
	Severity        string        `yaml:"severity"`
	Polarity        string        `yaml:"polarity"`
	AppliesWhen     string        `yaml:"applies_when"`
	AutoCheckable   bool          `yaml:"auto_checkable"`
	Region          Region        `yaml:"region"`
	Primary         *patternSpec  `yaml:"primary"`
	Redundancy      []patternSpec `yaml:"redundancy"`
	SuccessCriteria string        `yaml:"success_criteria"`
	Explanation     string        `yaml:"explanation"`
	FixSuggestion   string        `yaml:"fix_suggestion"`
}

// patternSpec accepts either a scalar regular expression or a mapping
// with exactly one of "regex" or "text".
type patternSpec struct {
	Regex string `yaml:"regex"`
	Text  string `yaml:"text"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *patternSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		p.Regex = node.Value
		return nil
	}

	type plain patternSpec
	var raw plain
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if (raw.Regex == "") == (raw.Text == "") {
		return fmt.Errorf("line %d: pattern needs exactly one of regex or text", node.Line)
	}
	*p = patternSpec(raw)
	return nil
}

func (p patternSpec) compile() (Pattern, error) {
	if p.Text != "" {
		return CompileLiteral(p.Text)
	}
	return CompilePattern(p.Regex)
}

// parseCatalogFile decodes YAML catalog data. Unknown keys are rejected.
func parseCatalogFile(data []byte) (*catalogFile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyCatalog
		}
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	return &file, nil
}

// toRule converts a definition into a Rule, compiling its patterns and
// applying defaults for omitted enum fields and guidance text.
func (d *ruleDefinition) toRule() (*Rule, error) {
	rule := &Rule{
		ID:              d.ID,
		Category:        Category(d.Category),
		Description:     d.Description,
		Citation:        d.Citation,
		Severity:        Severity(d.Severity),
		Polarity:        Polarity(d.Polarity),
		Applicability:   Applicability(d.AppliesWhen),
		AutoCheckable:   d.AutoCheckable,
		Region:          d.Region,
		SuccessCriteria: d.SuccessCriteria,
		Explanation:     d.Explanation,
		FixSuggestion:   d.FixSuggestion,
	}

	if rule.Severity == "" {
		rule.Severity = SeverityNormal
	}
	if rule.Polarity == "" {
		rule.Polarity = PolarityPositive
	}
	if rule.Applicability == "" {
		rule.Applicability = ApplicabilityNone
	}
	if rule.Description == "" {
		return nil, &MalformedRuleError{RuleID: d.ID, Field: "description", Reason: "must not be empty"}
	}

	if d.Primary != nil {
		p, err := d.Primary.compile()
		if err != nil {
			return nil, &MalformedRuleError{RuleID: d.ID, Field: "primary", Reason: "invalid pattern", Cause: err}
		}
		rule.Primary = p
	}
	for i, spec := range d.Redundancy {
		p, err := spec.compile()
		if err != nil {
			return nil, &MalformedRuleError{RuleID: d.ID, Field: fmt.Sprintf("redundancy[%d]", i), Reason: "invalid pattern", Cause: err}
		}
		rule.Redundancy = append(rule.Redundancy, p)
	}

	fillGuidance(rule)
	return rule, nil
}

// fillGuidance supplies guidance text for rules that declare none.
func fillGuidance(rule *Rule) {
	if rule.SuccessCriteria == "" {
		rule.SuccessCriteria = rule.Description + "."
	}
	if rule.Explanation == "" && rule.Citation != "" {
		rule.Explanation = "Required by " + rule.Citation + "."
	}
	if rule.FixSuggestion == "" {
		rule.GeneratedFix = true
		if rule.AutoCheckable {
			rule.FixSuggestion = "Revise the document so that it satisfies: " + rule.Description + "."
		} else {
			rule.FixSuggestion = "Review the document by hand and confirm: " + rule.Description + "."
		}
	}
}
