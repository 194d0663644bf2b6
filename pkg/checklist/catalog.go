package checklist

import (
	_ "embed"
	"fmt"
	"sort"
)

//go:embed catalogs/tro_motion.yaml
var defaultCatalog []byte

// DefaultCatalogYAML returns the built-in TRO motion checklist.
func DefaultCatalogYAML() []byte {
	out := make([]byte, len(defaultCatalog))
	copy(out, defaultCatalog)
	return out
}

// Catalog is an immutable, validated set of rules. All methods are safe
// for concurrent use.
type Catalog struct {
	name    string
	version string

	rules      []*Rule // ascending id
	byID       map[int]*Rule
	byCategory map[Category][]*Rule
}

// Load parses and validates YAML catalog data. Any invalid definition
// fails the whole load.
func Load(data []byte) (*Catalog, error) {
	file, err := parseCatalogFile(data)
	if err != nil {
		return nil, err
	}

	rules := make([]*Rule, 0, len(file.Rules))
	for i := range file.Rules {
		rule, err := file.Rules[i].toRule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return New(file.Name, file.Version, rules)
}

// LoadDefault loads the built-in TRO motion checklist.
func LoadDefault() (*Catalog, error) {
	return Load(defaultCatalog)
}

// New builds a catalog from already compiled rules. It rejects duplicate
// ids and rules that fail validation.
func New(name, version string, rules []*Rule) (*Catalog, error) {
	if len(rules) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		name:       name,
		version:    version,
		rules:      make([]*Rule, 0, len(rules)),
		byID:       make(map[int]*Rule, len(rules)),
		byCategory: make(map[Category][]*Rule),
	}

	for _, rule := range rules {
		if rule == nil {
			return nil, &MalformedRuleError{Field: "rule", Reason: "nil definition"}
		}
		if err := rule.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[rule.ID]; dup {
			return nil, &MalformedRuleError{RuleID: rule.ID, Field: "id", Reason: "duplicate id"}
		}
		c.byID[rule.ID] = rule
		c.rules = append(c.rules, rule)
	}

	sort.Slice(c.rules, func(i, j int) bool { return c.rules[i].ID < c.rules[j].ID })
	for _, rule := range c.rules {
		c.byCategory[rule.Category] = append(c.byCategory[rule.Category], rule)
	}

	return c, nil
}

// Name returns the catalog name.
func (c *Catalog) Name() string { return c.name }

// Version returns the catalog version string.
func (c *Catalog) Version() string { return c.version }

// Len returns the number of rules.
func (c *Catalog) Len() int { return len(c.rules) }

// Get returns the rule with the given id.
func (c *Catalog) Get(id int) (*Rule, error) {
	rule, ok := c.byID[id]
	if !ok {
		return nil, &RuleNotFoundError{RuleID: id}
	}
	return rule, nil
}

// ByCategory returns the rules in a category in ascending id order.
func (c *Catalog) ByCategory(category Category) []*Rule {
	rules := c.byCategory[category]
	out := make([]*Rule, len(rules))
	copy(out, rules)
	return out
}

// All returns every rule in ascending id order.
func (c *Catalog) All() []*Rule {
	out := make([]*Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Guidance returns the fix guidance for a rule id.
func (c *Catalog) Guidance(id int) (*Guidance, error) {
	rule, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	return rule.Guidance(), nil
}

// Stats summarizes the catalog composition.
type Stats struct {
	Total         int
	AutoCheckable int
	Critical      int
	Conditional   int
	ByCategory    map[Category]int
}

// Stats counts rules by kind.
func (c *Catalog) Stats() Stats {
	s := Stats{Total: len(c.rules), ByCategory: make(map[Category]int)}
	for _, rule := range c.rules {
		if rule.AutoCheckable {
			s.AutoCheckable++
		}
		if rule.Severity == SeverityCritical {
			s.Critical++
		}
		if rule.Applicability != ApplicabilityNone {
			s.Conditional++
		}
		s.ByCategory[rule.Category]++
	}
	return s
}

// String returns a short description for logs.
func (c *Catalog) String() string {
	return fmt.Sprintf("%s@%s (%d rules)", c.name, c.version, len(c.rules))
}
