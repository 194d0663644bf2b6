package checklist

import (
	"errors"
	"fmt"
)

var (
	// ErrRuleNotFound indicates a rule id that is not in the catalog.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrMalformedRule is matched by every MalformedRuleError via errors.Is.
	ErrMalformedRule = errors.New("malformed rule definition")

	// ErrEmptyCatalog indicates a catalog without rules.
	ErrEmptyCatalog = errors.New("catalog contains no rules")
)

// MalformedRuleError reports an invalid rule definition. It is only ever
// returned while loading a catalog.
type MalformedRuleError struct {
	RuleID int
	Field  string
	Reason string
	Cause  error
}

// Error returns the error message.
func (e *MalformedRuleError) Error() string {
	msg := fmt.Sprintf("malformed rule %d: %s: %s", e.RuleID, e.Field, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *MalformedRuleError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrMalformedRule) true for every MalformedRuleError.
func (e *MalformedRuleError) Is(target error) bool {
	return target == ErrMalformedRule
}

// RuleNotFoundError carries the unknown rule id.
type RuleNotFoundError struct {
	RuleID int
}

// Error returns the error message.
func (e *RuleNotFoundError) Error() string {
	return fmt.Sprintf("rule %d: %s", e.RuleID, ErrRuleNotFound)
}

// Is makes errors.Is(err, ErrRuleNotFound) true.
func (e *RuleNotFoundError) Is(target error) bool {
	return target == ErrRuleNotFound
}
