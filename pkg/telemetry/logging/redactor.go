package logging

import (
	"log/slog"
	"regexp"
	"strings"

	"formarter/compliance/pkg/config"
)

// Redactor masks personal data in log attributes and evidence snippets.
// Patterns are applied in a fixed order so the same input always yields
// the same output.
type Redactor struct {
	patterns []redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternBearerToken   = "bearer_token"
	PatternAPIKey        = "api_key"
	PatternEmail         = "email"
	PatternSSN           = "ssn"
	PatternDateOfBirth   = "date_of_birth"
	PatternAccountNumber = "account_number"
	PatternPhone         = "phone"
)

// defaultPatterns are ordered: the more specific shapes (SSN, date of
// birth) run before the looser phone pattern that would also match them.
var defaultPatterns = []struct {
	name        string
	expr        string
	replacement string
}{
	{PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***"},
	{PatternAPIKey, `\b(sk|ghp|gho|glpat)[-_][a-zA-Z0-9_]{8,}`, "$1-***"},
	{PatternEmail, `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, "***@***"},
	{PatternSSN, `\b\d{3}-\d{2}-\d{4}\b`, "***-**-****"},
	{PatternDateOfBirth, `(?i)\b(DOB|date of birth)(\s*[:.]?\s*)\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`, "$1$2**/**/****"},
	{PatternAccountNumber, `(?i)\b(account|acct\.?)(\s*(?:no\.?|number|#)?\s*[:.]?\s*)\d{6,}`, "$1$2********"},
	{PatternPhone, `(?:\+?1[-.\s]?)?\(?\b\d{3}\)?[-.\s]\d{3}[-.\s]\d{4}\b`, "***-***-****"},
}

// sensitiveKeys are attribute keys whose values are masked entirely.
var sensitiveKeys = []string{
	"password", "passwd", "secret", "token", "api_key", "apikey",
	"authorization", "passphrase", "private_key", "ssn",
}

// NewRedactor creates a Redactor with the built-in patterns followed by
// custom patterns. Custom patterns that do not compile are skipped;
// config validation reports them before a Redactor is built.
func NewRedactor(custom []config.RedactPattern) *Redactor {
	r := &Redactor{}
	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.expr),
			replacement: p.replacement,
		})
	}
	for _, p := range custom {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, redactPattern{name: p.Name, regex: re, replacement: p.Replacement})
	}
	return r
}

// Patterns returns the pattern names in application order.
func (r *Redactor) Patterns() []string {
	names := make([]string, len(r.patterns))
	for i, p := range r.patterns {
		names[i] = p.name
	}
	return names
}

// RedactString masks every pattern match in value.
func (r *Redactor) RedactString(value string) string {
	if r == nil || value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook. Values under
// sensitive keys are masked entirely; other string values are scanned for
// patterns.
func (r *Redactor) ReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if r == nil {
		return a
	}
	if a.Value.Kind() == slog.KindGroup {
		return a
	}
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, maskValue(a.Value.String()))
	}
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
	}
	return a
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// maskValue keeps a short prefix of long values for correlation.
func maskValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "***"
	}
	return v[:4] + "***"
}
