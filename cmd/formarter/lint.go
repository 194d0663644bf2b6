package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"formarter/compliance/pkg/checklist"
	"formarter/compliance/pkg/cli"
)

var lintFlags struct {
	file   string
	dir    string
	strict bool
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate checklist catalog files",
	Long: `Validate rule catalog files before they are deployed.

Every rule is checked for a known category, severity, polarity and
applicability, compilable patterns, and a pattern on every auto-checkable
rule. Rules without a fix suggestion or citation are reported as warnings.
Without --file or --dir the built-in catalog is checked.

Examples:
  # Lint a single catalog
  formarter lint --file catalog.yaml

  # Lint a directory of catalogs, failing on warnings
  formarter lint --dir catalogs/ --strict

  # JSON output for CI
  formarter lint --file catalog.yaml -o json`,
	RunE: lintCatalogs,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "catalog file to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of catalog files")
	lintCmd.Flags().BoolVar(&lintFlags.strict, "strict", false, "treat warnings as errors")
}

// LintResult is the validation result for one catalog file.
type LintResult struct {
	File     string           `json:"file"`
	Valid    bool             `json:"valid"`
	Rules    int              `json:"rules,omitempty"`
	Stats    *checklist.Stats `json:"stats,omitempty"`
	Errors   []LintIssue      `json:"errors,omitempty"`
	Warnings []LintIssue      `json:"warnings,omitempty"`
}

// LintIssue is a single error or warning.
type LintIssue struct {
	RuleID  int    `json:"item_id,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

var errLintFailed = errors.New("catalog validation failed")

func lintCatalogs(cmd *cobra.Command, args []string) error {
	var files []string
	if lintFlags.file != "" {
		files = append(files, lintFlags.file)
	}
	if lintFlags.dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(lintFlags.dir, pattern))
			if err != nil {
				return fmt.Errorf("failed to list catalog files: %w", err)
			}
			files = append(files, matches...)
		}
		if len(files) == 0 {
			return cli.NewConfigError("dir", "no catalog files found in "+lintFlags.dir)
		}
	}

	var results []LintResult
	if len(files) == 0 {
		results = append(results, lintCatalog("(built-in)", checklist.DefaultCatalogYAML()))
	}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			results = append(results, LintResult{File: file, Errors: []LintIssue{{Message: err.Error()}}})
			continue
		}
		results = append(results, lintCatalog(file, data))
	}

	var out io.Writer = os.Stdout
	if cmd != nil {
		out = cmd.OutOrStdout()
	}
	if outputFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		writeLintText(out, results)
	}

	for _, r := range results {
		if !r.Valid || (lintFlags.strict && len(r.Warnings) > 0) {
			return errLintFailed
		}
	}
	return nil
}

func lintCatalog(file string, data []byte) LintResult {
	result := LintResult{File: file}

	catalog, err := checklist.Load(data)
	if err != nil {
		issue := LintIssue{Message: err.Error()}
		var mre *checklist.MalformedRuleError
		if errors.As(err, &mre) {
			issue.RuleID = mre.RuleID
			issue.Field = mre.Field
		}
		result.Errors = append(result.Errors, issue)
		return result
	}

	result.Valid = true
	result.Rules = catalog.Len()
	stats := catalog.Stats()
	result.Stats = &stats
	for _, r := range catalog.All() {
		if r.GeneratedFix {
			result.Warnings = append(result.Warnings, LintIssue{RuleID: r.ID, Field: "fix_suggestion", Message: "no fix suggestion, using generated text"})
		}
		if r.Citation == "" {
			result.Warnings = append(result.Warnings, LintIssue{RuleID: r.ID, Field: "citation", Message: "no citation"})
		}
	}
	return result
}

func writeLintText(w io.Writer, results []LintResult) {
	for _, r := range results {
		if r.Valid {
			fmt.Fprintf(w, "✓ %s: %d rules (%d auto-checkable, %d critical, %d conditional)\n",
				r.File, r.Rules, r.Stats.AutoCheckable, r.Stats.Critical, r.Stats.Conditional)
		} else {
			fmt.Fprintf(w, "✗ %s\n", r.File)
		}
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  error: %s\n", e.Message)
		}
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  warning: item %d: %s\n", warn.RuleID, warn.Message)
		}
	}
}
