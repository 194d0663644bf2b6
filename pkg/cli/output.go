package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"formarter/compliance/pkg/audit"
	"formarter/compliance/pkg/audit/export"
	"formarter/compliance/pkg/auditor"
	"formarter/compliance/pkg/batch"
	"formarter/compliance/pkg/checklist"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is a human-readable report (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON.
	FormatJSON OutputFormat = "json"
	// FormatCSV is one CSV row per audit session.
	FormatCSV OutputFormat = "csv"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", NewConfigError("output", fmt.Sprintf("unknown format %q: must be text, json or csv", s))
}

// Formatter formats command output.
type Formatter interface {
	Format(data any) ([]byte, error)
	FormatTo(w io.Writer, data any) error
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{Header: true}
	default:
		return &TextFormatter{}
	}
}

func formatBytes(f Formatter, data any) ([]byte, error) {
	var sb strings.Builder
	if err := f.FormatTo(&sb, data); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// Format converts data to JSON format.
func (f *JSONFormatter) Format(data any) ([]byte, error) {
	if f.Indent {
		return json.MarshalIndent(data, "", "  ")
	}
	return json.Marshal(data)
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// CSVFormatter writes audit records through the CSV exporter. Only
// records, record lists and batch results can be written as CSV.
type CSVFormatter struct {
	Header bool
	Detail bool
}

// Format converts data to CSV format.
func (f *CSVFormatter) Format(data any) ([]byte, error) {
	return formatBytes(f, data)
}

// FormatTo writes data to writer in CSV format.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	var records []*audit.Record
	switch v := data.(type) {
	case *audit.Record:
		records = []*audit.Record{v}
	case []*audit.Record:
		records = v
	case *batch.Result:
		records = v.Sessions
	default:
		return fmt.Errorf("csv output is not supported for %T", data)
	}
	return export.NewCSVExporter(f.Header, f.Detail).Export(context.Background(), records, w)
}

// TextFormatter renders audit results as plain-text reports.
type TextFormatter struct{}

// Format converts data to text format.
func (f *TextFormatter) Format(data any) ([]byte, error) {
	return formatBytes(f, data)
}

// FormatTo writes data to writer in text format. Unknown types are
// printed with %v.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	switch v := data.(type) {
	case *audit.Record:
		return writeRecord(w, v)
	case []*audit.Record:
		return writeHistory(w, v)
	case *batch.Result:
		return writeBatch(w, v)
	case *auditor.ProgressReport:
		_, err := fmt.Fprintf(w, "%s  %s  %s  %d/%d items (%d%%)\n",
			v.SessionID, v.DocumentID, v.Status,
			v.Progress.ItemsChecked, v.Progress.TotalItems, v.Progress.PercentComplete)
		return err
	case *checklist.Guidance:
		return writeGuidance(w, v)
	case *auditor.FailingGuidance:
		if len(v.Failing) == 0 {
			_, err := fmt.Fprintf(w, "%s: no failed items\n", v.SessionID)
			return err
		}
		for i, g := range v.Failing {
			if i > 0 {
				fmt.Fprintln(w)
			}
			if err := writeGuidance(w, g); err != nil {
				return err
			}
		}
		return nil
	case []*checklist.Rule:
		return writeRules(w, v)
	}
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

func scoreText(sum audit.Summary) string {
	if !sum.ScoreDefined() {
		return "n/a (" + sum.ScoreFlag + ")"
	}
	return fmt.Sprintf("%.1f%%", sum.Score)
}

func writeRecord(w io.Writer, rec *audit.Record) error {
	name := rec.DocumentID
	if rec.DocumentName != "" {
		name = fmt.Sprintf("%s (%s)", rec.DocumentName, rec.DocumentID)
	}
	fmt.Fprintf(w, "Audit %s\n", rec.SessionID)
	fmt.Fprintf(w, "Document: %s\n", name)
	fmt.Fprintf(w, "Status:   %s\n", rec.Status)
	fmt.Fprintf(w, "Score:    %s [%s]\n", scoreText(rec.Summary), rec.Summary.ScoreFormula)
	s := rec.Summary
	fmt.Fprintf(w, "Passed %d  Failed %d  Warnings %d  Manual %d  N/A %d\n",
		s.Passed, s.Failed, s.Warnings, s.ManualReview, s.NotApplicable)

	if len(rec.CriticalIssues) > 0 {
		fmt.Fprintln(w, "\nCritical issues:")
		for _, ci := range rec.CriticalIssues {
			fmt.Fprintf(w, "  #%d %s\n", ci.RuleID, ci.Description)
		}
	}
	for _, msg := range rec.Errors {
		fmt.Fprintf(w, "Error: %s\n", msg)
	}
	for _, msg := range rec.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", msg)
	}

	if len(rec.Results) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tSTATUS\tCATEGORY\tDESCRIPTION\tNOTE")
	for _, res := range rec.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", res.RuleID, res.Status, res.Category, res.Description, res.Note)
	}
	return tw.Flush()
}

func writeHistory(w io.Writer, records []*audit.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no audits found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tDOCUMENT\tSTATUS\tSCORE\tFAILED\tCREATED")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			rec.SessionID, rec.DocumentID, rec.Status, scoreText(rec.Summary),
			rec.Summary.Failed, rec.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func writeBatch(w io.Writer, res *batch.Result) error {
	fmt.Fprintf(w, "Batch %s\n", res.BatchID)
	if res.Collection != "" {
		fmt.Fprintf(w, "Collection: %s\n", res.Collection)
	}
	agg := fmt.Sprintf("%.1f%%", res.AggregateScore)
	if res.AggregateFlag != "" {
		agg = "n/a (" + res.AggregateFlag + ")"
	}
	fmt.Fprintf(w, "Documents:  %d (%d scored, %d degenerate)\n", len(res.Sessions), res.ScoredDocuments, res.Degenerate)
	fmt.Fprintf(w, "Aggregate:  %s\n", agg)
	if len(res.CommonIssues) > 0 {
		ids := make([]string, len(res.CommonIssues))
		for i, id := range res.CommonIssues {
			ids[i] = fmt.Sprintf("#%d", id)
		}
		fmt.Fprintf(w, "Common issues: %s\n", strings.Join(ids, ", "))
	}
	fmt.Fprintln(w)
	return writeHistory(w, res.Sessions)
}

func writeGuidance(w io.Writer, g *checklist.Guidance) error {
	fmt.Fprintf(w, "#%d [%s, %s] %s\n", g.RuleID, g.Category.Title(), g.Severity, g.Description)
	if g.Citation != "" {
		fmt.Fprintf(w, "  Citation: %s\n", g.Citation)
	}
	if g.SuccessCriteria != "" {
		fmt.Fprintf(w, "  Criteria: %s\n", g.SuccessCriteria)
	}
	if g.Explanation != "" {
		fmt.Fprintf(w, "  Why:      %s\n", g.Explanation)
	}
	_, err := fmt.Fprintf(w, "  Fix:      %s\n", g.FixSuggestion)
	return err
}

func writeRules(w io.Writer, rules []*checklist.Rule) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tCATEGORY\tSEVERITY\tAUTO\tAPPLIES\tDESCRIPTION")
	for _, r := range rules {
		auto := "no"
		if r.AutoCheckable {
			auto = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Category, r.Severity, auto, r.Applicability, r.Description)
	}
	return tw.Flush()
}
