package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"formarter/compliance/pkg/audit"
)

// CSVExporter exports audit records to CSV. By default each session is one
// row; with Detail each rule result is one row.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool

	// Detail writes one row per rule result instead of one per session.
	Detail bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader, detail bool) *CSVExporter {
	return &CSVExporter{
		IncludeHeader: includeHeader,
		Detail:        detail,
	}
}

var summaryHeader = []string{
	"session_id", "document_id", "document_name", "collection", "status",
	"created_at", "completed_at",
	"total_items", "items_checked", "percent_complete",
	"passed", "failed", "warnings", "manual_review", "not_applicable",
	"score", "score_formula", "score_flag",
	"critical_issues", "degenerate",
}

var detailHeader = []string{
	"session_id", "document_id", "item_id", "category", "severity", "status",
	"matched_by", "pattern_index", "line", "evidence", "note",
}

// Export writes records to w in CSV format.
func (e *CSVExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		header := summaryHeader
		if e.Detail {
			header = detailHeader
		}
		if err := writer.Write(header); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
		var rows [][]string
		if e.Detail {
			rows = detailRows(rec)
		} else {
			rows = [][]string{summaryRow(rec)}
		}
		if err := writer.WriteAll(rows); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return audit.NewExportError("csv", len(records), err)
	}
	return nil
}

// Format returns "csv".
func (e *CSVExporter) Format() string {
	return "csv"
}

// ContentType returns the CSV MIME type.
func (e *CSVExporter) ContentType() string {
	return "text/csv"
}

func summaryRow(rec *audit.Record) []string {
	completed := ""
	if rec.CompletedAt != nil {
		completed = formatTime(*rec.CompletedAt)
	}
	critical := make([]string, len(rec.CriticalIssues))
	for i, issue := range rec.CriticalIssues {
		critical[i] = strconv.Itoa(issue.RuleID)
	}
	sum := rec.Summary

	return []string{
		rec.SessionID, rec.DocumentID, rec.DocumentName, rec.Collection, string(rec.Status),
		formatTime(rec.CreatedAt), completed,
		strconv.Itoa(rec.Progress.TotalItems), strconv.Itoa(rec.Progress.ItemsChecked), strconv.Itoa(rec.Progress.PercentComplete),
		strconv.Itoa(sum.Passed), strconv.Itoa(sum.Failed), strconv.Itoa(sum.Warnings), strconv.Itoa(sum.ManualReview), strconv.Itoa(sum.NotApplicable),
		strconv.FormatFloat(sum.Score, 'f', 1, 64), string(sum.ScoreFormula), sum.ScoreFlag,
		strings.Join(critical, ";"), strconv.FormatBool(rec.Degenerate),
	}
}

func detailRows(rec *audit.Record) [][]string {
	rows := make([][]string, 0, len(rec.Results))
	for _, res := range rec.Results {
		index, line := "", ""
		if res.MatchedBy.Index > 0 {
			index = strconv.Itoa(res.MatchedBy.Index)
		}
		if res.Line > 0 {
			line = strconv.Itoa(res.Line)
		}
		rows = append(rows, []string{
			rec.SessionID, rec.DocumentID, strconv.Itoa(res.RuleID),
			string(res.Category), string(res.Severity), string(res.Status),
			string(res.MatchedBy.Kind), index, line, res.Evidence, res.Note,
		})
	}
	return rows
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
