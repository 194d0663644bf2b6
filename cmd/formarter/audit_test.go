package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"formarter/compliance/pkg/audit"
	"formarter/compliance/pkg/auditor"
	"formarter/compliance/pkg/batch"
	"formarter/compliance/pkg/checklist"
	"formarter/compliance/pkg/cli"
)

func resetAuditFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		auditFlags.file, auditFlags.name, auditFlags.minScore = "", "", 0
	})
}

func TestRunAudit_Document(t *testing.T) {
	setupWorkspace(t)
	resetAuditFlags(t)

	cmd, out := testCommand()
	if err := runAudit(cmd, []string{"case-1/motion"}); err != nil {
		t.Fatalf("runAudit() error = %v", err)
	}

	rec := decodeOutput[audit.Record](t, out)
	if rec.Status != audit.StateCompleted {
		t.Errorf("status = %q, want completed", rec.Status)
	}
	if rec.Summary.Score != 100 {
		t.Errorf("score = %v, want 100", rec.Summary.Score)
	}
	if rec.Summary.NotApplicable != 1 || rec.Summary.ManualReview != 1 {
		t.Errorf("summary = %+v, want 1 not applicable and 1 manual", rec.Summary)
	}
}

func TestRunAudit_File(t *testing.T) {
	dir := setupWorkspace(t)
	resetAuditFlags(t)

	path := filepath.Join(dir, "loose-motion.txt")
	writeFile(t, path, failingMotion)
	auditFlags.file = path
	auditFlags.minScore = 50

	cmd, out := testCommand()
	err := runAudit(cmd, nil)
	if !errors.Is(err, cli.ErrBelowThreshold) {
		t.Fatalf("runAudit() error = %v, want ErrBelowThreshold", err)
	}
	if got := cli.ExitCode(err); got != cli.ExitThreshold {
		t.Errorf("ExitCode() = %d, want %d", got, cli.ExitThreshold)
	}

	rec := decodeOutput[audit.Record](t, out)
	if rec.DocumentID != "loose-motion" {
		t.Errorf("document_id = %q, want loose-motion", rec.DocumentID)
	}
	if len(rec.CriticalIssues) != 1 || rec.CriticalIssues[0].RuleID != 1 {
		t.Errorf("critical issues = %+v, want item 1", rec.CriticalIssues)
	}
}

func TestRunAudit_NotFound(t *testing.T) {
	setupWorkspace(t)
	resetAuditFlags(t)

	cmd, _ := testCommand()
	err := runAudit(cmd, []string{"case-9/missing"})
	if got := cli.ExitCode(err); got != cli.ExitNotFound {
		t.Errorf("ExitCode(%v) = %d, want %d", err, got, cli.ExitNotFound)
	}
}

func TestRunAudit_NoArgs(t *testing.T) {
	resetAuditFlags(t)

	cmd, _ := testCommand()
	if got := cli.ExitCode(runAudit(cmd, nil)); got != cli.ExitConfig {
		t.Errorf("ExitCode() = %d, want %d", got, cli.ExitConfig)
	}
}

func TestCheckThreshold(t *testing.T) {
	tests := []struct {
		name    string
		sum     audit.Summary
		min     float64
		wantErr bool
	}{
		{"no threshold", audit.Summary{Score: 10}, 0, false},
		{"above", audit.Summary{Score: 90}, 80, false},
		{"equal", audit.Summary{Score: 80}, 80, false},
		{"below", audit.Summary{Score: 79.9}, 80, true},
		{"undefined", audit.Summary{ScoreFlag: audit.FlagNoCheckableItems}, 80, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkThreshold(tt.sum, tt.min)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkThreshold() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunBatch_Collection(t *testing.T) {
	setupWorkspace(t)

	cmd, out := testCommand()
	if err := runBatch(cmd, []string{"case-1"}); err != nil {
		t.Fatalf("runBatch() error = %v", err)
	}

	res := decodeOutput[batch.Result](t, out)
	if len(res.Sessions) != 2 {
		t.Fatalf("len(sessions) = %d, want 2", len(res.Sessions))
	}
	if res.AggregateScore != 50 {
		t.Errorf("aggregate_score = %v, want 50", res.AggregateScore)
	}
	draft := res.Sessions[0]
	if draft.DocumentID != "case-1/draft" || !draft.Context.IsExParte {
		t.Errorf("first session = %s (ex parte %v), want case-1/draft with sidecar context", draft.DocumentID, draft.Context.IsExParte)
	}
	if got := draft.FailedRuleIDs(); len(got) != 3 {
		t.Errorf("draft failed items = %v, want [1 2 3]", got)
	}
}

func TestRunBatch_UnknownCollection(t *testing.T) {
	setupWorkspace(t)

	cmd, _ := testCommand()
	err := runBatch(cmd, []string{"nope"})
	if got := cli.ExitCode(err); got != cli.ExitNotFound {
		t.Errorf("ExitCode(%v) = %d, want %d", err, got, cli.ExitNotFound)
	}
}

func TestRunBatch_IDs(t *testing.T) {
	setupWorkspace(t)
	batchFlags.ids = []string{"case-1/motion", "case-1/missing"}
	t.Cleanup(func() { batchFlags.ids = nil })

	cmd, out := testCommand()
	if err := runBatch(cmd, nil); err != nil {
		t.Fatalf("runBatch() error = %v", err)
	}
	res := decodeOutput[batch.Result](t, out)
	if res.Degenerate != 1 || res.ScoredDocuments != 1 {
		t.Errorf("degenerate = %d, scored = %d, want 1 and 1", res.Degenerate, res.ScoredDocuments)
	}
}

func TestRunBatch_ArgsValidation(t *testing.T) {
	batchFlags.ids = []string{"a"}
	t.Cleanup(func() { batchFlags.ids = nil })

	cmd, _ := testCommand()
	if got := cli.ExitCode(runBatch(cmd, []string{"case-1"})); got != cli.ExitConfig {
		t.Errorf("ExitCode() = %d, want %d", got, cli.ExitConfig)
	}
}

func TestRunProgressAndGuidance(t *testing.T) {
	setupWorkspace(t)
	resetAuditFlags(t)

	cmd, out := testCommand()
	if err := runAudit(cmd, []string{"case-1/draft"}); err != nil {
		t.Fatalf("runAudit() error = %v", err)
	}
	rec := decodeOutput[audit.Record](t, out)

	t.Run("current progress", func(t *testing.T) {
		cmd, out := testCommand()
		if err := runProgress(cmd, nil); err != nil {
			t.Fatalf("runProgress() error = %v", err)
		}
		report := decodeOutput[auditor.ProgressReport](t, out)
		if report.SessionID != rec.SessionID || report.Progress.PercentComplete != 100 {
			t.Errorf("progress = %+v, want session %s at 100%%", report, rec.SessionID)
		}
	})

	t.Run("failing guidance", func(t *testing.T) {
		guidanceFlags.session = rec.SessionID
		t.Cleanup(func() { guidanceFlags.session = "" })

		cmd, out := testCommand()
		if err := runGuidance(cmd, nil); err != nil {
			t.Fatalf("runGuidance() error = %v", err)
		}
		fg := decodeOutput[auditor.FailingGuidance](t, out)
		if len(fg.Failing) != 3 {
			t.Fatalf("len(failing) = %d, want 3", len(fg.Failing))
		}
		if !strings.Contains(fg.Failing[0].FixSuggestion, "plaintiff") {
			t.Errorf("fix suggestion = %q", fg.Failing[0].FixSuggestion)
		}
	})

	t.Run("rule guidance", func(t *testing.T) {
		cmd, out := testCommand()
		if err := runGuidance(cmd, []string{"2"}); err != nil {
			t.Fatalf("runGuidance() error = %v", err)
		}
		if g := decodeOutput[checklist.Guidance](t, out); g.RuleID != 2 {
			t.Errorf("item_id = %d, want 2", g.RuleID)
		}
	})

	t.Run("unknown rule", func(t *testing.T) {
		cmd, _ := testCommand()
		if got := cli.ExitCode(runGuidance(cmd, []string{"99"})); got != cli.ExitNotFound {
			t.Errorf("ExitCode() = %d, want %d", got, cli.ExitNotFound)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		cmd, _ := testCommand()
		if got := cli.ExitCode(runProgress(cmd, []string{"audit-missing"})); got != cli.ExitNotFound {
			t.Errorf("ExitCode() = %d, want %d", got, cli.ExitNotFound)
		}
	})
}

func TestRunHistory(t *testing.T) {
	setupWorkspace(t)
	resetAuditFlags(t)

	for _, id := range []string{"case-1/motion", "case-1/motion", "case-1/draft"} {
		cmd, _ := testCommand()
		if err := runAudit(cmd, []string{id}); err != nil {
			t.Fatalf("runAudit(%s) error = %v", id, err)
		}
	}

	historyFlags.document = "case-1/motion"
	t.Cleanup(func() { historyFlags = queryFlags{limit: 20} })

	cmd, out := testCommand()
	if err := runHistory(cmd, nil); err != nil {
		t.Fatalf("runHistory() error = %v", err)
	}
	records := decodeOutput[[]*audit.Record](t, out)
	if len(records) != 2 {
		t.Errorf("len(records) = %d, want 2", len(records))
	}
}

func TestQueryFlags(t *testing.T) {
	tests := []struct {
		name    string
		flags   queryFlags
		wantErr bool
	}{
		{"empty", queryFlags{}, false},
		{"status", queryFlags{status: "completed"}, false},
		{"bad status", queryFlags{status: "done"}, true},
		{"since", queryFlags{since: "2025-01-01T00:00:00Z"}, false},
		{"bad since", queryFlags{since: "yesterday"}, true},
		{"negative limit", queryFlags{limit: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tt.flags.query()
			if (err != nil) != tt.wantErr {
				t.Fatalf("query() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.flags.since != "" && q.StartTime == nil {
				t.Error("StartTime not set")
			}
		})
	}
}
