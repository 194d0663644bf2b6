package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"formarter/compliance/pkg/cli"
)

func auditAll(t *testing.T, ids ...string) {
	t.Helper()
	resetAuditFlags(t)
	for _, id := range ids {
		cmd, _ := testCommand()
		if err := runAudit(cmd, []string{id}); err != nil {
			t.Fatalf("runAudit(%s) error = %v", id, err)
		}
	}
}

func TestRunExport_CSV(t *testing.T) {
	dir := setupWorkspace(t)
	auditAll(t, "case-1/motion", "case-1/draft")

	out := filepath.Join(dir, "audits.csv")
	exportFlags.format, exportFlags.out = "csv", out
	t.Cleanup(func() {
		exportFlags.format, exportFlags.out, exportFlags.detail = "json", "", false
	})

	cmd, stdout := testCommand()
	if err := runExport(cmd, nil); err != nil {
		t.Fatalf("runExport() error = %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want empty with --out", stdout.String())
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to read CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want header plus 2", len(rows))
	}
	if rows[0][0] != "session_id" {
		t.Errorf("header = %v", rows[0])
	}
}

func TestRunExport_UnknownFormat(t *testing.T) {
	exportFlags.format = "xml"
	t.Cleanup(func() { exportFlags.format = "json" })

	cmd, _ := testCommand()
	if got := cli.ExitCode(runExport(cmd, nil)); got != cli.ExitConfig {
		t.Errorf("ExitCode() = %d, want %d", got, cli.ExitConfig)
	}
}

func TestRunPrune_KeepPerDocument(t *testing.T) {
	setupWorkspace(t)
	auditAll(t, "case-1/motion", "case-1/motion", "case-1/motion", "case-1/draft")

	pruneFlags.keepPerDocument = 1
	t.Cleanup(func() { pruneFlags.keepPerDocument, pruneFlags.days = 0, 0 })

	cmd, out := testCommand()
	if err := runPrune(cmd, nil); err != nil {
		t.Fatalf("runPrune() error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "Pruned 2 audit records" {
		t.Errorf("output = %q, want Pruned 2 audit records", got)
	}
}
