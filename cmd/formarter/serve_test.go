package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"formarter/compliance/pkg/cli"
	"formarter/compliance/pkg/config"
	"formarter/compliance/pkg/library"
)

func TestRunServe_DryRun(t *testing.T) {
	setupWorkspace(t)
	serveFlags.dryRun = true
	serveFlags.listenAddress = "127.0.0.1:0"
	t.Cleanup(func() { serveFlags.dryRun, serveFlags.listenAddress = false, "" })

	cmd, out := testCommand()
	if err := runServe(cmd, nil); err != nil {
		t.Fatalf("runServe() error = %v", err)
	}
	if !strings.Contains(out.String(), "Configuration valid (4 rules from file:") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunServe_BadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "formarter.yaml")
	writeFile(t, path, "storage:\n  backend: tape\n")

	origCfg := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = origCfg })

	cmd, _ := testCommand()
	err := runServe(cmd, nil)
	if err == nil || !strings.Contains(err.Error(), "storage.backend") {
		t.Errorf("runServe() error = %v, want a storage.backend validation error", err)
	}
}

func TestRetentionConfig(t *testing.T) {
	tests := []struct {
		name     string
		days     int
		wantDays int
	}{
		{"configured", 30, 30},
		{"forever", 0, 0},
		{"negative keeps forever", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := retentionConfig(&config.RetentionConfig{RetentionDays: tt.days, KeepPerDocument: 5, PruneSchedule: "@daily"})
			if rc.RetentionDays != tt.wantDays {
				t.Errorf("RetentionDays = %d, want %d", rc.RetentionDays, tt.wantDays)
			}
			if rc.KeepPerDocument != 5 || rc.PruneSchedule != "@daily" {
				t.Errorf("retentionConfig() = %+v", rc)
			}
		})
	}
}

func TestStartLibraryRefresh_MemoryLibrary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := startLibraryRefresh(ctx, true, 10*time.Millisecond, library.NewMemoryLibrary()); err != nil {
		t.Errorf("startLibraryRefresh() error = %v, want nil for a library without an index", err)
	}
}

func TestRunRules_Category(t *testing.T) {
	setupWorkspace(t)
	rulesFlags.category = "motion_content"
	t.Cleanup(func() { rulesFlags.category = "" })

	cmd, out := testCommand()
	if err := runRules(cmd, nil); err != nil {
		t.Fatalf("runRules() error = %v", err)
	}
	rules := decodeOutput[[]map[string]any](t, out)
	if len(rules) != 2 {
		t.Errorf("len(rules) = %d, want 2", len(rules))
	}

	rulesFlags.category = "footnotes"
	cmd, _ = testCommand()
	if err := runRules(cmd, nil); err == nil {
		t.Error("runRules() error = nil, want unknown category")
	}
}

func TestRunServe_TLSMissingCertificate(t *testing.T) {
	dir := setupWorkspace(t)
	path := filepath.Join(dir, "tls.yaml")
	writeFile(t, path, `
catalog:
  source: file
  path: `+mustAbs(t, "testdata/catalog.yaml")+`
library:
  root: `+filepath.Join(dir, "docs")+`
storage:
  backend: memory
server:
  tls:
    enabled: true
    cert_file: `+filepath.Join(dir, "missing.crt")+`
    key_file: `+filepath.Join(dir, "missing.key")+`
telemetry:
  logging:
    level: error
`)
	cfgFile = path
	serveFlags.dryRun = true
	t.Cleanup(func() { serveFlags.dryRun = false })

	cmd, _ := testCommand()
	err := runServe(cmd, nil)
	if got := cli.ExitCode(err); got != cli.ExitConfig {
		t.Errorf("ExitCode(%v) = %d, want %d", err, got, cli.ExitConfig)
	}
}

func mustAbs(t *testing.T, path string) string {
	t.Helper()
	abs, err := filepath.Abs(path)
	if err != nil {
		t.Fatal(err)
	}
	return abs
}
