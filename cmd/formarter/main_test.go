package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

const passingMotion = `JANE DOE, Plaintiff,
v.
ACME CORP., Defendant.
MOTION FOR TEMPORARY RESTRAINING ORDER
`

const failingMotion = `JANE DOE
v.
ACME CORP.
MOTION
`

// setupWorkspace writes a config, a catalog and a two-document library
// under a temp dir and points the global flags at them.
func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "docs", "case-1", "motion.txt"), passingMotion)
	writeFile(t, filepath.Join(dir, "docs", "case-1", "draft.txt"), failingMotion)
	writeFile(t, filepath.Join(dir, "docs", "case-1", "draft.yaml"), "context:\n  is_ex_parte: true\n")

	catalog, err := filepath.Abs("testdata/catalog.yaml")
	if err != nil {
		t.Fatal(err)
	}
	cfg := `
catalog:
  source: file
  path: ` + catalog + `
library:
  root: ` + filepath.Join(dir, "docs") + `
storage:
  backend: file
  file:
    dir: ` + filepath.Join(dir, "records") + `
batch:
  workers: 2
telemetry:
  logging:
    level: error
`
	path := filepath.Join(dir, "formarter.yaml")
	writeFile(t, path, cfg)

	origCfg, origOutput := cfgFile, outputFormat
	cfgFile, outputFormat = path, "json"
	t.Cleanup(func() { cfgFile, outputFormat = origCfg, origOutput })
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// testCommand returns a command with a captured stdout for calling RunE
// functions directly.
func testCommand() (*cobra.Command, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetContext(context.Background())
	return cmd, buf
}

func decodeOutput[T any](t *testing.T, buf *bytes.Buffer) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(buf.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode output %q: %v", buf.String(), err)
	}
	return v
}
