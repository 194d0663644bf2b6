package main

import (
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	Version, GitCommit = "0.1.0-test", "abc123"
	t.Cleanup(func() { Version, GitCommit = origVersion, origCommit })

	cmd, out := testCommand()
	versionCmd.Run(cmd, nil)

	for _, want := range []string{"Formarter 0.1.0-test", "Git Commit: abc123", "Go Version: go"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output = %q, want it to contain %q", out.String(), want)
		}
	}
}

func TestBuildInfo(t *testing.T) {
	info := buildInfo()
	if info.Version != Version || info.Commit != GitCommit || info.BuildTime != BuildDate {
		t.Errorf("buildInfo() = %+v, want package version vars", info)
	}
	if info.GoVersion == "" {
		t.Error("buildInfo().GoVersion is empty")
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	want := []string{"audit", "batch", "progress", "guidance", "rules", "history", "export", "prune", "lint", "serve", "version"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("rootCmd.Find(%q) = %v, %v", name, cmd, err)
		}
	}
}
