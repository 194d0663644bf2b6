package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "formarter.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
catalog:
  source: file
  path: ./catalog.yaml
library:
  root: ./motions
  default_context:
    is_ex_parte: true
audit:
  score_formula: include_warnings
  redact_evidence: true
batch:
  workers: 3
storage:
  backend: file
  file:
    dir: ./records
    max_sessions_per_document: 10
server:
  listen_address: "0.0.0.0:9090"
  read_timeout: 10s
telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Catalog.Source != "file" || cfg.Catalog.Path != "./catalog.yaml" {
		t.Errorf("catalog = %+v, want file ./catalog.yaml", cfg.Catalog)
	}
	if cfg.Library.DefaultContext == nil || !cfg.Library.DefaultContext.IsExParte {
		t.Errorf("library.default_context = %+v, want is_ex_parte", cfg.Library.DefaultContext)
	}
	if cfg.Audit.ScoreFormula != "include_warnings" {
		t.Errorf("audit.score_formula = %q, want include_warnings", cfg.Audit.ScoreFormula)
	}
	if !cfg.Audit.RedactEvidence {
		t.Error("audit.redact_evidence = false, want true")
	}
	if cfg.Batch.Workers != 3 {
		t.Errorf("batch.workers = %d, want 3", cfg.Batch.Workers)
	}
	if cfg.Storage.Backend != "file" || cfg.Storage.File.Dir != "./records" || cfg.Storage.File.MaxSessionsPerDocument != 10 {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("server.listen_address = %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("server.read_timeout = %v, want 10s", cfg.Server.ReadTimeout)
	}
	if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("telemetry.logging = %+v", cfg.Telemetry.Logging)
	}

	// Unset fields get defaults.
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("server.write_timeout = %v, want %v", cfg.Server.WriteTimeout, DefaultWriteTimeout)
	}
	if cfg.Audit.MaxEvidence != DefaultMaxEvidence {
		t.Errorf("audit.max_evidence = %d, want %d", cfg.Audit.MaxEvidence, DefaultMaxEvidence)
	}
	if !cfg.Audit.TrackCurrent {
		t.Error("audit.track_current = false, want default true")
	}
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"catalog.source", cfg.Catalog.Source, DefaultCatalogSource},
		{"library.root", cfg.Library.Root, DefaultLibraryRoot},
		{"audit.score_formula", cfg.Audit.ScoreFormula, DefaultScoreFormula},
		{"batch.workers", cfg.Batch.Workers, runtime.NumCPU()},
		{"storage.backend", cfg.Storage.Backend, DefaultStorageBackend},
		{"storage.sqlite.driver", cfg.Storage.SQLite.Driver, DefaultSQLiteDriver},
		{"storage.sqlite.wal_mode", cfg.Storage.SQLite.WALMode, true},
		{"retention.retention_days", cfg.Retention.RetentionDays, DefaultRetentionDays},
		{"retention.prune_schedule", cfg.Retention.PruneSchedule, DefaultRetentionSchedule},
		{"server.listen_address", cfg.Server.ListenAddress, DefaultListenAddress},
		{"telemetry.logging.redact_pii", cfg.Telemetry.Logging.RedactPII, true},
		{"telemetry.metrics.enabled", cfg.Telemetry.Metrics.Enabled, true},
		{"telemetry.metrics.namespace", cfg.Telemetry.Metrics.Namespace, DefaultMetricsNamespace},
		{"telemetry.tracing.enabled", cfg.Telemetry.Tracing.Enabled, false},
		{"telemetry.health.readiness_path", cfg.Telemetry.Health.ReadinessPath, DefaultReadinessPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoadConfig_DisableTrueDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
audit:
  track_current: false
storage:
  sqlite:
    wal_mode: false
telemetry:
  logging:
    redact_pii: false
  metrics:
    enabled: false
`))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Audit.TrackCurrent {
		t.Error("audit.track_current = true, want false")
	}
	if cfg.Storage.SQLite.WALMode {
		t.Error("storage.sqlite.wal_mode = true, want false")
	}
	if cfg.Telemetry.Logging.RedactPII {
		t.Error("telemetry.logging.redact_pii = true, want false")
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("telemetry.metrics.enabled = true, want false")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown key",
			content: "storage:\n  backnd: sqlite\n",
			wantErr: "backnd",
		},
		{
			name:    "invalid yaml",
			content: "audit: [unclosed",
			wantErr: "failed to parse",
		},
		{
			name:    "validation failure",
			content: "storage:\n  backend: postgres\n",
			wantErr: "storage.backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("LoadConfig() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadConfig() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig() error = %v, want os.ErrNotExist", err)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: sqlite
audit:
  score_formula: exclude_warnings
`)

	t.Setenv("FORMARTER_STORAGE_BACKEND", "memory")
	t.Setenv("FORMARTER_AUDIT_SCORE_FORMULA", "include_warnings")
	t.Setenv("FORMARTER_BATCH_WORKERS", "7")
	t.Setenv("FORMARTER_AUDIT_TRACK_CURRENT", "false")
	t.Setenv("FORMARTER_SERVER_READ_TIMEOUT", "45s")
	t.Setenv("FORMARTER_TELEMETRY_TRACING_SAMPLE_RATIO", "0.5")
	t.Setenv("FORMARTER_CATALOG_GIT_AUTH_TOKEN", "ghp_secret")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Storage.Backend != "memory" {
		t.Errorf("storage.backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Audit.ScoreFormula != "include_warnings" {
		t.Errorf("audit.score_formula = %q, want include_warnings", cfg.Audit.ScoreFormula)
	}
	if cfg.Batch.Workers != 7 {
		t.Errorf("batch.workers = %d, want 7", cfg.Batch.Workers)
	}
	if cfg.Audit.TrackCurrent {
		t.Error("audit.track_current = true, want false")
	}
	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("server.read_timeout = %v, want 45s", cfg.Server.ReadTimeout)
	}
	if cfg.Telemetry.Tracing.SampleRatio != 0.5 {
		t.Errorf("telemetry.tracing.sample_ratio = %v, want 0.5", cfg.Telemetry.Tracing.SampleRatio)
	}
	if cfg.Catalog.Git.Auth.Token != "ghp_secret" {
		t.Errorf("catalog.git.auth.token = %q", cfg.Catalog.Git.Auth.Token)
	}
}

func TestLoadConfigWithEnvOverrides_MalformedValuesIgnored(t *testing.T) {
	t.Setenv("FORMARTER_BATCH_WORKERS", "many")
	t.Setenv("FORMARTER_SERVER_READ_TIMEOUT", "soon")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	if cfg.Batch.Workers != runtime.NumCPU() {
		t.Errorf("batch.workers = %d, want default %d", cfg.Batch.Workers, runtime.NumCPU())
	}
	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("server.read_timeout = %v, want default", cfg.Server.ReadTimeout)
	}
}

func TestLoadConfigWithEnvOverrides_RevalidatesOverrides(t *testing.T) {
	t.Setenv("FORMARTER_STORAGE_SQLITE_DRIVER", "postgres")

	_, err := LoadConfigWithEnvOverrides("")
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v, want ValidationError", err)
	}
	if verr.Errors[0].Field != "storage.sqlite.driver" {
		t.Errorf("field = %q, want storage.sqlite.driver", verr.Errors[0].Field)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := Default()
	cfg.Library.Extensions = []string{".rtf"}
	ApplyDefaults(cfg)
	ApplyDefaults(cfg)

	if len(cfg.Library.Extensions) != 1 || cfg.Library.Extensions[0] != ".rtf" {
		t.Errorf("library.extensions = %v, want [.rtf]", cfg.Library.Extensions)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate(Default()) error = %v", err)
	}
}

func TestLoadConfigWithEnvOverrides_AuthKeys(t *testing.T) {
	t.Setenv("FORMARTER_SERVER_AUTH_ENABLED", "true")
	t.Setenv("FORMARTER_SERVER_AUTH_KEYS", "ci=0123456789abcdef, fedcba9876543210 ,")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	want := []APIKey{
		{Name: "ci", Key: "0123456789abcdef"},
		{Name: "key-2", Key: "fedcba9876543210"},
	}
	if len(cfg.Server.Auth.Keys) != len(want) {
		t.Fatalf("server.auth.keys = %+v, want %+v", cfg.Server.Auth.Keys, want)
	}
	for i := range want {
		if cfg.Server.Auth.Keys[i] != want[i] {
			t.Errorf("server.auth.keys[%d] = %+v, want %+v", i, cfg.Server.Auth.Keys[i], want[i])
		}
	}
}
