package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Default values for configuration fields.
const (
	// Catalog defaults
	DefaultCatalogSource     = "embedded"
	DefaultCatalogGitBranch  = "main"
	DefaultCatalogGitPath    = "catalog.yaml"
	DefaultCatalogGitDepth   = 1
	DefaultCatalogGitTimeout = 30 * time.Second
	DefaultCatalogGitAuth    = "none"

	// Library defaults
	DefaultLibraryRoot     = "documents"
	DefaultLibraryDebounce = 200 * time.Millisecond

	// Audit defaults
	DefaultScoreFormula        = "exclude_warnings"
	DefaultMaxEvidence         = 120
	DefaultTrackCurrent        = true
	DefaultPersistRetries      = 1
	DefaultAuditWriteTimeout   = 5 * time.Second
	DefaultStorageBackend      = "sqlite"
	DefaultSQLitePath          = "data/audits.db"
	DefaultSQLiteDriver        = "sqlite3"
	DefaultSQLiteMaxOpenConns  = 10
	DefaultSQLiteMaxIdleConns  = 5
	DefaultSQLiteWALMode       = true
	DefaultSQLiteBusyTimeout   = 5 * time.Second
	DefaultFileDir             = "data/audits"
	DefaultRetentionDays       = 365
	DefaultRetentionSchedule   = "0 3 * * *"
	DefaultRetentionArchiveDir = "data/archives"

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = 10 << 20

	// TLS defaults
	DefaultTLSMinVersion     = "1.3"
	DefaultTLSReloadInterval = 5 * time.Minute

	// MinAPIKeyLength is the shortest accepted API key.
	MinAPIKeyLength = 16

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultRedactPII          = true
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "formarter"
	DefaultMetricsSubsystem   = "compliance"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingService     = "formarter"
	DefaultOTLPInsecure       = true
	DefaultOTLPTimeout        = 10 * time.Second
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultHealthCheckTimeout = 5 * time.Second
)

// DefaultLibraryExtensions are the file extensions treated as documents.
var DefaultLibraryExtensions = []string{".txt", ".md"}

// DefaultAuditDurationBuckets are histogram buckets for audit duration.
// A single-document audit is regex work over one text, so most land in
// the millisecond range.
var DefaultAuditDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// Default returns a configuration with every default applied. Loading
// starts from Default so that boolean settings defaulting to true can be
// turned off in YAML.
func Default() *Config {
	cfg := &Config{}
	cfg.Audit.TrackCurrent = DefaultTrackCurrent
	cfg.Storage.SQLite.WALMode = DefaultSQLiteWALMode
	cfg.Telemetry.Logging.RedactPII = DefaultRedactPII
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.OTLP.Insecure = DefaultOTLPInsecure
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Catalog defaults
	if cfg.Catalog.Source == "" {
		cfg.Catalog.Source = DefaultCatalogSource
	}
	git := &cfg.Catalog.Git
	if git.Branch == "" {
		git.Branch = DefaultCatalogGitBranch
	}
	if git.Path == "" {
		git.Path = DefaultCatalogGitPath
	}
	if git.LocalPath == "" {
		git.LocalPath = filepath.Join(os.TempDir(), "formarter-catalog")
	}
	if git.Depth == 0 {
		git.Depth = DefaultCatalogGitDepth
	}
	if git.Timeout == 0 {
		git.Timeout = DefaultCatalogGitTimeout
	}
	if git.Auth.Type == "" {
		git.Auth.Type = DefaultCatalogGitAuth
	}

	// Library defaults
	if cfg.Library.Root == "" {
		cfg.Library.Root = DefaultLibraryRoot
	}
	if len(cfg.Library.Extensions) == 0 {
		cfg.Library.Extensions = append([]string(nil), DefaultLibraryExtensions...)
	}
	if cfg.Library.DebounceInterval == 0 {
		cfg.Library.DebounceInterval = DefaultLibraryDebounce
	}

	// Audit defaults
	if cfg.Audit.ScoreFormula == "" {
		cfg.Audit.ScoreFormula = DefaultScoreFormula
	}
	if cfg.Audit.MaxEvidence == 0 {
		cfg.Audit.MaxEvidence = DefaultMaxEvidence
	}
	if cfg.Audit.PersistRetries == 0 {
		cfg.Audit.PersistRetries = DefaultPersistRetries
	}
	if cfg.Audit.WriteTimeout == 0 {
		cfg.Audit.WriteTimeout = DefaultAuditWriteTimeout
	}

	// Batch defaults
	if cfg.Batch.Workers == 0 {
		cfg.Batch.Workers = runtime.NumCPU()
	}

	applyStorageDefaults(&cfg.Storage)
	applyRetentionDefaults(&cfg.Retention)

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Server.TLS.MinVersion == "" {
		cfg.Server.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.Server.TLS.ReloadInterval == 0 {
		cfg.Server.TLS.ReloadInterval = DefaultTLSReloadInterval
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultStorageBackend
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = DefaultSQLitePath
	}
	if cfg.SQLite.Driver == "" {
		cfg.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.SQLite.MaxOpenConns == 0 {
		cfg.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.SQLite.MaxIdleConns == 0 {
		cfg.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if cfg.SQLite.BusyTimeout == 0 {
		cfg.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.File.Dir == "" {
		cfg.File.Dir = DefaultFileDir
	}
}

func applyRetentionDefaults(cfg *RetentionConfig) {
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}
	if cfg.PruneSchedule == "" {
		cfg.PruneSchedule = DefaultRetentionSchedule
	}
	if cfg.ArchivePath == "" {
		cfg.ArchivePath = DefaultRetentionArchiveDir
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Metrics.AuditDurationBuckets) == 0 {
		cfg.Metrics.AuditDurationBuckets = append([]float64(nil), DefaultAuditDurationBuckets...)
	}

	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Tracing.OTLP.Timeout == 0 {
		cfg.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}

	if cfg.Health.LivenessPath == "" {
		cfg.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Health.ReadinessPath == "" {
		cfg.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Health.CheckTimeout == 0 {
		cfg.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
