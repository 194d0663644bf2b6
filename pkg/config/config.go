package config

import (
	"time"

	"formarter/compliance/pkg/checklist"
)

// Config is the root configuration structure for the compliance engine.
// It contains the rule catalog source, the document library, audit and
// batch behavior, record storage and retention, the HTTP API and telemetry.
type Config struct {
	// Catalog selects where the rule catalog is loaded from.
	Catalog CatalogConfig `yaml:"catalog"`

	// Library locates the documents that can be audited by id.
	Library LibraryConfig `yaml:"library"`

	// Audit contains per-session evaluation settings.
	Audit AuditConfig `yaml:"audit"`

	// Batch contains collection audit settings.
	Batch BatchConfig `yaml:"batch"`

	// Storage selects and configures the audit record backend.
	Storage StorageConfig `yaml:"storage"`

	// Retention controls pruning of old audit records.
	Retention RetentionConfig `yaml:"retention"`

	// Server contains HTTP API server configuration.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// CatalogConfig selects the rule catalog source.
type CatalogConfig struct {
	// Source is where the catalog comes from.
	// Options: "embedded", "file", "git"
	// Default: "embedded"
	Source string `yaml:"source"`

	// Path is the catalog YAML file for the "file" source.
	Path string `yaml:"path"`

	// Git configures the "git" source.
	Git CatalogGitConfig `yaml:"git"`
}

// CatalogGitConfig configures a catalog kept in a Git repository.
type CatalogGitConfig struct {
	// Repository is the remote URL or a local repository path.
	Repository string `yaml:"repository"`

	// Branch to check out.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path is the catalog file relative to the repository root.
	// Default: "catalog.yaml"
	Path string `yaml:"path"`

	// LocalPath is the clone directory.
	// Default: "<tmp>/formarter-catalog"
	LocalPath string `yaml:"local_path"`

	// Depth limits clone history. 0 clones everything.
	// Default: 1
	Depth int `yaml:"depth"`

	// Timeout bounds each clone or pull.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// Auth contains credentials for private repositories.
	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig contains Git credentials.
type GitAuthConfig struct {
	// Type is the authentication method.
	// Options: "none", "token", "ssh"
	// Default: "none"
	Type string `yaml:"type"`

	// Token is a personal access token, usually set through
	// FORMARTER_CATALOG_GIT_AUTH_TOKEN.
	Token string `yaml:"token"`

	// SSHKeyPath is a private key file with 0600 permissions.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase unlocks an encrypted SSH key.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// LibraryConfig locates audit documents.
type LibraryConfig struct {
	// Root is a directory of documents; each subdirectory is a collection.
	// Default: "documents"
	Root string `yaml:"root"`

	// DocumentsJSON is a documents.json library file. When set it is used
	// instead of Root.
	DocumentsJSON string `yaml:"documents_json"`

	// Extensions lists the file extensions treated as documents.
	// Default: [".txt", ".md"]
	Extensions []string `yaml:"extensions"`

	// Watch invalidates the directory index when files change.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval is the quiet period before a change invalidates
	// the index.
	// Default: 200ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// DefaultContext applies to documents without recorded case flags.
	// When unset, conditional rules are not_applicable for such documents.
	DefaultContext *checklist.Context `yaml:"default_context"`
}

// AuditConfig contains per-session evaluation settings.
type AuditConfig struct {
	// ScoreFormula selects the score denominator.
	// Options: "exclude_warnings", "include_warnings"
	// Default: "exclude_warnings"
	ScoreFormula string `yaml:"score_formula"`

	// MaxEvidence is the maximum length of an evidence snippet.
	// Default: 120
	MaxEvidence int `yaml:"max_evidence"`

	// RedactEvidence scrubs personal data from evidence before it is stored.
	// Default: false
	RedactEvidence bool `yaml:"redact_evidence"`

	// TrackCurrent keeps a current-session record for interactive audits
	// when the storage backend supports it.
	// Default: true
	TrackCurrent bool `yaml:"track_current"`

	// PersistRetries is how many times a failed record save is retried.
	// Default: 1
	PersistRetries int `yaml:"persist_retries"`

	// WriteTimeout bounds each record save.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// BatchConfig contains collection audit settings.
type BatchConfig struct {
	// Workers is the maximum number of documents audited concurrently.
	// Default: number of CPUs
	Workers int `yaml:"workers"`
}

// StorageConfig selects the audit record backend.
type StorageConfig struct {
	// Backend is the storage backend.
	// Options: "sqlite", "file", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite configures the "sqlite" backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// File configures the "file" backend.
	File FileConfig `yaml:"file"`
}

// SQLiteConfig contains SQLite database configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/audits.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite3" (cgo), "sqlite" (pure Go)
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// FileConfig contains JSON file storage configuration.
type FileConfig struct {
	// Dir holds one JSON file per document.
	// Default: "data/audits"
	Dir string `yaml:"dir"`

	// MaxSessionsPerDocument caps the history kept per document file.
	// 0 keeps everything.
	// Default: 0
	MaxSessionsPerDocument int `yaml:"max_sessions_per_document"`
}

// RetentionConfig controls pruning of audit records.
type RetentionConfig struct {
	// Enabled runs the pruning schedule while serving.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// RetentionDays is how long records are kept. A negative value keeps
	// them forever.
	// Default: 365
	RetentionDays int `yaml:"retention_days"`

	// KeepPerDocument caps the sessions kept per document. 0 means no cap.
	// Default: 0
	KeepPerDocument int `yaml:"keep_per_document"`

	// PruneSchedule is a standard cron expression.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchiveBeforeDelete writes pruned records to a JSON archive.
	// Default: false
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the archive directory.
	// Default: "data/archives"
	ArchivePath string `yaml:"archive_path"`
}

// ServerConfig contains HTTP API server configuration.
type ServerConfig struct {
	// ListenAddress is the address the API listens on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Collection audits run inside the request, so keep this generous.
	// Default: 5m
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes limits request bodies, including inline document text.
	// Default: 10485760 (10MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// TLS serves HTTPS when enabled.
	TLS TLSConfig `yaml:"tls"`

	// Auth requires an API key on the /v1 routes when enabled. Health,
	// version and metrics endpoints stay open.
	Auth AuthConfig `yaml:"auth"`
}

// TLSConfig configures HTTPS for the API server.
type TLSConfig struct {
	Enabled bool `yaml:"enabled"`

	// CertFile and KeyFile are PEM files. They are re-read when their
	// modification time changes, so renewed certificates apply without a
	// restart.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// MinVersion is "1.2" or "1.3".
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// ReloadInterval is how often the certificate files are checked.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`

	// ClientCAFile enables mutual TLS: clients must present a certificate
	// signed by a CA in this PEM bundle.
	ClientCAFile string `yaml:"client_ca_file"`
}

// AuthConfig configures API key authentication.
type AuthConfig struct {
	Enabled bool `yaml:"enabled"`

	// Keys are the accepted API keys. Prefer supplying them through
	// FORMARTER_SERVER_AUTH_KEYS as comma-separated name=key pairs.
	Keys []APIKey `yaml:"keys"`
}

// APIKey is one named API key.
type APIKey struct {
	Name     string `yaml:"name"`
	Key      string `yaml:"key"`
	Disabled bool   `yaml:"disabled"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables PII redaction in logs.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom PII redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom PII redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "formarter"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "compliance"
	Subsystem string `yaml:"subsystem"`

	// AuditDurationBuckets defines histogram buckets for audit duration (seconds).
	// Default: [0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5]
	AuditDurationBuckets []float64 `yaml:"audit_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "formarter"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout is the timeout for individual component health checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
