package config

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateCatalog(&cfg.Catalog)...)
	errs = append(errs, validateLibrary(&cfg.Library)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	if cfg.Batch.Workers < 1 {
		errs = append(errs, FieldError{Field: "batch.workers", Message: "must be at least 1"})
	}
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateRetention(&cfg.Retention)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateCatalog(cfg *CatalogConfig) []FieldError {
	var errs []FieldError

	switch cfg.Source {
	case "embedded":
	case "file":
		if cfg.Path == "" {
			errs = append(errs, FieldError{
				Field:   "catalog.path",
				Message: "catalog path is required when source is 'file'",
			})
		}
	case "git":
		if cfg.Git.Repository == "" {
			errs = append(errs, FieldError{
				Field:   "catalog.git.repository",
				Message: "repository is required when source is 'git'",
			})
		}
		if cfg.Git.Depth < 0 {
			errs = append(errs, FieldError{Field: "catalog.git.depth", Message: "must not be negative"})
		}
		switch cfg.Git.Auth.Type {
		case "none":
		case "token":
			if cfg.Git.Auth.Token == "" {
				errs = append(errs, FieldError{
					Field:   "catalog.git.auth.token",
					Message: "token is required when auth type is 'token'",
				})
			}
		case "ssh":
			if cfg.Git.Auth.SSHKeyPath == "" {
				errs = append(errs, FieldError{
					Field:   "catalog.git.auth.ssh_key_path",
					Message: "ssh key path is required when auth type is 'ssh'",
				})
			}
		default:
			errs = append(errs, FieldError{
				Field:   "catalog.git.auth.type",
				Message: fmt.Sprintf("invalid auth type %q: must be 'none', 'token', or 'ssh'", cfg.Git.Auth.Type),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "catalog.source",
			Message: fmt.Sprintf("invalid catalog source %q: must be 'embedded', 'file', or 'git'", cfg.Source),
		})
	}

	return errs
}

func validateLibrary(cfg *LibraryConfig) []FieldError {
	var errs []FieldError

	for i, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("library.extensions[%d]", i),
				Message: fmt.Sprintf("extension %q must start with '.'", ext),
			})
		}
	}
	if cfg.DebounceInterval < 0 {
		errs = append(errs, FieldError{Field: "library.debounce_interval", Message: "must not be negative"})
	}
	if cfg.Watch && cfg.DocumentsJSON != "" {
		errs = append(errs, FieldError{
			Field:   "library.watch",
			Message: "watch applies to a directory library and cannot be combined with documents_json",
		})
	}

	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	if cfg.ScoreFormula != "exclude_warnings" && cfg.ScoreFormula != "include_warnings" {
		errs = append(errs, FieldError{
			Field:   "audit.score_formula",
			Message: fmt.Sprintf("invalid score formula %q: must be 'exclude_warnings' or 'include_warnings'", cfg.ScoreFormula),
		})
	}
	if cfg.MaxEvidence < 0 {
		errs = append(errs, FieldError{Field: "audit.max_evidence", Message: "must not be negative"})
	}
	if cfg.PersistRetries < 0 {
		errs = append(errs, FieldError{Field: "audit.persist_retries", Message: "must not be negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "audit.write_timeout", Message: "must not be negative"})
	}

	return errs
}

func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.path",
				Message: "sqlite path is required when backend is 'sqlite'",
			})
		}
		if cfg.SQLite.Driver != "sqlite3" && cfg.SQLite.Driver != "sqlite" {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite3' or 'sqlite'", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.MaxOpenConns < 1 {
			errs = append(errs, FieldError{Field: "storage.sqlite.max_open_conns", Message: "must be at least 1"})
		}
		if cfg.SQLite.MaxIdleConns > cfg.SQLite.MaxOpenConns {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.max_idle_conns",
				Message: "must not exceed max_open_conns",
			})
		}
	case "file":
		if cfg.File.Dir == "" {
			errs = append(errs, FieldError{
				Field:   "storage.file.dir",
				Message: "directory is required when backend is 'file'",
			})
		}
		if cfg.File.MaxSessionsPerDocument < 0 {
			errs = append(errs, FieldError{Field: "storage.file.max_sessions_per_document", Message: "must not be negative"})
		}
	case "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid storage backend %q: must be 'sqlite', 'file', or 'memory'", cfg.Backend),
		})
	}

	return errs
}

func validateRetention(cfg *RetentionConfig) []FieldError {
	var errs []FieldError

	if cfg.KeepPerDocument < 0 {
		errs = append(errs, FieldError{Field: "retention.keep_per_document", Message: "must not be negative"})
	}
	if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "retention.prune_schedule",
			Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.PruneSchedule, err),
		})
	}
	if cfg.ArchiveBeforeDelete && cfg.ArchivePath == "" {
		errs = append(errs, FieldError{
			Field:   "retention.archive_path",
			Message: "archive path is required when archive_before_delete is enabled",
		})
	}

	return errs
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: %v", cfg.ListenAddress, err),
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "must not be negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "must not be negative"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "must not be negative"})
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.cert_file", Message: "cert file is required when TLS is enabled"})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.key_file", Message: "key file is required when TLS is enabled"})
		}
		if cfg.TLS.MinVersion != "1.2" && cfg.TLS.MinVersion != "1.3" {
			errs = append(errs, FieldError{
				Field:   "server.tls.min_version",
				Message: fmt.Sprintf("invalid TLS version %q: must be '1.2' or '1.3'", cfg.TLS.MinVersion),
			})
		}
		if cfg.TLS.ReloadInterval < 0 {
			errs = append(errs, FieldError{Field: "server.tls.reload_interval", Message: "must not be negative"})
		}
	}

	if cfg.Auth.Enabled {
		enabled := 0
		names := make(map[string]bool)
		for i, k := range cfg.Auth.Keys {
			field := fmt.Sprintf("server.auth.keys[%d]", i)
			if k.Name == "" {
				errs = append(errs, FieldError{Field: field + ".name", Message: "must not be empty"})
			} else if names[k.Name] {
				errs = append(errs, FieldError{Field: field + ".name", Message: fmt.Sprintf("duplicate key name %q", k.Name)})
			}
			names[k.Name] = true
			if len(k.Key) < MinAPIKeyLength {
				errs = append(errs, FieldError{Field: field + ".key", Message: fmt.Sprintf("must be at least %d characters", MinAPIKeyLength)})
			}
			if !k.Disabled {
				enabled++
			}
		}
		if enabled == 0 {
			errs = append(errs, FieldError{Field: "server.auth.keys", Message: "at least one enabled key is required when auth is enabled"})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "text" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		field := fmt.Sprintf("telemetry.logging.redact_patterns[%d]", i)
		if p.Name == "" {
			errs = append(errs, FieldError{Field: field + ".name", Message: "pattern name is required"})
		}
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{Field: field + ".pattern", Message: fmt.Sprintf("invalid regular expression: %v", err)})
		}
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with '/'",
		})
	}

	// Validate tracing configuration
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	if !strings.HasPrefix(cfg.Health.LivenessPath, "/") {
		errs = append(errs, FieldError{Field: "telemetry.health.liveness_path", Message: "path must start with '/'"})
	}
	if !strings.HasPrefix(cfg.Health.ReadinessPath, "/") {
		errs = append(errs, FieldError{Field: "telemetry.health.readiness_path", Message: "path must start with '/'"})
	}

	return errs
}
