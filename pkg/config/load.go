package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// envPrefix prefixes every environment override.
const envPrefix = "FORMARTER_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML on top of the defaults. Unknown keys are rejected.
// The result is not validated.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention FORMARTER_SECTION_FIELD (e.g., FORMARTER_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// An empty path skips the file and starts from the defaults.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Malformed numeric, boolean or duration values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Catalog overrides
	envString("CATALOG_SOURCE", &cfg.Catalog.Source)
	envString("CATALOG_PATH", &cfg.Catalog.Path)
	envString("CATALOG_GIT_REPOSITORY", &cfg.Catalog.Git.Repository)
	envString("CATALOG_GIT_BRANCH", &cfg.Catalog.Git.Branch)
	envString("CATALOG_GIT_PATH", &cfg.Catalog.Git.Path)
	envString("CATALOG_GIT_AUTH_TYPE", &cfg.Catalog.Git.Auth.Type)
	envString("CATALOG_GIT_AUTH_TOKEN", &cfg.Catalog.Git.Auth.Token)
	envString("CATALOG_GIT_AUTH_SSH_KEY_PATH", &cfg.Catalog.Git.Auth.SSHKeyPath)
	envString("CATALOG_GIT_AUTH_SSH_KEY_PASSPHRASE", &cfg.Catalog.Git.Auth.SSHKeyPassphrase)

	// Library overrides
	envString("LIBRARY_ROOT", &cfg.Library.Root)
	envString("LIBRARY_DOCUMENTS_JSON", &cfg.Library.DocumentsJSON)
	envBool("LIBRARY_WATCH", &cfg.Library.Watch)

	// Audit overrides
	envString("AUDIT_SCORE_FORMULA", &cfg.Audit.ScoreFormula)
	envInt("AUDIT_MAX_EVIDENCE", &cfg.Audit.MaxEvidence)
	envBool("AUDIT_REDACT_EVIDENCE", &cfg.Audit.RedactEvidence)
	envBool("AUDIT_TRACK_CURRENT", &cfg.Audit.TrackCurrent)

	// Batch overrides
	envInt("BATCH_WORKERS", &cfg.Batch.Workers)

	// Storage overrides
	envString("STORAGE_BACKEND", &cfg.Storage.Backend)
	envString("STORAGE_SQLITE_PATH", &cfg.Storage.SQLite.Path)
	envString("STORAGE_SQLITE_DRIVER", &cfg.Storage.SQLite.Driver)
	envString("STORAGE_FILE_DIR", &cfg.Storage.File.Dir)

	// Retention overrides
	envBool("RETENTION_ENABLED", &cfg.Retention.Enabled)
	envInt("RETENTION_RETENTION_DAYS", &cfg.Retention.RetentionDays)
	envInt("RETENTION_KEEP_PER_DOCUMENT", &cfg.Retention.KeepPerDocument)
	envString("RETENTION_PRUNE_SCHEDULE", &cfg.Retention.PruneSchedule)

	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envBool("SERVER_TLS_ENABLED", &cfg.Server.TLS.Enabled)
	envString("SERVER_TLS_CERT_FILE", &cfg.Server.TLS.CertFile)
	envString("SERVER_TLS_KEY_FILE", &cfg.Server.TLS.KeyFile)
	envBool("SERVER_AUTH_ENABLED", &cfg.Server.Auth.Enabled)
	if val := os.Getenv(envPrefix + "SERVER_AUTH_KEYS"); val != "" {
		cfg.Server.Auth.Keys = parseAPIKeys(val)
	}

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv(envPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

// parseAPIKeys parses comma-separated name=key pairs. A bare key is named
// by its position.
func parseAPIKeys(val string) []APIKey {
	var keys []APIKey
	for i, pair := range strings.Split(val, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, key, ok := strings.Cut(pair, "=")
		if !ok {
			name, key = fmt.Sprintf("key-%d", i+1), pair
		}
		keys = append(keys, APIKey{Name: strings.TrimSpace(name), Key: strings.TrimSpace(key)})
	}
	return keys
}

func envString(name string, dst *string) {
	if val := os.Getenv(envPrefix + name); val != "" {
		*dst = val
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(envPrefix + name); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(envPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(envPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
