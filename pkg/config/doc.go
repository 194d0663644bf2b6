// Package config provides configuration management for the compliance engine.
//
// Configuration is read from a YAML file, completed with defaults,
// overridden from the environment and validated as a whole.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("formarter.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("formarter.yaml")
//
// Unknown YAML keys are rejected so that typos do not silently fall back
// to defaults.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention FORMARTER_SECTION_FIELD:
//
//   - FORMARTER_STORAGE_BACKEND overrides storage.backend
//   - FORMARTER_AUDIT_SCORE_FORMULA overrides audit.score_formula
//   - FORMARTER_CATALOG_GIT_AUTH_TOKEN overrides catalog.git.auth.token
//   - FORMARTER_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//   - FORMARTER_SERVER_AUTH_KEYS sets server.auth.keys from "name=key,..."
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// Validate collects every problem into a ValidationError of FieldErrors
// keyed by dotted field path, for example:
//
//	configuration validation failed with 2 errors:
//	  - storage.backend: invalid storage backend "postgres": must be 'sqlite', 'file', or 'memory'
//	  - audit.score_formula: invalid score formula "legacy": must be 'exclude_warnings' or 'include_warnings'
//
// # Example Configuration
//
//	catalog:
//	  source: git
//	  git:
//	    repository: https://github.com/example/tro-catalog.git
//	    auth:
//	      type: token
//	library:
//	  root: /srv/motions
//	  default_context:
//	    is_ex_parte: true
//	audit:
//	  score_formula: exclude_warnings
//	  redact_evidence: true
//	storage:
//	  backend: sqlite
//	  sqlite:
//	    path: /var/lib/formarter/audits.db
//	    driver: sqlite
//	retention:
//	  enabled: true
//	  retention_days: 730
//	server:
//	  listen_address: 0.0.0.0:8080
//	  tls:
//	    enabled: true
//	    cert_file: /etc/formarter/tls/server.crt
//	    key_file: /etc/formarter/tls/server.key
//	  auth:
//	    enabled: true
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
package config
