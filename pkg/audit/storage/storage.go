package storage

import (
	"fmt"

	"formarter/compliance/pkg/audit"
)

// Backend names accepted by New.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Config selects and configures a storage backend.
type Config struct {
	// Backend is one of "sqlite", "file" or "memory".
	// Default: "sqlite"
	Backend string

	SQLite *SQLiteConfig
	File   *FileConfig
}

// New creates the backend named by cfg.Backend.
func New(cfg *Config) (audit.Store, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	switch cfg.Backend {
	case "", BackendSQLite:
		return NewSQLiteStorage(cfg.SQLite)
	case BackendFile:
		return NewFileStorage(cfg.File)
	case BackendMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, audit.NewStorageError(cfg.Backend, "open", fmt.Errorf("unknown storage backend %q", cfg.Backend))
	}
}
