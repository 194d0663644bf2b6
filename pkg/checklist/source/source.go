package source

import (
	"context"
	"fmt"
	"os"

	"formarter/compliance/pkg/checklist"
)

// Source loads a rule catalog.
type Source interface {
	// Load reads and validates the catalog. Validation errors wrap
	// checklist.ErrMalformedRule.
	Load(ctx context.Context) (*checklist.Catalog, error)

	// Describe names the source for logs.
	Describe() string
}

// Embedded serves the catalog compiled into the binary.
type Embedded struct{}

// Load parses the embedded catalog.
func (Embedded) Load(ctx context.Context) (*checklist.Catalog, error) {
	return checklist.LoadDefault()
}

// Describe returns "embedded".
func (Embedded) Describe() string { return "embedded" }

// File reads a YAML catalog from disk.
type File struct {
	Path string
}

// Load reads and parses the catalog file.
func (f File) Load(ctx context.Context) (*checklist.Catalog, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", f.Path, err)
	}
	cat, err := checklist.Load(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", f.Path, err)
	}
	return cat, nil
}

// Describe returns the file path.
func (f File) Describe() string { return "file:" + f.Path }

// Config selects a catalog source.
type Config struct {
	// Source is "embedded", "file" or "git".
	// Default: "embedded"
	Source string

	// Path is the catalog file for the file source.
	Path string

	Git *GitConfig
}

// New returns the source described by cfg.
func New(cfg *Config) (Source, error) {
	if cfg == nil {
		return Embedded{}, nil
	}
	switch cfg.Source {
	case "", "embedded":
		return Embedded{}, nil
	case "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("file catalog source requires a path")
		}
		return File{Path: cfg.Path}, nil
	case "git":
		return NewGitSource(cfg.Git)
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
}
