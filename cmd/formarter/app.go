package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"formarter/compliance/pkg/audit"
	"formarter/compliance/pkg/audit/retention"
	"formarter/compliance/pkg/audit/storage"
	"formarter/compliance/pkg/auditor"
	"formarter/compliance/pkg/batch"
	"formarter/compliance/pkg/checklist"
	"formarter/compliance/pkg/checklist/classifier"
	"formarter/compliance/pkg/checklist/source"
	"formarter/compliance/pkg/cli"
	"formarter/compliance/pkg/config"
	"formarter/compliance/pkg/library"
	"formarter/compliance/pkg/telemetry/logging"
	"formarter/compliance/pkg/telemetry/metrics"
	"formarter/compliance/pkg/telemetry/tracing"
)

// app holds the components shared by every command.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	source  source.Source
	catalog *checklist.Catalog
	library library.Library
	store   audit.Store
	auditor *auditor.Auditor
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

// appOptions tune newApp for a command.
type appOptions struct {
	// metrics creates a Prometheus collector; only the server exposes it.
	metrics bool

	// onProgress is passed to the batch runner.
	onProgress func(done, total int)

	// workers overrides batch.workers when positive.
	workers int
}

// loadConfig reads the configuration file and installs it globally.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			return nil, err
		}
		return nil, cli.NewConfigError(cfgFile, err.Error())
	}
	config.SetConfig(cfg)
	return cfg, nil
}

// setupLogging installs the configured logger as the slog default.
func setupLogging(cfg *config.Config) (*logging.Logger, error) {
	lc := logging.FromConfig(&cfg.Telemetry.Logging)
	if verbose {
		lc.Level = "debug"
	}
	logger, err := logging.New(lc)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger.Slog())
	return logger, nil
}

// catalogSource maps the catalog section onto a source.
func catalogSource(cfg *config.CatalogConfig) (source.Source, error) {
	g := cfg.Git
	return source.New(&source.Config{
		Source: cfg.Source,
		Path:   cfg.Path,
		Git: &source.GitConfig{
			Repository: g.Repository,
			Branch:     g.Branch,
			Path:       g.Path,
			LocalPath:  g.LocalPath,
			Depth:      g.Depth,
			Timeout:    g.Timeout,
			Auth: source.GitAuth{
				Type:             g.Auth.Type,
				Token:            g.Auth.Token,
				SSHKeyPath:       g.Auth.SSHKeyPath,
				SSHKeyPassphrase: g.Auth.SSHKeyPassphrase,
			},
		},
	})
}

// openLibrary opens the documents.json library when configured, otherwise
// the directory library.
func openLibrary(cfg *config.LibraryConfig) (library.Library, error) {
	if cfg.DocumentsJSON != "" {
		return library.LoadDocumentsJSON(cfg.DocumentsJSON)
	}
	return library.NewDirLibrary(&library.DirConfig{
		Root:           cfg.Root,
		Extensions:     cfg.Extensions,
		DefaultContext: cfg.DefaultContext,
	})
}

// openStore opens the configured audit record backend.
func openStore(cfg *config.StorageConfig) (audit.Store, error) {
	s := cfg.SQLite
	return storage.New(&storage.Config{
		Backend: cfg.Backend,
		SQLite: &storage.SQLiteConfig{
			Path:         s.Path,
			Driver:       s.Driver,
			MaxOpenConns: s.MaxOpenConns,
			MaxIdleConns: s.MaxIdleConns,
			WALMode:      s.WALMode,
			BusyTimeout:  s.BusyTimeout,
		},
		File: &storage.FileConfig{
			Dir:                    cfg.File.Dir,
			MaxSessionsPerDocument: cfg.File.MaxSessionsPerDocument,
		},
	})
}

// retentionConfig maps the retention section onto the pruner config. A
// negative retention keeps records forever.
func retentionConfig(cfg *config.RetentionConfig) *retention.Config {
	days := cfg.RetentionDays
	if days < 0 {
		days = 0
	}
	return &retention.Config{
		RetentionDays:       days,
		KeepPerDocument:     cfg.KeepPerDocument,
		PruneSchedule:       cfg.PruneSchedule,
		ArchiveBeforeDelete: cfg.ArchiveBeforeDelete,
		ArchivePath:         cfg.ArchivePath,
	}
}

// newApp loads configuration and wires the catalog, library, store and
// auditor. Callers must call close.
func newApp(ctx context.Context, opts appOptions) (a *app, err error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := setupLogging(cfg)
	if err != nil {
		return nil, err
	}

	a = &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
			a = nil
		}
	}()

	if opts.metrics {
		a.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}
	if a.tracer, err = tracing.New(&cfg.Telemetry.Tracing, Version); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if a.source, err = catalogSource(&cfg.Catalog); err != nil {
		return nil, cli.NewConfigError("catalog", err.Error())
	}
	a.catalog, err = a.source.Load(ctx)
	rules := 0
	if a.catalog != nil {
		rules = a.catalog.Len()
	}
	a.metrics.RecordCatalogLoad(cfg.Catalog.Source, rules, err)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog from %s: %w", a.source.Describe(), err)
	}
	slog.Debug("catalog loaded", "source", a.source.Describe(), "rules", rules, "version", a.catalog.Version())

	if a.library, err = openLibrary(&cfg.Library); err != nil {
		return nil, fmt.Errorf("failed to open document library: %w", err)
	}
	if a.store, err = openStore(&cfg.Storage); err != nil {
		return nil, fmt.Errorf("failed to open audit store: %w", err)
	}

	var filter classifier.EvidenceFilter
	if cfg.Audit.RedactEvidence {
		filter = logging.NewRedactor(cfg.Telemetry.Logging.RedactPatterns).RedactString
	}
	workers := cfg.Batch.Workers
	if opts.workers > 0 {
		workers = opts.workers
	}

	a.auditor, err = auditor.New(auditor.Options{
		Catalog:        a.catalog,
		Library:        a.library,
		Store:          a.store,
		Formula:        audit.ScoreFormula(cfg.Audit.ScoreFormula),
		MaxEvidence:    cfg.Audit.MaxEvidence,
		EvidenceFilter: filter,
		DefaultContext: cfg.Library.DefaultContext,
		TrackCurrent:   cfg.Audit.TrackCurrent,
		Recorder: &audit.RecorderConfig{
			Retries:      cfg.Audit.PersistRetries,
			WriteTimeout: cfg.Audit.WriteTimeout,
		},
		Batch:   &batch.Config{Workers: workers, OnProgress: opts.onProgress},
		Metrics: a.metrics,
		Tracer:  a.tracer,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// close releases the store and flushes traces.
func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("failed to close audit store", "error", err)
		}
	}
	if err := a.tracer.Shutdown(context.Background()); err != nil {
		slog.Warn("failed to flush traces", "error", err)
	}
}

// printResult writes v to the command's stdout in the --output format.
func printResult(w io.Writer, v any) error {
	format, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(w, v)
}
