package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"formarter/compliance/pkg/audit/retention"
	"formarter/compliance/pkg/checklist"
	"formarter/compliance/pkg/cli"
	"formarter/compliance/pkg/library"
	"formarter/compliance/pkg/security/auth"
	sectls "formarter/compliance/pkg/security/tls"
	"formarter/compliance/pkg/server"
	"formarter/compliance/pkg/telemetry/health"
)

var serveFlags struct {
	listenAddress string
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the audit HTTP API",
	Long: `Start the audit HTTP API with the specified configuration.

The server exposes audits, collection audits, progress, guidance and the
rule catalog under /v1, plus metrics, liveness, readiness and version
endpoints. With library.watch the document index is refreshed when files
change; SIGHUP refreshes it on demand. With retention.enabled old records
are pruned on the retention schedule.

server.tls serves HTTPS and re-reads renewed certificates; a client CA
bundle turns on mutual TLS. server.auth requires an API key on /v1 routes,
sent as "Authorization: Bearer <key>" or "X-API-Key: <key>".

Examples:
  # Start with a config file
  formarter serve --config /etc/formarter/formarter.yaml

  # Override the listen address
  formarter serve --listen 0.0.0.0:8080

  # Validate configuration and wiring without serving
  formarter serve --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override server.listen_address")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config and exit")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	a, err := newApp(ctx, appOptions{metrics: true})
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.cfg
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	catalog := a.catalog
	checker.RegisterCheck("catalog", health.CatalogCheck(func() *checklist.Catalog { return catalog }))
	checker.RegisterCheck("store", health.StoreCheck(a.store))
	checker.RegisterCheck("library", health.LibraryCheck(a.library))

	opts := server.Options{
		Auditor:       a.auditor,
		Health:        checker,
		Metrics:       a.metrics,
		Tracer:        a.tracer,
		MetricsPath:   cfg.Telemetry.Metrics.Path,
		LivenessPath:  cfg.Telemetry.Health.LivenessPath,
		ReadinessPath: cfg.Telemetry.Health.ReadinessPath,
		Build:         buildInfo(),
	}
	if cfg.Server.Auth.Enabled {
		opts.Keys = auth.NewKeySet(cfg.Server.Auth.Keys)
	}
	var certs *sectls.Reloader
	if cfg.Server.TLS.Enabled {
		if certs, err = sectls.NewReloader(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil {
			return cli.NewConfigError("server.tls", err.Error())
		}
		if opts.TLS, err = sectls.ServerConfig(&cfg.Server.TLS, certs); err != nil {
			return cli.NewConfigError("server.tls", err.Error())
		}
	}

	srv, err := server.New(&cfg.Server, opts)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	if serveFlags.dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration valid (%d rules from %s)\n", a.catalog.Len(), a.source.Describe())
		return nil
	}

	if certs != nil {
		go certs.Run(ctx, cfg.Server.TLS.ReloadInterval)
	}
	if err := startLibraryRefresh(ctx, cfg.Library.Watch, cfg.Library.DebounceInterval, a.library); err != nil {
		return cli.NewCommandError("serve", err)
	}

	if cfg.Retention.Enabled {
		pruner := retention.NewPruner(a.store, retentionConfig(&cfg.Retention))
		if err := pruner.Start(ctx); err != nil {
			return cli.NewCommandError("serve", fmt.Errorf("failed to start retention scheduler: %w", err))
		}
		defer pruner.Stop()
		if next := pruner.NextPruning(); next != nil {
			slog.Info("retention scheduler started", "next_pruning", next)
		}
	}

	scheme := "http"
	if opts.TLS != nil {
		scheme = "https"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Formarter %s serving on %s://%s (%d rules, %s storage)\n",
		Version, scheme, cfg.Server.ListenAddress, a.catalog.Len(), cfg.Storage.Backend)

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	slog.Info("server stopped")
	return nil
}

// startLibraryRefresh invalidates the directory library's index on file
// changes when watch is set, and on every SIGHUP. Libraries without an
// index are left alone.
func startLibraryRefresh(ctx context.Context, watch bool, debounce time.Duration, lib library.Library) error {
	dir, ok := lib.(*library.DirLibrary)
	if !ok {
		return nil
	}

	if watch {
		w, err := library.NewWatcher(dir, &library.WatcherConfig{Root: dir.Root(), DebounceInterval: debounce})
		if err != nil {
			return err
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				slog.Error("library watcher stopped", "error", err)
			}
		}()
	}

	reload, stopReload := cli.WaitForReload()
	go func() {
		defer stopReload()
		for {
			select {
			case <-ctx.Done():
				return
			case <-reload:
				slog.Info("refreshing document index")
				dir.Invalidate()
			}
		}
	}()
	return nil
}
