package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"formarter/compliance/pkg/audit"
	"formarter/compliance/pkg/audit/export"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to keep audit records.
	// 0 keeps records forever.
	// Default: 365
	RetentionDays int

	// KeepPerDocument is the number of most recent sessions kept per
	// document regardless of age. 0 means no per-document cap.
	// Default: 0
	KeepPerDocument int

	// PruneSchedule is a cron expression for scheduled pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string

	// ArchiveBeforeDelete writes pruned records to a JSON archive first.
	// Default: false
	ArchiveBeforeDelete bool

	// ArchivePath is the directory for archives.
	// Default: "data/archives"
	ArchivePath string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 365,
		PruneSchedule: "0 3 * * *",
		ArchivePath:   "data/archives",
	}
}

// Pruner removes audit records past their retention.
type Pruner struct {
	store     audit.Store
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
	now       func() time.Time
}

// NewPruner creates a new retention pruner over store.
func NewPruner(store audit.Store, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Pruner{
		store:  store,
		config: config,
		logger: slog.Default().With("component", "audit.retention"),
		now:    time.Now,
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Prune deletes records older than the retention period, then trims each
// document's history to KeepPerDocument sessions. It returns the number of
// records deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += deleted
	}

	if p.config.KeepPerDocument > 0 {
		deleted, err := p.pruneByDocument(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by document failed: %w", err)
		}
		total += deleted
	}

	if total == 0 {
		p.logger.Debug("no audit records pruned",
			"retention_days", p.config.RetentionDays,
			"keep_per_document", p.config.KeepPerDocument,
		)
	} else {
		p.logger.Info("audit pruning completed",
			"total_deleted", total,
			"retention_days", p.config.RetentionDays,
			"keep_per_document", p.config.KeepPerDocument,
		)
	}
	return total, nil
}

// pruneByAge deletes records created before the cutoff.
func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)
	query := &audit.Query{EndTime: &cutoff}

	if p.config.ArchiveBeforeDelete {
		records, err := p.store.Query(ctx, query)
		if err != nil {
			return 0, audit.NewRetentionError(p.config.RetentionDays, err)
		}
		if err := p.archive(ctx, "age", records); err != nil {
			return 0, audit.NewRetentionError(p.config.RetentionDays, err)
		}
	}

	deleted, err := p.store.Delete(ctx, query)
	if err != nil {
		return 0, audit.NewRetentionError(p.config.RetentionDays, err)
	}
	p.logger.Info("pruned audit records by age",
		"deleted_count", deleted,
		"cutoff_time", cutoff,
	)
	return deleted, nil
}

// pruneByDocument keeps the newest KeepPerDocument sessions of each
// document and deletes the rest one session at a time.
func (p *Pruner) pruneByDocument(ctx context.Context) (int64, error) {
	records, err := p.store.Query(ctx, &audit.Query{SortOrder: "desc"})
	if err != nil {
		return 0, audit.NewRetentionError(p.config.RetentionDays, err)
	}

	seen := make(map[string]int)
	var excess []*audit.Record
	for _, rec := range records {
		seen[rec.DocumentID]++
		if seen[rec.DocumentID] > p.config.KeepPerDocument {
			excess = append(excess, rec)
		}
	}
	if len(excess) == 0 {
		return 0, nil
	}

	sort.Slice(excess, func(i, j int) bool { return excess[i].CreatedAt.Before(excess[j].CreatedAt) })
	if p.config.ArchiveBeforeDelete {
		if err := p.archive(ctx, "history", excess); err != nil {
			return 0, audit.NewRetentionError(p.config.RetentionDays, err)
		}
	}

	var deleted int64
	for _, rec := range excess {
		n, err := p.store.Delete(ctx, &audit.Query{SessionID: rec.SessionID})
		if err != nil {
			return deleted, audit.NewRetentionError(p.config.RetentionDays, err)
		}
		deleted += n
	}
	p.logger.Info("pruned audit history per document",
		"deleted_count", deleted,
		"keep_per_document", p.config.KeepPerDocument,
	)
	return deleted, nil
}

// archive writes records to a timestamped JSON file.
func (p *Pruner) archive(ctx context.Context, reason string, records []*audit.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := fmt.Sprintf("audits-%s-%s.json", reason, p.now().UTC().Format("2006-01-02-150405"))
	path := filepath.Join(p.config.ArchivePath, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer f.Close()

	if err := export.NewJSONExporter(true).Export(ctx, records, f); err != nil {
		return fmt.Errorf("failed to export records to archive: %w", err)
	}

	p.logger.Info("audit records archived",
		"archive_file", path,
		"record_count", len(records),
	)
	return nil
}

// Start starts the pruning scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the pruning scheduler and waits for a running prune.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning, or nil.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
