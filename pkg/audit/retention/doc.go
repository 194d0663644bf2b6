// Package retention prunes old audit records.
//
// A Pruner deletes records older than RetentionDays and, independently,
// trims each document's history to its KeepPerDocument newest sessions.
// Pruned records can be archived to JSON first. A Scheduler runs the
// pruner on a cron schedule (github.com/robfig/cron/v3):
//
//	pruner := retention.NewPruner(store, &retention.Config{
//	    RetentionDays: 365,
//	    PruneSchedule: "0 3 * * *",
//	})
//	if err := pruner.Start(ctx); err != nil {
//	    return err
//	}
//	defer pruner.Stop()
package retention
