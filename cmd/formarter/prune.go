package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"formarter/compliance/pkg/audit/retention"
	"formarter/compliance/pkg/cli"
)

var pruneFlags struct {
	days            int
	keepPerDocument int
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete audit records past their retention",
	Long: `Delete audit records older than the retention period and trim each
document's history, once. The serve command runs the same pruning on the
retention schedule when retention.enabled is set.

Examples:
  # Apply the configured retention
  formarter prune

  # Keep 90 days and at most 10 sessions per document
  formarter prune --days 90 --keep 10`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().IntVar(&pruneFlags.days, "days", 0, "override retention.retention_days")
	pruneCmd.Flags().IntVar(&pruneFlags.keepPerDocument, "keep", 0, "override retention.keep_per_document")
}

func runPrune(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	rc := retentionConfig(&a.cfg.Retention)
	if pruneFlags.days > 0 {
		rc.RetentionDays = pruneFlags.days
	}
	if pruneFlags.keepPerDocument > 0 {
		rc.KeepPerDocument = pruneFlags.keepPerDocument
	}

	deleted, err := retention.NewPruner(a.store, rc).Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d audit records\n", deleted)
	return nil
}
