package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"formarter/compliance/pkg/auditor"
	"formarter/compliance/pkg/batch"
	"formarter/compliance/pkg/cli"
)

var batchFlags struct {
	ids      []string
	workers  int
	progress bool
	minScore float64
	ctx      contextFlags
}

var batchCmd = &cobra.Command{
	Use:   "batch [collection]",
	Short: "Audit a collection of motions",
	Long: `Audit every document of a library collection, or an explicit list of
document ids, and print the aggregate score and the issues that failed in
two or more documents.

Each document gets its own session. A document that cannot be audited is
recorded as a degenerate session and excluded from the aggregate.

Context flags apply to documents without recorded case flags.

Examples:
  # Audit a collection
  formarter batch case-1

  # Audit selected documents with four workers
  formarter batch --ids case-1/motion,case-2/motion --workers 4

  # Treat documents without recorded flags as ex parte
  formarter batch case-1 --ex-parte`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringSliceVar(&batchFlags.ids, "ids", nil, "audit these document ids instead of a collection")
	batchCmd.Flags().IntVarP(&batchFlags.workers, "workers", "w", 0, "override batch.workers")
	batchCmd.Flags().BoolVar(&batchFlags.progress, "progress", false, "draw a progress bar on stderr")
	batchCmd.Flags().Float64Var(&batchFlags.minScore, "min-score", 0, "exit with code 4 when the aggregate score is below this value")
	batchFlags.ctx.register(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (len(batchFlags.ids) == 0) {
		return cli.NewConfigError("args", "give either a collection or --ids")
	}

	opts := appOptions{workers: batchFlags.workers}
	var progress cli.ProgressReporter
	if batchFlags.progress {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr())
		opts.onProgress = cli.BatchProgress(progress)
	}

	a, err := newApp(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.close()

	ctxFlags := batchFlags.ctx.context(cmd)
	var res *batch.Result
	if len(args) == 1 {
		res, err = a.auditor.AuditCollection(cmd.Context(), args[0], ctxFlags)
	} else {
		res, err = a.auditor.AuditBatch(cmd.Context(), batchFlags.ids, auditor.BatchOptions{Context: ctxFlags})
	}
	if err != nil {
		if progress != nil {
			progress.Error(err)
		}
		return cli.NewCommandError("batch", err)
	}
	if progress != nil && len(res.Sessions) > 0 {
		progress.Finish()
	}

	if err := printResult(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if batchFlags.minScore > 0 {
		if res.AggregateFlag != "" {
			return fmt.Errorf("%w: aggregate undefined (%s)", cli.ErrBelowThreshold, res.AggregateFlag)
		}
		if res.AggregateScore < batchFlags.minScore {
			return fmt.Errorf("%w: %.1f < %.1f", cli.ErrBelowThreshold, res.AggregateScore, batchFlags.minScore)
		}
	}
	return nil
}
