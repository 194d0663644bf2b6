/*
Package cli provides command-line helpers for the formarter command.

Output Formatting:

Results can be printed as text reports, JSON, or CSV:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, record); err != nil {
		return err
	}

The text formatter knows audit records, history lists, batch results,
progress reports, guidance and rule lists. CSV is written through the
audit CSV exporter and only accepts audit records.

Progress Reporting:

Batch audits report progress through the runner's OnProgress hook:

	progress := cli.NewProgressReporter(os.Stderr)
	cfg := &batch.Config{Workers: 4, OnProgress: cli.BatchProgress(progress)}

Exit Codes:

ExitCode maps errors to process exit codes. Unknown documents,
collections, sessions and rules exit with ExitNotFound so scripts can
tell them apart from a completed audit.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
