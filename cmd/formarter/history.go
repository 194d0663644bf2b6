package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"formarter/compliance/pkg/audit"
	"formarter/compliance/pkg/cli"
)

// queryFlags select audit records for history and export.
type queryFlags struct {
	document   string
	collection string
	status     string
	since      string
	until      string
	limit      int
}

func (f *queryFlags) register(cmd *cobra.Command, defaultLimit int) {
	cmd.Flags().StringVar(&f.document, "document", "", "only records of this document id")
	cmd.Flags().StringVar(&f.collection, "collection", "", "only records of this collection")
	cmd.Flags().StringVar(&f.status, "status", "", "only records in this state (in_progress, completed)")
	cmd.Flags().StringVar(&f.since, "since", "", "only records created at or after this RFC 3339 time")
	cmd.Flags().StringVar(&f.until, "until", "", "only records created at or before this RFC 3339 time")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", defaultLimit, "maximum number of records, 0 for all")
}

func (f *queryFlags) query() (*audit.Query, error) {
	q := &audit.Query{
		DocumentID: f.document,
		Collection: f.collection,
		Status:     audit.State(f.status),
		Limit:      f.limit,
	}
	switch q.Status {
	case "", audit.StateInProgress, audit.StateCompleted:
	default:
		return nil, cli.NewConfigError("status", fmt.Sprintf("unknown state %q", f.status))
	}
	for _, tf := range []struct {
		name  string
		value string
		dst   **time.Time
	}{
		{"since", f.since, &q.StartTime},
		{"until", f.until, &q.EndTime},
	} {
		if tf.value == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, tf.value)
		if err != nil {
			return nil, cli.NewConfigError(tf.name, "must be an RFC 3339 time")
		}
		*tf.dst = &t
	}
	if f.limit < 0 {
		return nil, cli.NewConfigError("limit", "must not be negative")
	}
	return q, nil
}

var historyFlags queryFlags

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past audit sessions",
	Long: `List recorded audit sessions, newest first.

Examples:
  # The last 20 audits
  formarter history

  # Every audit of one motion
  formarter history --document case-1/motion --limit 0`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyFlags.register(historyCmd, 20)
}

func runHistory(cmd *cobra.Command, args []string) error {
	q, err := historyFlags.query()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	records, err := a.auditor.History(cmd.Context(), q)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	return printResult(cmd.OutOrStdout(), records)
}
