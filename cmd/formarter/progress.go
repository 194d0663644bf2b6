package main

import (
	"github.com/spf13/cobra"

	"formarter/compliance/pkg/cli"
)

var progressCmd = &cobra.Command{
	Use:   "progress [session-id]",
	Short: "Show how far an audit session has come",
	Long: `Show the progress of an audit session. Without a session id the
current interactive session is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProgress,
}

func init() {
	rootCmd.AddCommand(progressCmd)
}

func runProgress(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	sessionID := ""
	if len(args) == 1 {
		sessionID = args[0]
	} else {
		cur, err := a.auditor.Current(cmd.Context())
		if err != nil {
			return cli.NewCommandError("progress", err)
		}
		sessionID = cur.SessionID
	}

	report, err := a.auditor.Progress(cmd.Context(), sessionID)
	if err != nil {
		return cli.NewCommandError("progress", err)
	}
	return printResult(cmd.OutOrStdout(), report)
}
