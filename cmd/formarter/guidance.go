package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"formarter/compliance/pkg/cli"
)

var guidanceFlags struct {
	session string
	current bool
}

var guidanceCmd = &cobra.Command{
	Use:   "guidance [item-id]",
	Short: "Explain how to fix checklist failures",
	Long: `Show the success criteria, explanation and fix suggestion for one
checklist item, or for every failed item of an audit session.

Examples:
  # Guidance for item 12
  formarter guidance 12

  # Guidance for every failure of a session
  formarter guidance --session audit-20250101-120000-abcd1234

  # Guidance for the current interactive session
  formarter guidance --current`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGuidance,
}

func init() {
	rootCmd.AddCommand(guidanceCmd)

	guidanceCmd.Flags().StringVarP(&guidanceFlags.session, "session", "s", "", "show guidance for the failures of this session")
	guidanceCmd.Flags().BoolVar(&guidanceFlags.current, "current", false, "show guidance for the failures of the current session")
}

func runGuidance(cmd *cobra.Command, args []string) error {
	modes := 0
	for _, set := range []bool{len(args) == 1, guidanceFlags.session != "", guidanceFlags.current} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return cli.NewConfigError("args", "give exactly one of an item id, --session or --current")
	}

	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	if len(args) == 1 {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return cli.NewConfigError("item-id", "must be an integer")
		}
		g, err := a.auditor.Guidance(id)
		if err != nil {
			return cli.NewCommandError("guidance", err)
		}
		return printResult(cmd.OutOrStdout(), g)
	}

	sessionID := guidanceFlags.session
	if guidanceFlags.current {
		cur, err := a.auditor.Current(cmd.Context())
		if err != nil {
			return cli.NewCommandError("guidance", err)
		}
		sessionID = cur.SessionID
	}
	fg, err := a.auditor.FailingGuidance(cmd.Context(), sessionID)
	if err != nil {
		return cli.NewCommandError("guidance", err)
	}
	return printResult(cmd.OutOrStdout(), fg)
}
