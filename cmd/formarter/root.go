package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"formarter/compliance/pkg/cli"
)

var (
	// Global flags
	cfgFile      string
	verbose      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "formarter",
	Short: "Formarter - TRO motion compliance auditor",
	Long: `Formarter checks temporary restraining order motions against a
checklist of filing requirements.

Each audit evaluates every checklist item, records its evidence, computes
a compliance score and lists the critical issues. Collections of motions
can be audited together for an aggregate score and the issues they share.

Exit codes:
  0  success
  1  error
  2  invalid configuration or flags
  3  document, collection, session or rule not found
  4  score below --min-score`,
	Version:       Version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and exits with a code that tells "not
// found" apart from other failures.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults plus FORMARTER_* environment when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text, json, csv")
}
