package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"formarter/compliance/pkg/checklist"
	"formarter/compliance/pkg/cli"
)

var rulesFlags struct {
	category string
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the checklist items",
	RunE:  runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)

	rulesCmd.Flags().StringVar(&rulesFlags.category, "category", "", "only list items of this category")
}

func runRules(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	rules := a.catalog.All()
	if rulesFlags.category != "" {
		c := checklist.Category(rulesFlags.category)
		if !c.Valid() {
			return cli.NewConfigError("category", fmt.Sprintf("unknown category %q", rulesFlags.category))
		}
		rules = a.catalog.ByCategory(c)
	}
	return printResult(cmd.OutOrStdout(), rules)
}
