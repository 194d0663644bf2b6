package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"formarter/compliance/pkg/audit/export"
	"formarter/compliance/pkg/cli"
)

var exportFlags struct {
	format string
	detail bool
	out    string
	query  queryFlags
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit records as JSON or CSV",
	Long: `Export audit records for reporting.

CSV export writes one row per session, or one row per checklist item with
--detail.

Examples:
  # Export every completed audit of a collection as CSV
  formarter export --format csv --collection case-1 --status completed --out case-1.csv

  # Export per-item results
  formarter export --format csv --detail --document case-1/motion`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFlags.format, "format", "json", "export format: json, csv")
	exportCmd.Flags().BoolVar(&exportFlags.detail, "detail", false, "one CSV row per checklist item")
	exportCmd.Flags().StringVar(&exportFlags.out, "out", "", "write to this file instead of stdout")
	exportFlags.query.register(exportCmd, 0)
}

func runExport(cmd *cobra.Command, args []string) error {
	q, err := exportFlags.query.query()
	if err != nil {
		return err
	}

	format := exportFlags.format
	if format == "csv" && exportFlags.detail {
		format = "csv-detail"
	}
	exporter, err := export.New(format, true)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	records, err := a.auditor.History(cmd.Context(), q)
	if err != nil {
		return cli.NewCommandError("export", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportFlags.out != "" {
		f, err := os.Create(exportFlags.out)
		if err != nil {
			return cli.NewCommandError("export", err)
		}
		defer f.Close()
		w = f
	}
	if err := exporter.Export(cmd.Context(), records, w); err != nil {
		return cli.NewCommandError("export", err)
	}
	return nil
}
