package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"formarter/compliance/pkg/audit"
	"formarter/compliance/pkg/auditor"
	"formarter/compliance/pkg/checklist"
	"formarter/compliance/pkg/cli"
)

// contextFlags are the applicability flags shared by audit and batch.
type contextFlags struct {
	exParte     bool
	urgent      bool
	caseProfile bool
}

func (f *contextFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.exParte, "ex-parte", false, "the motion is filed ex parte")
	cmd.Flags().BoolVar(&f.urgent, "urgent", false, "the motion is urgent or an emergency")
	cmd.Flags().BoolVar(&f.caseProfile, "case-profile", false, "a case profile is on file")
}

// context returns the flags as a context, or nil when none were given on
// the command line so that stored and default contexts apply.
func (f *contextFlags) context(cmd *cobra.Command) *checklist.Context {
	if cmd == nil || !(cmd.Flags().Changed("ex-parte") || cmd.Flags().Changed("urgent") || cmd.Flags().Changed("case-profile")) {
		return nil
	}
	return &checklist.Context{IsExParte: f.exParte, IsUrgent: f.urgent, HasCaseProfile: f.caseProfile}
}

var auditFlags struct {
	file     string
	name     string
	minScore float64
	ctx      contextFlags
}

var auditCmd = &cobra.Command{
	Use:   "audit [document-id]",
	Short: "Audit one motion",
	Long: `Audit one motion against the checklist and print the report.

The document is looked up in the configured library by id. With --file the
text is read from a file instead and the id defaults to the file name.

Examples:
  # Audit a library document
  formarter audit case-1/motion

  # Audit a file as an ex parte motion
  formarter audit --file motion.txt --ex-parte

  # Fail in CI when the score is under 80
  formarter audit case-1/motion --min-score 80`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVarP(&auditFlags.file, "file", "f", "", "audit the text of this file")
	auditCmd.Flags().StringVar(&auditFlags.name, "name", "", "document name recorded with --file")
	auditCmd.Flags().Float64Var(&auditFlags.minScore, "min-score", 0, "exit with code 4 when the score is below this value")
	auditFlags.ctx.register(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && auditFlags.file == "" {
		return cli.NewConfigError("args", "a document id or --file is required")
	}
	if auditFlags.file == "" && auditFlags.ctx.context(cmd) != nil {
		return cli.NewConfigError("ex-parte", "context flags apply to --file audits; library documents use their recorded context")
	}

	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	var rec *audit.Record
	if auditFlags.file != "" {
		text, err := os.ReadFile(auditFlags.file)
		if err != nil {
			return cli.NewCommandError("audit", err)
		}
		id := strings.TrimSuffix(filepath.Base(auditFlags.file), filepath.Ext(auditFlags.file))
		if len(args) > 0 {
			id = args[0]
		}
		rec, err = a.auditor.AuditText(cmd.Context(), auditor.TextRequest{
			DocumentID:   id,
			DocumentName: auditFlags.name,
			Text:         string(text),
			Context:      auditFlags.ctx.context(cmd),
		})
		if err != nil {
			return cli.NewCommandError("audit", err)
		}
	} else {
		rec, err = a.auditor.AuditDocument(cmd.Context(), args[0])
		if err != nil {
			return cli.NewCommandError("audit", err)
		}
	}

	if err := printResult(cmd.OutOrStdout(), rec); err != nil {
		return err
	}
	return checkThreshold(rec.Summary, auditFlags.minScore)
}

// checkThreshold returns ErrBelowThreshold when min is set and the score
// is undefined or under it.
func checkThreshold(sum audit.Summary, min float64) error {
	if min <= 0 {
		return nil
	}
	if !sum.ScoreDefined() {
		return fmt.Errorf("%w: score undefined (%s)", cli.ErrBelowThreshold, sum.ScoreFlag)
	}
	if sum.Score < min {
		return fmt.Errorf("%w: %.1f < %.1f", cli.ErrBelowThreshold, sum.Score, min)
	}
	return nil
}
