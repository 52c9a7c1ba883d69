package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-koetsier/tidyseq/internal/render"
	"github.com/robert-koetsier/tidyseq/internal/stats"
	"github.com/robert-koetsier/tidyseq/internal/store"
)

// EnrichOptions holds flags for the enrich command.
type EnrichOptions struct {
	*RootOptions
	Database string
	Rows     string
	Cols     string
	Method   string
}

// NewEnrichCommand creates the enrich command.
func NewEnrichCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EnrichOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "enrich <dataset>",
		Short: "Test association between two categorical columns",
		Long: `Cross-tabulate two columns of a stored dataset and test the row and
column variables for independence. Rows with NA in either column are
excluded. Use chisq for large tables and fisher for 2x2 tables with
small counts.

Example:
  tidyseq enrich gene_sets --db ./tidyseq.db --rows in_pathway --cols significant --method fisher`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnrich(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Rows, "rows", "", "row variable column (required)")
	cmd.Flags().StringVar(&opts.Cols, "cols", "", "column variable column (required)")
	cmd.Flags().StringVar(&opts.Method, "method", "chisq", "test method (chisq|fisher)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("rows")
	_ = cmd.MarkFlagRequired("cols")

	return cmd
}

func runEnrich(opts *EnrichOptions, dataset string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Method != "chisq" && opts.Method != "fisher" {
		msg := fmt.Sprintf("unknown method %q (want chisq or fisher)", opts.Method)
		_ = formatter.Error(ErrCodeBadTest, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	t, err := st.ReadDataset(cmd.Context(), dataset)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read dataset %q", dataset), err)
	}

	ct, err := stats.Crosstab(t, opts.Rows, opts.Cols)
	if err != nil {
		_ = formatter.Error(ErrCodeRunFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cross-tabulation failed", err)
	}

	var result *stats.TestResult
	if opts.Method == "fisher" {
		result, err = stats.FisherExact(ct)
	} else {
		result, err = stats.ChiSquareTest(ct)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeRunFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "test failed", err)
	}

	if opts.Format == "json" {
		payload := testPayload(result)
		payload["n"] = ct.N
		payload["rows"] = ct.RowLevels
		payload["cols"] = ct.ColLevels
		return formatter.Success(payload)
	}

	crossTable, err := ct.ToTable()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render contingency table", err)
	}
	if err := render.RenderText(formatter.Writer, crossTable, render.TextOptions{}); err != nil {
		return WrapExitError(ExitCommandError, "failed to render contingency table", err)
	}
	printTestResult(formatter, result)
	return nil
}
