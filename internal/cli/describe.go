package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/render"
	"github.com/robert-koetsier/tidyseq/internal/stats"
	"github.com/robert-koetsier/tidyseq/internal/store"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

// DescribeOptions holds flags for the describe command.
type DescribeOptions struct {
	*RootOptions
	Database string
	Cols     []string
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DescribeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "describe [dataset]",
		Short: "Summarize stored datasets",
		Long: `Without arguments, list every ingested dataset with its shape and
fingerprint. With a dataset name, print a five-number summary plus mean
and standard deviation for each numeric column.

Example:
  tidyseq describe --db ./tidyseq.db
  tidyseq describe de_results --db ./tidyseq.db --cols logFC,adj_p`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runListDatasets(opts, cmd)
			}
			return runDescribe(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringSliceVar(&opts.Cols, "cols", nil, "columns to summarize (default all numeric)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runListDatasets(opts *DescribeOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	infos, err := st.ListDatasets(cmd.Context())
	if err != nil {
		_ = formatter.Error(ErrCodeRunFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list datasets", err)
	}

	if opts.Format == "json" {
		return formatter.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(formatter.Writer, "no datasets ingested")
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(formatter.Writer, "%s: %d rows, %d columns (%s)\n",
			info.Name, info.Rows, len(info.Header), shortHash(info.Fingerprint))
	}
	return nil
}

func runDescribe(opts *DescribeOptions, dataset string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
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

	summaries, err := describeColumns(t, opts.Cols)
	if err != nil {
		_ = formatter.Error(ErrCodeRunFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "describe failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(summaries)
	}
	out, err := summaryTable(summaries)
	if err != nil {
		return WrapExitError(ExitCommandError, "describe failed", err)
	}
	return render.RenderText(formatter.Writer, out, render.TextOptions{})
}

// describeColumns summarizes the requested columns, or every numeric column
// when none are named.
func describeColumns(t *table.Table, cols []string) ([]*stats.Summary, error) {
	if len(cols) == 0 {
		for i, name := range t.Header() {
			switch t.Kinds()[i] {
			case table.KindInt, table.KindFloat:
				cols = append(cols, name)
			}
		}
		if len(cols) == 0 {
			return nil, fmt.Errorf("dataset has no numeric columns")
		}
	}

	summaries := make([]*stats.Summary, 0, len(cols))
	for _, col := range cols {
		s, err := stats.Describe(t, col)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func summaryTable(summaries []*stats.Summary) (*table.Table, error) {
	out, err := table.New(
		[]string{"column", "n", "na", "mean", "sd", "min", "q1", "median", "q3", "max"},
		[]table.Kind{
			table.KindString, table.KindInt, table.KindInt,
			table.KindFloat, table.KindFloat, table.KindFloat, table.KindFloat,
			table.KindFloat, table.KindFloat, table.KindFloat,
		},
	)
	if err != nil {
		return nil, err
	}
	for _, s := range summaries {
		err := out.AppendRow(
			ir.String(s.Column), ir.Int(s.N), ir.Int(s.NA),
			floatOrNull(s.Mean), floatOrNull(s.SD), floatOrNull(s.Min),
			floatOrNull(s.Q1), floatOrNull(s.Median), floatOrNull(s.Q3), floatOrNull(s.Max),
		)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func floatOrNull(f float64) ir.Value {
	if f != f { // NaN
		return ir.Null{}
	}
	return ir.Float(f)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
