package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/pipeline"
	"github.com/robert-koetsier/tidyseq/internal/querysql"
	"github.com/robert-koetsier/tidyseq/internal/render"
	"github.com/robert-koetsier/tidyseq/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Database string
	Cols     []string
	Where    []string
	Limit    int
	Out      string
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <dataset>",
		Short: "Run an ad-hoc query against a stored dataset",
		Long: `Select rows from an ingested dataset. Each --where clause is
"column op value" where op is one of eq, ne, lt, le, gt, ge; multiple
clauses are combined with AND. Values are parsed as numbers or booleans
when they look like one, otherwise as strings.

Example:
  tidyseq query de_results --db ./tidyseq.db --where "adj_p lt 0.05" --cols symbol,logFC
  tidyseq query counts --db ./tidyseq.db --limit 20 --out head.csv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringSliceVar(&opts.Cols, "cols", nil, "columns to select (default all)")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, `filter clause "column op value" (repeatable)`)
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum rows to return (0 means all)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "write the result to a .csv or .tsv file")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runQuery(opts *QueryOptions, dataset string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	pred, err := parseWhere(opts.Where)
	if err != nil {
		_ = formatter.Error(ErrCodeBadPredicate, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --where clause", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	q := querysql.Query{
		Dataset: dataset,
		Cols:    opts.Cols,
		Pred:    pred,
		Limit:   opts.Limit,
	}
	t, err := st.QueryDataset(cmd.Context(), q)
	if err != nil {
		_ = formatter.Error(ErrCodeRunFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, fmt.Sprintf("query on %q failed", dataset), err)
	}

	if opts.Out != "" {
		if err := t.WriteFile(opts.Out); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write result", err)
		}
		if opts.Format == "text" {
			fmt.Fprintf(formatter.Writer, "wrote %d rows to %s\n", t.NumRows(), opts.Out)
			return nil
		}
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"rows":    t.NumRows(),
			"columns": t.Header(),
			"kinds":   t.KindStrings(),
		})
	}
	return render.RenderText(formatter.Writer, t, render.TextOptions{MaxRows: 50})
}

// parseWhere turns "column op value" clauses into a conjunction.
func parseWhere(clauses []string) (pipeline.Predicate, error) {
	if len(clauses) == 0 {
		return nil, nil
	}
	var preds []pipeline.Predicate
	for _, clause := range clauses {
		fields := strings.Fields(clause)
		if len(fields) != 3 {
			return nil, fmt.Errorf("clause %q: want \"column op value\"", clause)
		}
		col, op, raw := fields[0], fields[1], fields[2]
		value := parseLiteral(raw)
		switch op {
		case "eq":
			preds = append(preds, pipeline.Equals{Col: col, Value: value})
		case pipeline.OpLt, pipeline.OpLe, pipeline.OpGt, pipeline.OpGe, pipeline.OpNe:
			preds = append(preds, pipeline.Cmp{Col: col, Op: op, Value: value})
		default:
			return nil, fmt.Errorf("clause %q: unknown op %q (want eq, ne, lt, le, gt, ge)", clause, op)
		}
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return pipeline.And{Preds: preds}, nil
}

// parseLiteral guesses the type of a command-line value: int, then float,
// then bool, falling back to string. "NA" means Null.
func parseLiteral(raw string) ir.Value {
	if raw == "NA" {
		return ir.Null{}
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ir.Int(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return ir.Float(f)
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return ir.Bool(b)
	}
	return ir.String(raw)
}
