package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/robert-koetsier/tidyseq/internal/engine"
	"github.com/robert-koetsier/tidyseq/internal/render"
	"github.com/robert-koetsier/tidyseq/internal/stats"
	"github.com/robert-koetsier/tidyseq/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Analysis string
	Out      string
	HTML     string
	MaxRows  int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <specs-dir>",
		Short: "Run an analysis pipeline from compiled specs",
		Long: `Compile the analysis specs in a directory and execute one analysis.

With --db, datasets are read from the store (ingest them first with
tidyseq load) and each run is recorded with its spec hash and input
fingerprint. Without --db, dataset files declared in the specs are read
directly.

Example:
  tidyseq run ./specs --analysis volcano --db ./tidyseq.db --html volcano.html
  tidyseq run ./specs --analysis top_genes --out top_genes.csv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Analysis, "analysis", "", "analysis name to run (required)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "write the result table to a .csv or .tsv file")
	cmd.Flags().StringVar(&opts.HTML, "html", "", "write the chart to an HTML file")
	cmd.Flags().IntVar(&opts.MaxRows, "max-rows", 0, "override the row quota (0 uses the default)")
	_ = cmd.MarkFlagRequired("analysis")

	return cmd
}

func runAnalysis(opts *RunOptions, specsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(formatter.GetErrWriter(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	result, errs := LoadSpecs(specsDir, LoadModeFailFast)
	if len(errs) > 0 {
		_ = formatter.Error(loadErrorCode(errs[0]), errs[0].Error(), nil)
		return WrapExitError(ExitCommandError, "failed to compile specs", errs[0])
	}

	a, ok := result.Analysis(opts.Analysis)
	if !ok {
		msg := fmt.Sprintf("analysis %q not found in %s", opts.Analysis, specsDir)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	src, cleanup, err := openSource(opts.Database, specsDir, result)
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open datasets", err)
	}
	defer cleanup()

	engOpts := []engine.Option{engine.WithLogger(logger)}
	if opts.MaxRows > 0 {
		engOpts = append(engOpts, engine.WithMaxRows(opts.MaxRows))
	}
	eng := engine.New(src, engOpts...)

	res, err := eng.Run(ctx, a)
	if err != nil {
		_ = formatter.Error(ErrCodeRunFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, fmt.Sprintf("analysis %q failed", a.Name), err)
	}

	return writeResult(formatter, opts, res)
}

// openSource picks the dataset source: the store when --db is set, otherwise
// the data files declared in the specs.
func openSource(database, specsDir string, specs *LoadResult) (engine.Source, func(), error) {
	if database != "" {
		st, err := store.Open(database)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil
	}

	src := engine.MapSource{}
	for _, d := range specs.Datasets {
		path := d.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(specsDir, path)
		}
		t, err := readEntry(path, ManifestEntry{Name: d.Name, Format: d.Format, NA: d.NA})
		if err != nil {
			return nil, nil, fmt.Errorf("dataset %q: %w", d.Name, err)
		}
		src[d.Name] = t
	}
	return src, func() {}, nil
}

func writeResult(formatter *OutputFormatter, opts *RunOptions, res *engine.Result) error {
	if opts.Out != "" && res.Table != nil {
		if err := res.Table.WriteFile(opts.Out); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write result table", err)
		}
	}
	if opts.HTML != "" {
		if res.Chart == nil {
			msg := "--html given but the analysis produced no chart"
			_ = formatter.Error(ErrCodeRunFailed, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		f, err := os.Create(opts.HTML)
		if err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to create HTML file", err)
		}
		defer f.Close()
		if err := render.RenderHTML(f, res.Chart); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to render chart", err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(resultPayload(res))
	}

	if res.Cross != nil {
		ct, err := res.Cross.ToTable()
		if err == nil {
			_ = render.RenderText(formatter.Writer, ct, render.TextOptions{})
		}
	}
	if res.Test != nil {
		printTestResult(formatter, res.Test)
	}
	if res.Table != nil && res.Cross == nil {
		if err := render.RenderText(formatter.Writer, res.Table, render.TextOptions{MaxRows: 50}); err != nil {
			return WrapExitError(ExitCommandError, "failed to render result", err)
		}
	}
	if res.Chart != nil && opts.HTML == "" {
		fmt.Fprintf(formatter.Writer, "chart %q with %d series (use --html to render)\n",
			res.Chart.Title, len(res.Chart.Series))
	}
	if res.RunID != "" {
		formatter.VerboseLog("run recorded as %s", res.RunID)
	}
	return nil
}

func resultPayload(res *engine.Result) map[string]any {
	payload := map[string]any{}
	if res.Table != nil {
		payload["rows"] = res.Table.NumRows()
		payload["columns"] = res.Table.Header()
		payload["kinds"] = res.Table.KindStrings()
	}
	if res.Chart != nil {
		payload["chart"] = res.Chart.Snapshot()
	}
	if res.Test != nil {
		payload["test"] = testPayload(res.Test)
	}
	if res.RunID != "" {
		payload["run_id"] = res.RunID
	}
	return payload
}

func testPayload(tr *stats.TestResult) map[string]any {
	payload := map[string]any{
		"method":  tr.Method,
		"p_value": tr.PValue,
	}
	if tr.Method == "chisq" {
		payload["statistic"] = tr.Statistic
		payload["df"] = tr.DF
		payload["yates"] = tr.Yates
	} else {
		payload["odds_ratio"] = tr.OddsRatio
	}
	return payload
}

func printTestResult(formatter *OutputFormatter, tr *stats.TestResult) {
	switch tr.Method {
	case "chisq":
		label := "Pearson's chi-squared test"
		if tr.Yates {
			label += " with Yates' continuity correction"
		}
		fmt.Fprintf(formatter.Writer, "\n%s\n", label)
		fmt.Fprintf(formatter.Writer, "X-squared = %.5g, df = %d, p-value = %.4g\n",
			tr.Statistic, tr.DF, tr.PValue)
	case "fisher":
		fmt.Fprintf(formatter.Writer, "\nFisher's exact test\n")
		fmt.Fprintf(formatter.Writer, "p-value = %.4g, odds ratio = %.5g\n", tr.PValue, tr.OddsRatio)
	}
}

// loadErrorCode pulls the E-code out of a LoadError, with a generic fallback.
func loadErrorCode(err error) string {
	if le, ok := err.(*LoadError); ok {
		return le.Code
	}
	return ErrCodeGeneric
}
