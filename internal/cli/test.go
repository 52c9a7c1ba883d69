package cli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/robert-koetsier/tidyseq/internal/engine"
	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/pipeline"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Database string
	Update   bool
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <specs-dir>",
		Short: "Check analyses against their golden snapshots",
		Long: `Run every analysis that declares a golden file and compare its canonical
result snapshot byte-for-byte against the recorded one. Golden paths are
resolved relative to the specs directory. Exits 1 on any mismatch.

Example:
  tidyseq test ./specs
  tidyseq test ./specs --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: read data files from specs)")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden files from current results")

	return cmd
}

func runTest(opts *TestOptions, specsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	specs, errs := LoadSpecs(specsDir, LoadModeFailFast)
	if len(errs) > 0 {
		_ = formatter.Error(loadErrorCode(errs[0]), errs[0].Error(), nil)
		return WrapExitError(ExitCommandError, "failed to compile specs", errs[0])
	}

	var candidates []pipeline.Analysis
	for _, a := range specs.Analyses {
		if a.Golden != "" {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		msg := "no analyses declare a golden file"
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	src, cleanup, err := openSource(opts.Database, specsDir, specs)
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open datasets", err)
	}
	defer cleanup()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	eng := engine.New(src, engine.WithLogger(slog.New(slog.DiscardHandler)))

	failed := 0
	for _, a := range candidates {
		status, err := checkGolden(ctx, eng, a, specsDir, opts.Update)
		if err != nil {
			_ = formatter.Error(ErrCodeRunFailed, fmt.Sprintf("%s: %v", a.Name, err), nil)
			failed++
			continue
		}
		if opts.Format == "text" {
			fmt.Fprintf(formatter.Writer, "%s: %s\n", a.Name, status)
		}
		if status == "mismatch" {
			failed++
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d golden check(s) failed", failed, len(candidates)))
	}
	if opts.Format == "json" {
		return formatter.Success(map[string]any{"checked": len(candidates)})
	}
	return nil
}

// checkGolden runs one analysis and compares (or rewrites) its golden file.
// Returns "ok", "mismatch", or "updated".
func checkGolden(ctx context.Context, eng *engine.Executor, a pipeline.Analysis, specsDir string, update bool) (string, error) {
	result, err := eng.Run(ctx, a)
	if err != nil {
		return "", err
	}

	obj := ir.Object{"analysis": ir.String(a.Name)}
	if a.Output == pipeline.OutputChart && result.Chart != nil {
		obj["result"] = result.Chart.Snapshot()
	} else {
		obj["result"] = result.Table.Snapshot()
	}
	got, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", err
	}

	goldenPath := a.Golden
	if !filepath.IsAbs(goldenPath) {
		goldenPath = filepath.Join(specsDir, goldenPath)
	}

	if update {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(goldenPath, got, 0o644); err != nil {
			return "", err
		}
		return "updated", nil
	}

	want, err := os.ReadFile(goldenPath)
	if err != nil {
		return "", fmt.Errorf("reading golden file: %w (run with --update to create it)", err)
	}
	if !bytes.Equal(got, want) {
		return "mismatch", nil
	}
	return "ok", nil
}
