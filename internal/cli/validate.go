package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	FailFast bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate CUE analysis specs without running them",
		Long: `Compile every dataset declaration and analysis in the directory and report
all problems found. Exits 1 when any spec is invalid.

Example:
  tidyseq validate ./specs
  tidyseq validate ./specs --fail-fast --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "stop at the first error")

	return cmd
}

func runValidate(opts *ValidateOptions, specsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	mode := LoadModeCollectAll
	if opts.FailFast {
		mode = LoadModeFailFast
	}

	result, errs := LoadSpecs(specsDir, mode)
	if len(errs) > 0 {
		details := make([]string, len(errs))
		for i, err := range errs {
			details[i] = err.Error()
		}
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("%d problem(s) found", len(errs)), details)
		if opts.Format == "text" {
			for _, d := range details {
				fmt.Fprintf(formatter.Writer, "  %s\n", d)
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	summary := struct {
		Files    int `json:"files"`
		Datasets int `json:"datasets"`
		Analyses int `json:"analyses"`
	}{result.FileCount, len(result.Datasets), len(result.Analyses)}

	if opts.Format == "json" {
		return formatter.Success(summary)
	}
	fmt.Fprintf(formatter.Writer, "ok: %d file(s), %d dataset(s), %d analysis(es)\n",
		summary.Files, summary.Datasets, summary.Analyses)
	return nil
}
