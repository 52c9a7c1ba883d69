package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/robert-koetsier/tidyseq/internal/store"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

// Manifest is the YAML file listing delimited data files to ingest.
type Manifest struct {
	Datasets []ManifestEntry `yaml:"datasets"`
}

// ManifestEntry declares one dataset: where its file lives and how to read it.
type ManifestEntry struct {
	Name   string   `yaml:"name"`
	Path   string   `yaml:"path"`
	Format string   `yaml:"format,omitempty"` // csv|tsv, inferred from path when empty
	NA     []string `yaml:"na,omitempty"`     // extra NA markers
}

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Database string
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <manifest.yaml>",
		Short: "Ingest delimited data files into the dataset store",
		Long: `Read the delimited files listed in a YAML manifest and ingest each as a
typed dataset. Column kinds are inferred from the data; re-ingesting a
name replaces the stored dataset.

Example:
  tidyseq load --db ./tidyseq.db ./datasets.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runLoad(opts *LoadOptions, manifestPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	manifest, err := ReadManifest(manifestPath)
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read manifest", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	baseDir := filepath.Dir(manifestPath)

	type loaded struct {
		Name string `json:"name"`
		Rows int    `json:"rows"`
		Cols int    `json:"cols"`
	}
	var report []loaded

	for _, entry := range manifest.Datasets {
		path := entry.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}

		formatter.VerboseLog("reading %s from %s", entry.Name, path)
		t, err := readEntry(path, entry)
		if err != nil {
			_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read dataset %q", entry.Name), err)
		}

		if err := st.Ingest(ctx, entry.Name, t); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to ingest dataset %q", entry.Name), err)
		}
		report = append(report, loaded{Name: entry.Name, Rows: t.NumRows(), Cols: t.NumCols()})
	}

	if opts.Format == "json" {
		return formatter.Success(report)
	}
	for _, r := range report {
		fmt.Fprintf(formatter.Writer, "loaded %s (%d rows, %d columns)\n", r.Name, r.Rows, r.Cols)
	}
	return nil
}

// ReadManifest parses and validates a dataset manifest file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if len(m.Datasets) == 0 {
		return nil, fmt.Errorf("manifest %s lists no datasets", path)
	}
	seen := make(map[string]bool)
	for i, entry := range m.Datasets {
		if entry.Name == "" {
			return nil, fmt.Errorf("datasets[%d]: name is required", i)
		}
		if entry.Path == "" {
			return nil, fmt.Errorf("datasets[%d] (%s): path is required", i, entry.Name)
		}
		if seen[entry.Name] {
			return nil, fmt.Errorf("duplicate dataset name %q", entry.Name)
		}
		seen[entry.Name] = true
		switch entry.Format {
		case "", "csv", "tsv":
		default:
			return nil, fmt.Errorf("dataset %q: unknown format %q (want csv or tsv)", entry.Name, entry.Format)
		}
	}
	return &m, nil
}

func readEntry(path string, entry ManifestEntry) (*table.Table, error) {
	comma := table.DelimForPath(path)
	switch entry.Format {
	case "csv":
		comma = ','
	case "tsv":
		comma = '\t'
	}

	opts := table.ReadOptions{Comma: comma}
	if len(entry.NA) > 0 {
		opts.NAStrings = append(append([]string{}, table.DefaultNAStrings...), entry.NA...)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return table.ReadDelim(f, opts)
}
