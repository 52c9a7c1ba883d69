package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/robert-koetsier/tidyseq/internal/server"
	"github.com/robert-koetsier/tidyseq/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Database string
	Addr     string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored datasets over HTTP",
		Long: `Expose ingested datasets as a JSON API: dataset listings, filtered row
queries, numeric summaries, and run provenance.

Example:
  tidyseq serve --db ./tidyseq.db --addr :8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	srv := server.New(st, logger)
	if err := srv.Run(opts.Addr); err != nil {
		return WrapExitError(ExitCommandError, "server stopped", err)
	}
	return nil
}
