// Package cli implements the cobra command tree for where2work.
package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/where2work/internal/band"
	"github.com/hupe1980/where2work/internal/config"
	"github.com/hupe1980/where2work/internal/logging"
	"github.com/hupe1980/where2work/internal/store"
)

// Exit codes beyond the generic failure.
const (
	exitUsage = 2
	exitData  = 3
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute builds the command tree, runs it, and returns the exit code.
func Execute() int {
	cmd := NewRootCommand()

	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)

		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}

		return 1
	}

	return 0
}

// NewRootCommand constructs the top-level cobra.Command with all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "where2work",
		Short: "Explore and shortlist companies on an interactive bubble chart",
		Long: `where2work lays out a roster of companies as bubbles, one column per
employee band, and lets you build a shortlist by clicking bubbles.

Every command runs one render cycle: the dataset is filtered by the
selected locations, bands and industries, split into the shortlist and
the remaining pool, and both partitions are laid out deterministically.
A click names a chart and a marker index from the previous render and
moves that company to the other chart.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return &ExitError{Code: exitUsage, Err: err}
			}

			logger := logging.Setup(cfg)

			ctx := cmd.Context()
			ctx = config.NewContext(ctx, cfg)
			ctx = logging.NewContext(ctx, logger)
			cmd.SetContext(ctx)

			logger.Debug("configuration loaded",
				slog.String("logLevel", cfg.LogLevel),
				slog.String("logFormat", cfg.LogFormat),
				slog.String("data", cfg.Data),
				slog.String("store", cfg.Store),
				slog.String("configFile", cfg.ConfigFile),
			)

			return nil
		},
	}

	// Global persistent flags.
	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .where2work.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text, json")
	pf.Bool("no-color", false, "disable colored output")
	pf.BoolP("quiet", "q", false, "suppress non-essential output")

	// Dataset and state flags.
	pf.String("data", config.DefaultData, "dataset location: CSV path or s3://bucket/key")
	pf.StringSlice("bands", band.DefaultOrder(), "canonical employee bands, smallest first")
	pf.Uint64("seed", config.DefaultSeed, "seed applied to every layout pass")
	pf.String("store", config.StoreMemory, fmt.Sprintf("shortlist store: %v", store.Drivers()))
	pf.String("store-dsn", "", "sqlite file path or postgres connection string")
	pf.String("session", config.DefaultSession, "session the shortlist is kept under")
	pf.String("s3-region", "", "region for s3:// datasets")
	pf.String("s3-endpoint", "", "endpoint override for S3-compatible storage")
	pf.Bool("s3-path-style", false, "use path-style S3 addressing")

	// Flag parsing errors return exit code 2.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: exitUsage, Err: err}
	})

	// Register subcommands.
	cmd.AddCommand(
		newVersionCommand(),
		newRenderCommand(),
		newClickCommand(),
		newShortlistCommand(),
		newOptionsCommand(),
		newDiffCommand(),
		newWatchCommand(),
		newServeCommand(),
		newCompletionCommand(),
	)

	return cmd
}
