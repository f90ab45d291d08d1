package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/where2work/internal/config"
	"github.com/hupe1980/where2work/internal/cycle"
	"github.com/hupe1980/where2work/internal/diff"
	"github.com/hupe1980/where2work/internal/filter"
	"github.com/hupe1980/where2work/internal/logging"
	"github.com/hupe1980/where2work/internal/watch"
)

type watchOptions struct {
	filterOptions
	outputOptions

	debounce time.Duration
}

func newWatchCommand() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-render whenever the dataset changes",
		Long: `Watch monitors the dataset file, and the config file when one is in
use, and re-renders the charts whenever they change. File changes are
debounced to avoid rapid re-runs.

Each run reloads the dataset, renders it against the session's shortlist
and writes the result to --output. The status line reports how many
companies were loaded, shortlisted and left in the pool, followed by the
companies that changed charts since the previous run.

Edits to the config file (bands, layout tuning, presets) apply from the
next run. A run that fails leaves the previous output in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, opts)
		},
	}

	registerFilterFlags(cmd, &opts.filterOptions)
	registerOutputFlags(cmd, &opts.outputOptions)

	cmd.Flags().DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "debounce interval for file changes")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *watchOptions) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)

	if opts.output == "" || opts.output == "-" {
		return &ExitError{Code: exitUsage, Err: fmt.Errorf("--output (-o) is required for watch mode")}
	}

	if isRemote(cfg.Data) {
		return &ExitError{Code: exitUsage, Err: fmt.Errorf("watch needs a local dataset, got %s", cfg.Data)}
	}

	if _, err := opts.encodeOptions(); err != nil {
		return err
	}

	if _, err := opts.criteria(cfg); err != nil {
		return err
	}

	engine, err := newEngine(ctx, cfg, true)
	if err != nil {
		return err
	}

	svc, closeFn, err := newService(ctx, cfg, engine)
	if err != nil {
		return err
	}
	defer closeFn()

	files := []string{cfg.Data}
	if cfg.ConfigFile != "" {
		files = append(files, cfg.ConfigFile)
	}

	runner := &watchRunner{
		cmd:  cmd,
		opts: opts,
		cfg:  cfg,
		svc:  svc,
	}

	if cfg.ConfigFile != "" {
		runner.loadConfig = func() (*config.Config, error) {
			return config.Load(cmd, cfg.ConfigFile)
		}
	}

	watchOpts := watch.DefaultOptions()
	watchOpts.Files = files
	watchOpts.Debounce = opts.debounce
	watchOpts.Logger = logging.FromContext(ctx)
	watchOpts.Out = cmd.ErrOrStderr()

	return watch.Run(ctx, watchOpts, runner.run)
}

// watchRunner performs one watch run. When the config file is watched,
// every run re-reads it and rebuilds the engine and criteria, so edits to
// bands, layout tuning or presets take effect. The shortlist store is kept.
type watchRunner struct {
	cmd  *cobra.Command
	opts *watchOptions
	cfg  *config.Config
	svc  *cycle.Service

	// loadConfig re-reads the configuration; nil keeps cfg.
	loadConfig func() (*config.Config, error)

	prev *diff.Membership
}

func (w *watchRunner) run(ctx context.Context) (*watch.RunResult, error) {
	cfg, svc := w.cfg, w.svc

	if w.loadConfig != nil {
		next, err := w.loadConfig()
		if err != nil {
			return nil, &ExitError{Code: exitUsage, Err: err}
		}

		engine, err := newEngine(ctx, next, true)
		if err != nil {
			return nil, err
		}

		cfg, svc = next, w.svc.WithEngine(engine)
	}

	criteria, err := w.opts.criteria(cfg)
	if err != nil {
		return nil, err
	}

	r, err := reloadAndRender(ctx, cfg, svc, criteria)
	if err != nil {
		return nil, err
	}

	if err := w.opts.write(w.cmd, r); err != nil {
		return nil, err
	}

	// Only a fully successful run replaces the active settings.
	w.cfg, w.svc = cfg, svc

	cur := membershipOf(r)

	var changes diff.Summary
	if w.prev != nil {
		changes = diff.Summarize(*w.prev, cur)
	}

	w.prev = &cur

	return &watch.RunResult{
		Entities:   svc.Engine().Dataset().Len(),
		Shortlist:  r.Shortlist.Count,
		Pool:       r.Pool.Count,
		OutputPath: w.opts.output,
		Changes:    changes,
	}, nil
}

// reloadAndRender swaps in a freshly loaded dataset and renders it. A
// dataset that fails to load leaves the previous one in place.
func reloadAndRender(ctx context.Context, cfg *config.Config, svc *cycle.Service, criteria filter.Criteria) (*cycle.Render, error) {
	engine := svc.Engine()

	ds, err := loadDataset(ctx, cfg, engine.Classifier())
	if err != nil {
		return nil, err
	}

	engine.SetDataset(ds)

	return svc.Render(ctx, cfg.Session, criteria)
}
