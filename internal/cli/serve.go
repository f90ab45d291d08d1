package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/where2work/internal/config"
	"github.com/hupe1980/where2work/internal/filter"
	"github.com/hupe1980/where2work/internal/logging"
	"github.com/hupe1980/where2work/internal/output"
	"github.com/hupe1980/where2work/internal/server"
	"github.com/hupe1980/where2work/internal/watch"
)

type serveOptions struct {
	addr         string
	secureCookie bool
	watchData    bool
	debounce     time.Duration
	width        int
	height       int
}

func newServeCommand() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the charts and the click API over HTTP",
		Long: `Serve exposes the render cycle over HTTP. Every browser session gets
its own shortlist, keyed by a session cookie and kept in the configured
store.

Endpoints:
  GET  /api/render                 both charts for the current filters
  POST /api/click                  {"chart": "pool", "index": 3}
  GET  /api/shortlist              the session's shortlist
  POST /api/shortlist/clear        empty the shortlist
  GET  /api/options                filter choices
  GET  /chart/{pool,shortlist}.svg chart images
  GET  /healthz                    readiness
  GET  /metrics                    Prometheus metrics

Filters are passed as repeated location, band and industry query
parameters. With --watch the dataset is reloaded whenever the file
changes; cycles already running finish against the old dataset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	def := output.DefaultSVGOptions()

	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", ":8080", "listen address")
	f.BoolVar(&opts.secureCookie, "secure-cookie", false, "mark the session cookie Secure")
	f.BoolVar(&opts.watchData, "watch", false, "reload the dataset when the file changes")
	f.DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "debounce interval for --watch")
	f.IntVar(&opts.width, "width", def.Width, "svg width in pixels")
	f.IntVar(&opts.height, "height", def.Height, "svg height in pixels")

	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	if opts.watchData && isRemote(cfg.Data) {
		return &ExitError{Code: exitUsage, Err: fmt.Errorf("--watch needs a local dataset, got %s", cfg.Data)}
	}

	engine, err := newEngine(ctx, cfg, false)
	if err != nil {
		return err
	}

	svc, closeFn, err := newService(ctx, cfg, engine)
	if err != nil {
		return err
	}
	defer closeFn()

	svg := output.DefaultSVGOptions()
	svg.Width, svg.Height = opts.width, opts.height

	srv := server.New(svc, server.Options{
		Logger:       logger,
		SecureCookie: opts.secureCookie,
		SVG:          svg,
	})

	if opts.watchData {
		go func() {
			watchOpts := watch.DefaultOptions()
			watchOpts.Files = []string{cfg.Data}
			watchOpts.Debounce = opts.debounce
			watchOpts.Logger = logger
			watchOpts.Out = cmd.ErrOrStderr()

			err := watch.Run(ctx, watchOpts, func(runCtx context.Context) (*watch.RunResult, error) {
				r, err := reloadAndRender(runCtx, cfg, svc, filter.Criteria{})
				if err != nil {
					return nil, err
				}

				srv.DatasetReloaded(engine.Dataset())

				return &watch.RunResult{
					Entities: engine.Dataset().Len(),
					Pool:     r.Pool.Count,
				}, nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("dataset watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	return srv.ListenAndServe(ctx, opts.addr)
}
