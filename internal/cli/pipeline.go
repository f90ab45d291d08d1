package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/where2work/internal/band"
	"github.com/hupe1980/where2work/internal/config"
	"github.com/hupe1980/where2work/internal/cycle"
	"github.com/hupe1980/where2work/internal/diff"
	"github.com/hupe1980/where2work/internal/filter"
	"github.com/hupe1980/where2work/internal/layout"
	"github.com/hupe1980/where2work/internal/logging"
	"github.com/hupe1980/where2work/internal/roster"
	"github.com/hupe1980/where2work/internal/selection"
	"github.com/hupe1980/where2work/internal/store"
	"github.com/hupe1980/where2work/internal/version"
)

// filterOptions holds the sidebar selections given on the command line.
type filterOptions struct {
	locations  []string
	bands      []string
	industries []string
	preset     string
}

// registerFilterFlags adds the sidebar filter flags to a cobra command.
func registerFilterFlags(cmd *cobra.Command, opts *filterOptions) {
	f := cmd.Flags()
	f.StringArrayVar(&opts.locations, "location", nil, "keep companies headquartered here (repeatable)")
	f.StringArrayVar(&opts.bands, "band", nil, "keep companies in this employee band (repeatable)")
	f.StringArrayVar(&opts.industries, "industry", nil, "keep companies with this industry code (repeatable)")
	f.StringVar(&opts.preset, "preset", "", "apply a named filter preset")
}

// criteria merges the preset, if any, with the explicit selections.
// Custom presets are read from the presets section of the config file.
func (o *filterOptions) criteria(cfg *config.Config) (filter.Criteria, error) {
	c := filter.Criteria{
		Locations:  o.locations,
		Bands:      o.bands,
		Industries: o.industries,
	}

	if o.preset == "" {
		return c, nil
	}

	var custom map[string]filter.Preset

	if cfg.ConfigFile != "" {
		presets, err := filter.LoadPresets(cfg.ConfigFile)
		if err != nil {
			return filter.Criteria{}, &ExitError{Code: exitUsage, Err: err}
		}

		custom = presets
	}

	base, err := filter.ResolvePreset(o.preset, custom)
	if err != nil {
		return filter.Criteria{}, &ExitError{Code: exitUsage, Err: err}
	}

	return base.Merge(c), nil
}

// s3Config maps the S3 settings of cfg.
func s3Config(cfg *config.Config) roster.S3Config {
	return roster.S3Config{
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		PathStyle: cfg.S3PathStyle,
		AppID:     version.Name,
	}
}

// isRemote reports whether the dataset is served from object storage.
func isRemote(location string) bool {
	return strings.HasPrefix(location, "s3://")
}

// loadDataset reads and classifies the configured dataset. Load failures
// exit with code 3.
func loadDataset(ctx context.Context, cfg *config.Config, classifier *band.Classifier) (*roster.Dataset, error) {
	src, err := roster.OpenSource(ctx, cfg.Data, s3Config(cfg))
	if err != nil {
		return nil, &ExitError{Code: exitData, Err: fmt.Errorf("opening dataset: %w", err)}
	}

	ds, err := roster.Load(ctx, src, classifier)
	if err != nil {
		return nil, &ExitError{Code: exitData, Err: err}
	}

	return ds, nil
}

// newEngine builds the cycle engine from cfg. The dataset is loaded unless
// skipLoad is set, in which case the caller installs it later.
func newEngine(ctx context.Context, cfg *config.Config, skipLoad bool) (*cycle.Engine, error) {
	logger := logging.FromContext(ctx)

	tuning, err := config.LoadLayoutTuning(cfg.ConfigFile)
	if err != nil {
		return nil, &ExitError{Code: exitUsage, Err: err}
	}

	if !tuning.IsEmpty() {
		logger.Debug("layout tuning applied", slog.Any("tuning", tuning))
	}

	classifier := band.NewClassifier(cfg.BandOrder())
	le := layout.New(tuning.Options(cfg.Seed))

	var ds *roster.Dataset

	if !skipLoad {
		ds, err = loadDataset(ctx, cfg, classifier)
		if err != nil {
			return nil, err
		}

		logger.Info("dataset loaded",
			slog.String("source", ds.Source),
			slog.Int("entities", ds.Len()),
		)

		if fb := ds.FallbackBands(); len(fb) > 0 {
			logger.Warn("unrecognised employee bands drawn in extra columns", slog.Any("bands", fb))
		}
	}

	return cycle.NewEngine(ds, classifier, le), nil
}

// newService opens the configured store around engine. The returned close
// function releases the store.
func newService(ctx context.Context, cfg *config.Config, engine *cycle.Engine) (*cycle.Service, func(), error) {
	st, err := store.Open(ctx, cfg.Store, cfg.StoreDSN)
	if err != nil {
		return nil, nil, &ExitError{Code: exitUsage, Err: fmt.Errorf("opening %s store: %w", cfg.Store, err)}
	}

	closeFn := func() {
		if cerr := st.Close(); cerr != nil {
			logging.FromContext(ctx).Warn("closing store", slog.String("error", cerr.Error()))
		}
	}

	return cycle.NewService(engine, st), closeFn, nil
}

// setup loads the dataset and opens the store for a one-shot command.
func setup(ctx context.Context) (*config.Config, *cycle.Service, func(), error) {
	cfg := config.FromContext(ctx)

	engine, err := newEngine(ctx, cfg, false)
	if err != nil {
		return nil, nil, nil, err
	}

	svc, closeFn, err := newService(ctx, cfg, engine)
	if err != nil {
		return nil, nil, nil, err
	}

	if cfg.Store == config.StoreMemory {
		logging.FromContext(ctx).Debug("memory store keeps the shortlist for this process only")
	}

	return cfg, svc, closeFn, nil
}

// membershipOf lists the companies drawn on each chart of r.
func membershipOf(r *cycle.Render) diff.Membership {
	return diff.Membership{
		Shortlist: roster.Names(r.View(selection.ChartShortlist).Entities()),
		Pool:      roster.Names(r.View(selection.ChartPool).Entities()),
	}
}
