// Package where2work provides a public Go API for the bubble-chart
// shortlisting engine.
//
// This package exposes the render cycle as a library, allowing programmatic
// use without the CLI or the HTTP server.
//
// Basic usage:
//
//	ex, err := where2work.Open(ctx, "company_data.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ex.Close()
//
//	res, err := ex.Render(ctx, "me", where2work.Criteria{Locations: []string{"Sydney"}})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Pool)
//
// With options:
//
//	ex, err := where2work.Open(ctx, "s3://rosters/companies.csv",
//	    where2work.WithS3Region("ap-southeast-2"),
//	    where2work.WithStore("sqlite", "shortlists.db"),
//	    where2work.WithSeed(7),
//	)
package where2work

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hupe1980/where2work/internal/band"
	"github.com/hupe1980/where2work/internal/cycle"
	"github.com/hupe1980/where2work/internal/filter"
	"github.com/hupe1980/where2work/internal/layout"
	"github.com/hupe1980/where2work/internal/logging"
	"github.com/hupe1980/where2work/internal/output"
	"github.com/hupe1980/where2work/internal/roster"
	"github.com/hupe1980/where2work/internal/selection"
	"github.com/hupe1980/where2work/internal/store"
	"github.com/hupe1980/where2work/internal/version"
)

// Criteria is the selection in each filter dimension. An empty list places
// no constraint on its dimension.
type Criteria = filter.Criteria

// Chart names accepted by Click and SVG.
const (
	ChartPool      = string(selection.ChartPool)
	ChartShortlist = string(selection.ChartShortlist)
)

// Click outcomes.
const (
	OutcomeAdded     = string(selection.OutcomeAdded)
	OutcomeRemoved   = string(selection.OutcomeRemoved)
	OutcomeUnchanged = string(selection.OutcomeUnchanged)
	OutcomeIgnored   = string(selection.OutcomeIgnored)
)

// Option configures an Explorer.
// Use the With* functions to create Options.
type Option func(*options)

type options struct {
	bands       []string
	seed        uint64
	storeDriver string
	storeDSN    string
	s3          roster.S3Config
	logger      *slog.Logger
}

// WithBands sets the canonical employee bands, smallest first.
func WithBands(bands []string) Option { return func(o *options) { o.bands = bands } }

// WithSeed sets the seed applied to every layout pass (default: 42).
func WithSeed(seed uint64) Option { return func(o *options) { o.seed = seed } }

// WithStore selects the shortlist store: "memory" (default), "sqlite" with
// a file path, or "postgres" with a connection string.
func WithStore(driver, dsn string) Option {
	return func(o *options) { o.storeDriver, o.storeDSN = driver, dsn }
}

// WithS3Region sets the region for s3:// datasets.
func WithS3Region(region string) Option { return func(o *options) { o.s3.Region = region } }

// WithS3Endpoint overrides the endpoint for S3-compatible storage.
func WithS3Endpoint(endpoint string) Option { return func(o *options) { o.s3.Endpoint = endpoint } }

// WithS3PathStyle forces path-style S3 addressing.
func WithS3PathStyle() Option { return func(o *options) { o.s3.PathStyle = true } }

// WithLogger sets the logger. Output is discarded by default.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// Explorer renders the charts of one dataset and keeps a shortlist per
// session. It is safe for concurrent use.
type Explorer struct {
	svc      *cycle.Service
	store    selection.Store
	location string
	s3       roster.S3Config
	logger   *slog.Logger
}

// Open loads the dataset at location, a CSV path or s3://bucket/key, and
// opens the shortlist store.
func Open(ctx context.Context, location string, opts ...Option) (*Explorer, error) {
	if location == "" {
		return nil, errors.New("dataset location must not be empty")
	}

	o := &options{
		seed:   layout.DefaultSeed,
		logger: logging.Discard(),
	}

	for _, opt := range opts {
		opt(o)
	}

	o.s3.AppID = version.Name
	ctx = logging.NewContext(ctx, o.logger)

	classifier := band.NewClassifier(o.bands)

	ex := &Explorer{location: location, s3: o.s3, logger: o.logger}

	ds, err := ex.load(ctx, classifier)
	if err != nil {
		return nil, err
	}

	lopts := layout.DefaultOptions()
	lopts.Seed = o.seed

	st, err := store.Open(ctx, o.storeDriver, o.storeDSN)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	ex.store = st
	ex.svc = cycle.NewService(cycle.NewEngine(ds, classifier, layout.New(lopts)), st)

	return ex, nil
}

func (ex *Explorer) load(ctx context.Context, classifier *band.Classifier) (*roster.Dataset, error) {
	src, err := roster.OpenSource(ctx, ex.location, ex.s3)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}

	ds, err := roster.Load(ctx, src, classifier)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}

	ex.logger.Debug("dataset loaded", slog.String("source", ds.Source), slog.Int("entities", ds.Len()))

	return ds, nil
}

// Reload reads the dataset again. Cycles already running finish against
// the previous dataset; on error the previous dataset stays in place.
func (ex *Explorer) Reload(ctx context.Context) error {
	engine := ex.svc.Engine()

	ds, err := ex.load(logging.NewContext(ctx, ex.logger), engine.Classifier())
	if err != nil {
		return err
	}

	engine.SetDataset(ds)

	return nil
}

// Close releases the shortlist store.
func (ex *Explorer) Close() error {
	return ex.store.Close()
}

// Result is the outcome of one render cycle.
type Result struct {
	// Shortlist and Pool list the companies on each chart in marker order:
	// the marker index of a company is its position in the list.
	Shortlist []string
	Pool      []string

	// Filtered and Excluded count the companies kept and removed by the
	// criteria.
	Filtered int
	Excluded int

	render *cycle.Render
}

func newResult(r *cycle.Render) *Result {
	return &Result{
		Shortlist: roster.Names(r.Shortlist.Entities()),
		Pool:      roster.Names(r.Pool.Entities()),
		Filtered:  r.Filtered,
		Excluded:  r.Excluded,
		render:    r,
	}
}

// YAML encodes both charts, with marker positions and tooltips.
func (r *Result) YAML() ([]byte, error) {
	return output.Serialize(r.render)
}

// JSON encodes both charts, with marker positions and tooltips.
func (r *Result) JSON() ([]byte, error) {
	return output.SerializeJSON(r.render, "")
}

// SVG draws one chart at the default size.
func (r *Result) SVG(chart string) ([]byte, error) {
	c, err := selection.ParseChart(chart)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := output.RenderSVG(&buf, r.render.View(c), output.DefaultSVGOptions()); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ClickResult is the outcome of a click cycle.
type ClickResult struct {
	*Result

	// Outcome is one of the Outcome constants.
	Outcome string
	// Company is the clicked company, empty when the click was ignored.
	Company string
}

// Render runs one cycle for session without a click.
func (ex *Explorer) Render(ctx context.Context, session string, criteria Criteria) (*Result, error) {
	r, err := ex.svc.Render(logging.NewContext(ctx, ex.logger), session, criteria)
	if err != nil {
		return nil, err
	}

	return newResult(r), nil
}

// Click resolves index against the render of criteria and the session's
// shortlist, moves the company to the other chart and saves the shortlist.
// An index that names no marker is ignored.
func (ex *Explorer) Click(ctx context.Context, session string, criteria Criteria, chart string, index int) (*ClickResult, error) {
	c, err := selection.ParseChart(chart)
	if err != nil {
		return nil, err
	}

	step, err := ex.svc.Click(logging.NewContext(ctx, ex.logger), session, criteria, cycle.MarkerClick{Chart: c, Index: index})
	if err != nil {
		return nil, err
	}

	return &ClickResult{
		Result:  newResult(step.Render),
		Outcome: string(step.Outcome),
		Company: step.Click.EntityID,
	}, nil
}

// Shortlist returns the session's shortlisted companies, sorted.
func (ex *Explorer) Shortlist(ctx context.Context, session string) ([]string, error) {
	set, err := ex.svc.Shortlist(ctx, session)
	if err != nil {
		return nil, err
	}

	return set.Names(), nil
}

// Clear empties the session's shortlist.
func (ex *Explorer) Clear(ctx context.Context, session string) error {
	_, err := ex.svc.Clear(logging.NewContext(ctx, ex.logger), session, Criteria{})
	return err
}

// FilterOptions lists the values each filter accepts.
type FilterOptions struct {
	Locations  []string
	Bands      []string
	Industries []string
	// Unclassified lists band labels that matched no canonical band.
	Unclassified []string
}

// Options returns the filter choices of the loaded dataset.
func (ex *Explorer) Options() FilterOptions {
	o := ex.svc.Engine().Options()

	return FilterOptions{
		Locations:    o.Locations,
		Bands:        o.Bands,
		Industries:   o.Industries,
		Unclassified: o.Unclassified,
	}
}
