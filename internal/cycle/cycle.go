// Package cycle runs one render cycle: filter the dataset, split it by the
// shortlist, lay out both partitions and describe the two charts.
//
// Every interaction runs a full cycle from scratch. A click carries only a
// marker index, which is meaningful solely against the render it was made
// on; [Engine.Cycle] re-derives that render, resolves the index, applies the
// transition and renders again.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/where2work/internal/band"
	"github.com/hupe1980/where2work/internal/filter"
	"github.com/hupe1980/where2work/internal/layout"
	"github.com/hupe1980/where2work/internal/logging"
	"github.com/hupe1980/where2work/internal/partition"
	"github.com/hupe1980/where2work/internal/roster"
	"github.com/hupe1980/where2work/internal/selection"
)

// ErrNoDataset is returned when a cycle runs before a dataset is loaded.
var ErrNoDataset = errors.New("no dataset loaded")

// Render is the outcome of one cycle.
type Render struct {
	// Criteria and Selection are the inputs the render was derived from.
	Criteria  filter.Criteria `json:"criteria"`
	Selection selection.Set   `json:"selection"`
	// Filtered is the number of entities surviving the filters.
	Filtered int `json:"filtered"`
	// Excluded is the number of entities removed by the filters.
	Excluded  int        `json:"excluded"`
	Shortlist *ChartView `json:"shortlist"`
	Pool      *ChartView `json:"pool"`
}

// View returns the chart view for chart, or nil.
func (r *Render) View(chart selection.Chart) *ChartView {
	switch chart {
	case selection.ChartShortlist:
		return r.Shortlist
	case selection.ChartPool:
		return r.Pool
	default:
		return nil
	}
}

// Resolve maps a marker index on chart to a legal name. It is only valid
// for this render; an index outside the chart reports false.
func (r *Render) Resolve(chart selection.Chart, index int) (string, bool) {
	return r.View(chart).Resolve(index)
}

// MarkerClick is a click as reported by the render surface.
type MarkerClick struct {
	Chart selection.Chart `json:"chart"`
	Index int             `json:"index"`
}

// Step is the result of a cycle that handled a click.
type Step struct {
	// Render is the render produced with the new selection.
	Render *Render
	// Selection is the set after the transition.
	Selection selection.Set
	// Click is the resolved click. EntityID is empty for stale indices.
	Click selection.Click
	// Outcome reports what the transition did.
	Outcome selection.Outcome
}

// Engine runs render cycles over a dataset. The dataset may be swapped
// between cycles with SetDataset.
type Engine struct {
	dataset    atomic.Pointer[roster.Dataset]
	classifier *band.Classifier
	layout     *layout.Engine
}

// NewEngine creates an Engine. A nil layout engine uses the default jitter.
func NewEngine(ds *roster.Dataset, classifier *band.Classifier, le *layout.Engine) *Engine {
	if classifier == nil {
		classifier = band.NewClassifier(nil)
	}

	if le == nil {
		le = layout.New(layout.DefaultOptions())
	}

	e := &Engine{classifier: classifier, layout: le}
	e.dataset.Store(ds)

	return e
}

// Dataset returns the current dataset.
func (e *Engine) Dataset() *roster.Dataset {
	return e.dataset.Load()
}

// SetDataset replaces the dataset used by later cycles.
func (e *Engine) SetDataset(ds *roster.Dataset) {
	e.dataset.Store(ds)
}

// Classifier returns the band classifier.
func (e *Engine) Classifier() *band.Classifier {
	return e.classifier
}

// Render runs filter, partition and layout for criteria and set.
func (e *Engine) Render(ctx context.Context, criteria filter.Criteria, set selection.Set) (*Render, error) {
	ds := e.Dataset()
	if ds == nil {
		return nil, ErrNoDataset
	}

	res, err := criteria.Chain(e.classifier).Apply(ctx, ds.Entities)
	if err != nil {
		return nil, fmt.Errorf("filtering entities: %w", err)
	}

	shortlist, pool := partition.Split(res.Included, set)
	order := columnOrder(e.classifier.Order(), ds)

	r := &Render{
		Criteria:  criteria,
		Selection: set.Clone(),
		Filtered:  len(res.Included),
		Excluded:  len(res.Excluded),
		Shortlist: newChartView(selection.ChartShortlist, shortlist, e.layout.Layout(shortlist, order)),
		Pool:      newChartView(selection.ChartPool, pool, e.layout.Layout(pool, order)),
	}

	logging.FromContext(ctx).Debug("render complete",
		"filtered", r.Filtered,
		"shortlist", r.Shortlist.Count,
		"pool", r.Pool.Count,
	)

	return r, nil
}

// columnOrder extends the canonical order with the dataset's unrecognised
// bands, sorted, so that every band keeps the same column in both charts
// whatever the filters and the shortlist are.
func columnOrder(order band.Order, ds *roster.Dataset) band.Order {
	fallback := ds.FallbackBands()
	if len(fallback) == 0 {
		return order
	}

	out := make(band.Order, 0, len(order)+len(fallback))
	out = append(out, order...)

	return append(out, fallback...)
}

// Cycle handles one interaction. With a nil click it is a plain render.
// Otherwise the render the click was made on is re-derived from criteria
// and set, the index is resolved against it, the transition is applied and
// the result is rendered with the new set. set is never modified.
func (e *Engine) Cycle(ctx context.Context, criteria filter.Criteria, set selection.Set, click *MarkerClick) (*Step, error) {
	if click == nil {
		r, err := e.Render(ctx, criteria, set)
		if err != nil {
			return nil, err
		}

		return &Step{Render: r, Selection: r.Selection, Outcome: selection.OutcomeIgnored}, nil
	}

	before, err := e.Render(ctx, criteria, set)
	if err != nil {
		return nil, err
	}

	name, ok := before.Resolve(click.Chart, click.Index)
	if !ok {
		logging.FromContext(ctx).Debug("ignoring stale click",
			"chart", string(click.Chart),
			"index", click.Index,
		)

		return &Step{Render: before, Selection: before.Selection, Outcome: selection.OutcomeIgnored}, nil
	}

	c := selection.Click{EntityID: name, Origin: click.Chart}
	next, outcome := selection.Transition(set, c)

	if !outcome.Changed() {
		return &Step{Render: before, Selection: before.Selection, Click: c, Outcome: outcome}, nil
	}

	after, err := e.Render(ctx, criteria, next)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("selection changed",
		"entity", name,
		"outcome", string(outcome),
		"shortlisted", next.Len(),
	)

	return &Step{Render: after, Selection: after.Selection, Click: c, Outcome: outcome}, nil
}
