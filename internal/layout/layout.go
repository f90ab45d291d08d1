// Package layout positions entities on the bubble chart.
//
// The horizontal axis is categorical: every canonical band owns one integer
// column and its entities are scattered around that column. Within a band
// of n entities, entity i sits on a ring at angle i·2π/n plus a small random
// perturbation, with a random radius, and the ring is squashed horizontally
// so that it never leaves the band's column.
//
// Layouts are deterministic. Every call to [Engine.Layout] starts from a
// fresh random source seeded with the same constant, so identical input
// yields identical coordinates and two charts laid out one after the other
// do not influence each other.
package layout

import (
	"math"
	"math/rand/v2"

	"github.com/hupe1980/where2work/internal/band"
	"github.com/hupe1980/where2work/internal/roster"
)

// DefaultSeed is the constant every layout pass is seeded with.
const DefaultSeed uint64 = 42

// Source yields uniform floats in [0, 1).
type Source interface {
	Float64() float64
}

// SourceFactory creates a Source for a seed.
type SourceFactory func(seed uint64) Source

// NewSource returns a PCG-backed Source for seed.
func NewSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed)) //nolint:gosec // visual jitter, not security
}

// Options tunes the jitter.
type Options struct {
	// Seed is applied at the start of every layout pass.
	Seed uint64
	// JitterX scales the horizontal offset. It must stay below 0.5 so that
	// neighbouring bands never overlap.
	JitterX float64
	// JitterY scales the vertical offset.
	JitterY float64
	// RadiusMin and RadiusMax bound the per-entity ring radius.
	RadiusMin float64
	RadiusMax float64
	// AngleJitter bounds the angular perturbation, in radians, on each side
	// of the evenly spaced angle.
	AngleJitter float64
	// YLimit is the half-height of the vertical axis range.
	YLimit float64
	// NewSource overrides the random source, mainly for tests.
	NewSource SourceFactory
}

// DefaultOptions returns the standard jitter settings.
func DefaultOptions() Options {
	return Options{
		Seed:        DefaultSeed,
		JitterX:     0.45,
		JitterY:     2.5,
		RadiusMin:   0.3,
		RadiusMax:   1.0,
		AngleJitter: 0.3,
		YLimit:      3.5,
		NewSource:   NewSource,
	}
}

// Point is the position of one entity.
type Point struct {
	// X is Rank + OffsetX.
	X float64 `json:"x"`
	// Y is OffsetY.
	Y float64 `json:"y"`
	// Rank is the column index of the entity's band.
	Rank int `json:"rank"`
	// Band is the entity's canonical band.
	Band string `json:"band"`
	// OffsetX and OffsetY are the jitter applied around (Rank, 0).
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// Tick labels one band column on the horizontal axis.
type Tick struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// Result is the outcome of one layout pass.
type Result struct {
	// Points are aligned with the input entities.
	Points []Point `json:"points"`
	// Ticks label every canonical band, followed by any unrecognised bands
	// present in the input.
	Ticks []Tick `json:"ticks"`
	// XRange and YRange are the axis ranges.
	XRange [2]float64 `json:"xRange"`
	YRange [2]float64 `json:"yRange"`
}

// Engine computes layouts.
type Engine struct {
	opts Options
}

// New creates an Engine. Zero-valued scaling fields fall back to the
// defaults.
func New(opts Options) *Engine {
	d := DefaultOptions()

	if opts.JitterX == 0 {
		opts.JitterX = d.JitterX
	}

	if opts.JitterY == 0 {
		opts.JitterY = d.JitterY
	}

	if opts.RadiusMin == 0 && opts.RadiusMax == 0 {
		opts.RadiusMin, opts.RadiusMax = d.RadiusMin, d.RadiusMax
	}

	if opts.YLimit == 0 {
		opts.YLimit = d.YLimit
	}

	if opts.NewSource == nil {
		opts.NewSource = d.NewSource
	}

	return &Engine{opts: opts}
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Layout assigns a point to every entity. Entities are grouped by their
// canonical band; bands absent from order are placed in extra columns after
// the canonical ones, in order of first appearance.
func (e *Engine) Layout(entities []roster.Entity, order band.Order) *Result {
	src := e.opts.NewSource(e.opts.Seed)

	ranks, ticks := columns(entities, order)

	groups := make([][]int, len(ticks))
	for i, ent := range entities {
		r := ranks[ent.Band]
		groups[r] = append(groups[r], i)
	}

	points := make([]Point, len(entities))

	for rank, members := range groups {
		offsets := e.scatter(src, len(members))

		for j, idx := range members {
			off := offsets[j]
			points[idx] = Point{
				X:       float64(rank) + off[0],
				Y:       off[1],
				Rank:    rank,
				Band:    entities[idx].Band,
				OffsetX: off[0],
				OffsetY: off[1],
			}
		}
	}

	return &Result{
		Points: points,
		Ticks:  ticks,
		XRange: [2]float64{-0.5, float64(len(ticks)) - 0.5},
		YRange: [2]float64{-e.opts.YLimit, e.opts.YLimit},
	}
}

// scatter returns n offsets around the origin. A single member stays
// centred and draws nothing from src. For n > 1 all radii are drawn before
// the angular perturbations.
func (e *Engine) scatter(src Source, n int) [][2]float64 {
	switch n {
	case 0:
		return nil
	case 1:
		return [][2]float64{{0, 0}}
	}

	radii := make([]float64, n)
	for i := range radii {
		radii[i] = uniform(src, e.opts.RadiusMin, e.opts.RadiusMax)
	}

	step := 2 * math.Pi / float64(n)
	out := make([][2]float64, n)

	for i := range out {
		angle := float64(i)*step + uniform(src, -e.opts.AngleJitter, e.opts.AngleJitter)
		out[i] = [2]float64{
			radii[i] * math.Cos(angle) * e.opts.JitterX,
			radii[i] * math.Sin(angle) * e.opts.JitterY,
		}
	}

	return out
}

func uniform(src Source, lo, hi float64) float64 {
	return lo + (hi-lo)*src.Float64()
}

// columns maps every band present in entities to its column and returns the
// axis ticks. Canonical bands always get a tick, even when empty.
func columns(entities []roster.Entity, order band.Order) (map[string]int, []Tick) {
	ranks := make(map[string]int, len(order))
	ticks := make([]Tick, 0, len(order))

	for i, b := range order {
		ranks[b] = i
		ticks = append(ticks, Tick{Value: float64(i), Label: b})
	}

	for _, ent := range entities {
		if _, ok := ranks[ent.Band]; ok {
			continue
		}

		r := len(ticks)
		ranks[ent.Band] = r
		ticks = append(ticks, Tick{Value: float64(r), Label: ent.Band})
	}

	return ranks, ticks
}
