package filter

import (
	"context"
	"log/slog"

	"github.com/hupe1980/where2work/internal/band"
	"github.com/hupe1980/where2work/internal/roster"
)

// Criteria is the user's selection in each filter dimension. An empty list
// places no constraint on its dimension.
type Criteria struct {
	Locations  []string `yaml:"locations,omitempty" json:"locations,omitempty"`
	Bands      []string `yaml:"bands,omitempty" json:"bands,omitempty"`
	Industries []string `yaml:"industries,omitempty" json:"industries,omitempty"`
}

// IsZero reports whether no dimension is constrained.
func (c Criteria) IsZero() bool {
	return len(c.Locations) == 0 && len(c.Bands) == 0 && len(c.Industries) == 0
}

// Merge returns the union of c and other in every dimension, keeping the
// first occurrence of each value.
func (c Criteria) Merge(other Criteria) Criteria {
	return Criteria{
		Locations:  union(c.Locations, other.Locations),
		Bands:      union(c.Bands, other.Bands),
		Industries: union(c.Industries, other.Industries),
	}
}

// Chain builds the filter chain for c: location, then band, then industry.
func (c Criteria) Chain(classifier *band.Classifier) *Chain {
	return NewChain(
		NewLocationFilter(c.Locations),
		NewBandFilter(c.Bands, classifier),
		NewIndustryFilter(c.Industries),
	)
}

// Apply returns the entities satisfying every constrained dimension of c, in
// input order. It has no side effects; with zero Criteria it returns a copy
// of entities.
func Apply(entities []roster.Entity, c Criteria, classifier *band.Classifier) []roster.Entity {
	r, err := c.Chain(classifier).Apply(context.Background(), entities)
	if err != nil {
		// Unreachable: membership filters never fail.
		return []roster.Entity{}
	}

	if len(r.Excluded) > 0 {
		slog.Debug("entities filtered",
			slog.Int("included", len(r.Included)),
			slog.Int("excluded", len(r.Excluded)),
		)
	}

	return r.Included
}

func union(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if seen[v] {
				continue
			}

			seen[v] = true
			out = append(out, v)
		}
	}

	return out
}
