package filter

import (
	"context"

	"github.com/hupe1980/where2work/internal/roster"
)

// Filter is the interface for all entity filters.
// Filters are stateless: they receive a set of entities and return
// a result without modifying shared state.
type Filter interface {
	// Apply runs the filter on the given entities and returns a result.
	// Included entities keep their input order.
	Apply(ctx context.Context, entities []roster.Entity) (*Result, error)
}

// ExcludedEntity records an entity that was excluded by a filter.
type ExcludedEntity struct {
	// Entity is the excluded entity.
	Entity roster.Entity
	// Reason is a human-readable explanation for the exclusion.
	Reason string
}

// Result holds the outcome of a filter application.
type Result struct {
	// Included are the entities that passed the filter.
	Included []roster.Entity
	// Excluded are the entities removed by the filter.
	Excluded []ExcludedEntity
}

// NewResult creates an empty Result.
func NewResult() *Result {
	return &Result{
		Included: []roster.Entity{},
	}
}

// Chain applies multiple filters sequentially, passing the included
// entities from each filter as input to the next.
type Chain struct {
	filters []Filter
}

// NewChain creates a filter chain from the given filters.
func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

// Len returns the number of filters in the chain.
func (c *Chain) Len() int {
	return len(c.filters)
}

// Apply runs all filters in order, accumulating excluded entities.
// Returns the combined result.
func (c *Chain) Apply(ctx context.Context, entities []roster.Entity) (*Result, error) {
	combined := NewResult()
	current := entities

	for _, f := range c.filters {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		r, err := f.Apply(ctx, current)
		if err != nil {
			return nil, err
		}

		current = r.Included

		combined.Excluded = append(combined.Excluded, r.Excluded...)
	}

	combined.Included = append(combined.Included, current...)

	return combined, nil
}
