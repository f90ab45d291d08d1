package filter

import (
	"context"
	"fmt"

	"github.com/hupe1980/where2work/internal/band"
	"github.com/hupe1980/where2work/internal/roster"
)

// Dimension names used in exclusion reasons and logs.
const (
	DimensionLocation = "location"
	DimensionBand     = "band"
	DimensionIndustry = "industry"
)

// MembershipFilter keeps entities whose dimension value is one of the
// allowed values. With no allowed values every entity passes.
type MembershipFilter struct {
	dimension string
	key       func(roster.Entity) string
	allowed   map[string]bool
}

// NewMembershipFilter creates a filter over an arbitrary dimension.
func NewMembershipFilter(dimension string, values []string, key func(roster.Entity) string) *MembershipFilter {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}

	return &MembershipFilter{dimension: dimension, key: key, allowed: m}
}

// NewLocationFilter filters on the headquarters location.
func NewLocationFilter(locations []string) *MembershipFilter {
	return NewMembershipFilter(DimensionLocation, locations, func(e roster.Entity) string {
		return e.HeadquartersLocation
	})
}

// NewBandFilter filters on the canonical band. The band is recomputed from
// the raw label with classifier, so the comparison never depends on how the
// rows were classified at load time.
func NewBandFilter(bands []string, classifier *band.Classifier) *MembershipFilter {
	if classifier == nil {
		classifier = band.NewClassifier(nil)
	}

	return NewMembershipFilter(DimensionBand, bands, func(e roster.Entity) string {
		return classifier.Classify(e.EmployeeBandRaw)
	})
}

// NewIndustryFilter filters on the raw industry code.
func NewIndustryFilter(codes []string) *MembershipFilter {
	return NewMembershipFilter(DimensionIndustry, codes, func(e roster.Entity) string {
		return e.IndustryCode
	})
}

// Dimension returns the filtered dimension name.
func (f *MembershipFilter) Dimension() string {
	return f.dimension
}

// Unconstrained reports whether the filter passes every entity.
func (f *MembershipFilter) Unconstrained() bool {
	return len(f.allowed) == 0
}

// Apply keeps entities whose value is allowed.
func (f *MembershipFilter) Apply(_ context.Context, entities []roster.Entity) (*Result, error) {
	r := NewResult()

	if f.Unconstrained() {
		r.Included = append(r.Included, entities...)
		return r, nil
	}

	for _, e := range entities {
		v := f.key(e)
		if f.allowed[v] {
			r.Included = append(r.Included, e)
		} else {
			r.Excluded = append(r.Excluded, ExcludedEntity{
				Entity: e,
				Reason: fmt.Sprintf("%s %q not selected", f.dimension, v),
			})
		}
	}

	return r, nil
}
