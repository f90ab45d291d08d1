// Package selection holds the shortlist state and the click state machine
// that moves entities between the pool chart and the shortlist chart.
//
// Each entity is either in the pool or shortlisted. A click on a pool marker
// shortlists the entity; a click on a shortlist marker returns it to the
// pool. Both moves are idempotent. Clicks anywhere else do nothing.
package selection

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Set is the set of shortlisted legal names. The zero value is an empty set
// ready for reads; use New or Clone before writing.
type Set struct {
	names map[string]struct{}
}

// New creates a set holding names.
func New(names ...string) Set {
	s := Set{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.names[n] = struct{}{}
	}

	return s
}

// Contains reports whether name is shortlisted.
func (s Set) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of shortlisted names.
func (s Set) Len() int {
	return len(s.names)
}

// Names returns the shortlisted names in sorted order.
func (s Set) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}

	sort.Strings(out)

	return out
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	return New(s.Names()...)
}

// Equal reports whether s and other hold the same names.
func (s Set) Equal(other Set) bool {
	if s.Len() != other.Len() {
		return false
	}

	for n := range s.names {
		if !other.Contains(n) {
			return false
		}
	}

	return true
}

// Clear returns an empty set. s is left untouched.
func (s Set) Clear() Set {
	return New()
}

// with returns a copy of s including name.
func (s Set) with(name string) Set {
	c := s.Clone()
	c.names[name] = struct{}{}

	return c
}

// without returns a copy of s excluding name.
func (s Set) without(name string) Set {
	c := s.Clone()
	delete(c.names, name)

	return c
}

// MarshalJSON encodes the set as a sorted array of names.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

// UnmarshalJSON decodes a JSON array of names.
func (s *Set) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("decoding selection: %w", err)
	}

	*s = New(names...)

	return nil
}

// Chart identifies the chart a click originated from.
type Chart string

// Chart origins.
const (
	ChartNone      Chart = ""
	ChartPool      Chart = "pool"
	ChartShortlist Chart = "shortlist"
)

// ParseChart converts a chart name into a Chart.
func ParseChart(s string) (Chart, error) {
	switch Chart(s) {
	case ChartPool, ChartShortlist:
		return Chart(s), nil
	default:
		return ChartNone, fmt.Errorf("invalid chart %q: must be one of pool, shortlist", s)
	}
}

// Opposite returns the chart an entity moves to when clicked on c.
func (c Chart) Opposite() Chart {
	switch c {
	case ChartPool:
		return ChartShortlist
	case ChartShortlist:
		return ChartPool
	default:
		return ChartNone
	}
}

// Click is a resolved click on a marker.
type Click struct {
	// EntityID is the legal name behind the clicked marker.
	EntityID string
	// Origin is the chart the marker was drawn on.
	Origin Chart
}

// Outcome describes what a transition did.
type Outcome string

// Transition outcomes.
const (
	OutcomeAdded     Outcome = "added"
	OutcomeRemoved   Outcome = "removed"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeIgnored   Outcome = "ignored"
)

// Changed reports whether the set was modified.
func (o Outcome) Changed() bool {
	return o == OutcomeAdded || o == OutcomeRemoved
}

// Transition applies click to set and returns the resulting set. The input
// set is never modified.
func Transition(set Set, click Click) (Set, Outcome) {
	if click.EntityID == "" {
		return set, OutcomeIgnored
	}

	switch click.Origin {
	case ChartPool:
		if set.Contains(click.EntityID) {
			return set, OutcomeUnchanged
		}

		return set.with(click.EntityID), OutcomeAdded
	case ChartShortlist:
		if !set.Contains(click.EntityID) {
			return set, OutcomeUnchanged
		}

		return set.without(click.EntityID), OutcomeRemoved
	default:
		return set, OutcomeIgnored
	}
}
