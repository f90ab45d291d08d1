// Package partition splits the filtered roster into the shortlist and the
// pool by membership in the selection set.
package partition

import (
	"github.com/hupe1980/where2work/internal/roster"
)

// Membership answers whether a legal name is shortlisted.
type Membership interface {
	Contains(name string) bool
}

// Split returns the shortlisted and the remaining entities, each in input
// order. Every input entity lands in exactly one of the two slices.
func Split(entities []roster.Entity, m Membership) (shortlist, pool []roster.Entity) {
	shortlist = []roster.Entity{}
	pool = []roster.Entity{}

	for _, e := range entities {
		if m != nil && m.Contains(e.LegalName) {
			shortlist = append(shortlist, e)
		} else {
			pool = append(pool, e)
		}
	}

	return shortlist, pool
}
