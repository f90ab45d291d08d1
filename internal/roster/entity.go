// Package roster loads the organization dataset and derives the auxiliary
// columns the layout engine needs (canonical band, industry description and
// a cleaned entity type).
//
// Entities are immutable once loaded. Every later stage reads them and
// produces new slices; nothing writes back into a Dataset.
package roster

import (
	"regexp"
	"sort"

	"github.com/hupe1980/where2work/internal/band"
)

// Entity is one row of the dataset.
type Entity struct {
	// LegalName identifies the entity for selection purposes.
	LegalName string `json:"legalName"`
	// EntityType is the raw type cell, possibly carrying footnote markers.
	EntityType string `json:"entityType"`
	// HeadquartersLocation is the trimmed location cell.
	HeadquartersLocation string `json:"headquartersLocation"`
	// EmployeeBandRaw is the trimmed free-text band label.
	EmployeeBandRaw string `json:"employeeBandRaw"`
	// EmployeeBandCode is carried through but not interpreted.
	EmployeeBandCode string `json:"employeeBandCode"`
	// IndustryCode is the raw industry code, e.g. "K6411 (Financial Services)".
	IndustryCode string `json:"industryCode"`

	// Band is the canonical band derived from EmployeeBandRaw.
	Band string `json:"band"`
	// IndustryDescription is the parenthesised part of IndustryCode, or the
	// whole code when it has none.
	IndustryDescription string `json:"industryDescription"`
	// TypeLabel is EntityType with "[n]" markers removed.
	TypeLabel string `json:"typeLabel"`
}

var (
	industryDescPattern = regexp.MustCompile(`\((.*?)\)`)
	footnotePattern     = regexp.MustCompile(`\s*\[\d+\]`)
)

// IndustryDescription extracts the human-readable description embedded in an
// industry code. "K6411 (Financial Services)" yields "Financial Services";
// codes without parentheses are returned unchanged.
func IndustryDescription(code string) string {
	m := industryDescPattern.FindStringSubmatch(code)
	if m == nil {
		return code
	}

	return m[1]
}

// CleanEntityType strips footnote markers such as " [1]" from a type label.
func CleanEntityType(t string) string {
	return footnotePattern.ReplaceAllString(t, "")
}

// derive fills the auxiliary columns of e.
func derive(e Entity, classifier *band.Classifier) Entity {
	e.Band = classifier.Classify(e.EmployeeBandRaw)
	e.IndustryDescription = IndustryDescription(e.IndustryCode)
	e.TypeLabel = CleanEntityType(e.EntityType)

	return e
}

// Dataset is a loaded, classified roster.
type Dataset struct {
	// Source names where the rows came from.
	Source string
	// Entities are the rows in file order.
	Entities []Entity
	// Order is the canonical band order the rows were classified against.
	Order band.Order
}

// Len returns the number of entities.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}

	return len(d.Entities)
}

// Locations returns the sorted distinct headquarters locations.
func (d *Dataset) Locations() []string {
	return d.distinct(func(e Entity) string { return e.HeadquartersLocation })
}

// IndustryCodes returns the sorted distinct industry codes.
func (d *Dataset) IndustryCodes() []string {
	return d.distinct(func(e Entity) string { return e.IndustryCode })
}

// FallbackBands returns the sorted distinct band labels that did not match a
// canonical band.
func (d *Dataset) FallbackBands() []string {
	out := d.distinct(func(e Entity) string {
		if d.Order.Contains(e.Band) {
			return ""
		}

		return e.Band
	})

	filtered := out[:0]
	for _, b := range out {
		if b != "" {
			filtered = append(filtered, b)
		}
	}

	return filtered
}

func (d *Dataset) distinct(key func(Entity) string) []string {
	if d == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(d.Entities))
	out := make([]string, 0)

	for _, e := range d.Entities {
		k := key(e)
		if _, ok := seen[k]; ok {
			continue
		}

		seen[k] = struct{}{}
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}

// Names returns the legal names of entities in order.
func Names(entities []Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.LegalName
	}

	return out
}
