package cycle

// Options are the values a user can pick from in each filter dimension.
type Options struct {
	Locations  []string `json:"locations"`
	Bands      []string `json:"bands"`
	Industries []string `json:"industries"`
	// Unclassified lists raw band labels that matched no canonical band and
	// are drawn in their own columns.
	Unclassified []string `json:"unclassified,omitempty"`
}

// Options lists the filter choices for the current dataset. Bands follow
// the canonical order; everything else is sorted.
func (e *Engine) Options() Options {
	ds := e.Dataset()

	return Options{
		Locations:    nonNil(ds.Locations()),
		Bands:        e.classifier.Order().Clone(),
		Industries:   nonNil(ds.IndustryCodes()),
		Unclassified: ds.FallbackBands(),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}
