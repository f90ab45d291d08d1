package config

import (
	"fmt"
	"os"

	sigsyaml "sigs.k8s.io/yaml"

	"github.com/hupe1980/where2work/internal/layout"
)

// LayoutTuning holds optional jitter overrides from the layout section of
// the config file. Zero fields keep the built-in values.
type LayoutTuning struct {
	JitterX     float64 `json:"jitterX,omitempty"`
	JitterY     float64 `json:"jitterY,omitempty"`
	RadiusMin   float64 `json:"radiusMin,omitempty"`
	RadiusMax   float64 `json:"radiusMax,omitempty"`
	AngleJitter float64 `json:"angleJitter,omitempty"`
	YLimit      float64 `json:"yLimit,omitempty"`
}

// ParseLayoutTuning parses the layout section from raw config file bytes.
func ParseLayoutTuning(data []byte) (*LayoutTuning, error) {
	var raw struct {
		Layout LayoutTuning `json:"layout,omitempty"`
	}

	if err := sigsyaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing layout config: %w", err)
	}

	if err := raw.Layout.Validate(); err != nil {
		return nil, err
	}

	return &raw.Layout, nil
}

// LoadLayoutTuning reads the layout section of the config file at path. An
// empty path yields empty tuning.
func LoadLayoutTuning(path string) (*LayoutTuning, error) {
	if path == "" {
		return &LayoutTuning{}, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // config path chosen by the user
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}

	return ParseLayoutTuning(data)
}

// Validate checks the overrides for correctness.
func (t *LayoutTuning) Validate() error {
	if t.JitterX < 0 || t.JitterX >= 0.5 {
		return fmt.Errorf("layout.jitterX: %g must be in [0, 0.5) so bands never overlap", t.JitterX)
	}

	if t.JitterY < 0 {
		return fmt.Errorf("layout.jitterY: %g must not be negative", t.JitterY)
	}

	if t.RadiusMin < 0 || t.RadiusMax < 0 {
		return fmt.Errorf("layout radius bounds must not be negative")
	}

	if (t.RadiusMin != 0 || t.RadiusMax != 0) && t.RadiusMin > t.RadiusMax {
		return fmt.Errorf("layout.radiusMin %g exceeds layout.radiusMax %g", t.RadiusMin, t.RadiusMax)
	}

	if t.AngleJitter < 0 {
		return fmt.Errorf("layout.angleJitter: %g must not be negative", t.AngleJitter)
	}

	if t.YLimit < 0 {
		return fmt.Errorf("layout.yLimit: %g must not be negative", t.YLimit)
	}

	if t.YLimit != 0 && t.JitterY > t.YLimit {
		return fmt.Errorf("layout.jitterY %g exceeds layout.yLimit %g", t.JitterY, t.YLimit)
	}

	return nil
}

// IsEmpty returns true if nothing is overridden.
func (t *LayoutTuning) IsEmpty() bool {
	return *t == LayoutTuning{}
}

// Options applies the overrides and seed to the default layout options.
func (t *LayoutTuning) Options(seed uint64) layout.Options {
	opts := layout.DefaultOptions()
	opts.Seed = seed

	if t.JitterX != 0 {
		opts.JitterX = t.JitterX
	}

	if t.JitterY != 0 {
		opts.JitterY = t.JitterY
	}

	if t.RadiusMin != 0 || t.RadiusMax != 0 {
		opts.RadiusMin, opts.RadiusMax = t.RadiusMin, t.RadiusMax
	}

	if t.AngleJitter != 0 {
		opts.AngleJitter = t.AngleJitter
	}

	if t.YLimit != 0 {
		opts.YLimit = t.YLimit
	}

	return opts
}
