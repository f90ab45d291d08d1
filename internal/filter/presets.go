package filter

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/where2work/internal/band"
)

// Preset is a named, reusable set of filter selections that can be applied
// via --preset.
type Preset struct {
	Criteria `yaml:",inline"`

	// Extends names a built-in preset to extend with these selections.
	Extends string `yaml:"extends,omitempty"`
}

// presetFile is the on-disk layout of a presets file.
type presetFile struct {
	Presets map[string]Preset `yaml:"presets"`
}

// builtinPresets returns the built-in presets for the default band order.
func builtinPresets() map[string]Preset {
	order := band.DefaultOrder()

	return map[string]Preset{
		"micro": {Criteria: Criteria{Bands: []string{order[0]}}},
		"small": {Criteria: Criteria{Bands: []string{order[1], order[2]}}},
	}
}

// BuiltinPresetNames returns the sorted names of all built-in presets.
func BuiltinPresetNames() []string {
	presets := builtinPresets()

	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ResolvePreset resolves a preset name by checking built-in presets first,
// then custom presets. A custom preset that extends a built-in is merged
// with it.
func ResolvePreset(name string, custom map[string]Preset) (Criteria, error) {
	if p, ok := builtinPresets()[name]; ok {
		return p.Criteria, nil
	}

	p, ok := custom[name]
	if !ok {
		return Criteria{}, fmt.Errorf("unknown preset %q (built-in: %v)", name, BuiltinPresetNames())
	}

	if p.Extends == "" {
		return p.Criteria, nil
	}

	base, ok := builtinPresets()[p.Extends]
	if !ok {
		return Criteria{}, fmt.Errorf("preset %q extends unknown preset %q", name, p.Extends)
	}

	return base.Criteria.Merge(p.Criteria), nil
}

// ParsePresets decodes a presets document.
func ParsePresets(data []byte) (map[string]Preset, error) {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing presets: %w", err)
	}

	if f.Presets == nil {
		f.Presets = map[string]Preset{}
	}

	return f.Presets, nil
}

// LoadPresets reads a presets file from path.
func LoadPresets(path string) (map[string]Preset, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied presets path
	if err != nil {
		return nil, fmt.Errorf("reading presets file %q: %w", path, err)
	}

	return ParsePresets(data)
}
