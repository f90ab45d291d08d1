package output

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/where2work/internal/cycle"
	"github.com/hupe1980/where2work/internal/selection"
)

// Built-in format names.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatSVG  = "svg"
)

// EncodeOptions tunes an encoder.
type EncodeOptions struct {
	// Chart selects the chart for single-chart formats such as SVG.
	// ChartNone means the pool chart.
	Chart selection.Chart
	// SVG sizes SVG output.
	SVG SVGOptions
}

// Encoder turns a render into bytes.
type Encoder func(r *cycle.Render, opts EncodeOptions) ([]byte, error)

// Registry maps format names to Encoder functions, enabling pluggable
// output formats for the render commands.
type Registry struct {
	mu       sync.RWMutex
	encoders map[string]Encoder
}

// NewRegistry creates an empty encoder registry.
func NewRegistry() *Registry {
	return &Registry{
		encoders: make(map[string]Encoder),
	}
}

// Register adds an encoder under the given format name.
// Existing entries for the same name are overwritten.
func (r *Registry) Register(name string, enc Encoder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.encoders[name] = enc
}

// Encoder returns the encoder for the given format, or an error if not found.
func (r *Registry) Encoder(name string) (Encoder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	enc, ok := r.encoders[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %s)", name, r.availableLocked())
	}

	return enc, nil
}

// Encode looks up format and encodes render with it.
func (r *Registry) Encode(format string, render *cycle.Render, opts EncodeOptions) ([]byte, error) {
	enc, err := r.Encoder(format)
	if err != nil {
		return nil, err
	}

	return enc(render, opts)
}

// Formats returns the sorted list of registered format names.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.formatsLocked()
}

// AvailableFormats returns a comma-separated string of registered format names.
func (r *Registry) AvailableFormats() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.availableLocked()
}

func (r *Registry) formatsLocked() []string {
	names := make([]string, 0, len(r.encoders))
	for name := range r.encoders {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (r *Registry) availableLocked() string {
	formats := r.formatsLocked()
	if len(formats) == 0 {
		return "none"
	}

	return strings.Join(formats, ", ")
}

// DefaultRegistry returns a registry pre-populated with the built-in
// formats: yaml, json and svg.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(FormatYAML, func(render *cycle.Render, _ EncodeOptions) ([]byte, error) {
		return Serialize(render)
	})

	r.Register(FormatJSON, func(render *cycle.Render, _ EncodeOptions) ([]byte, error) {
		return SerializeJSON(render, "")
	})

	r.Register(FormatSVG, func(render *cycle.Render, opts EncodeOptions) ([]byte, error) {
		chart := opts.Chart
		if chart == selection.ChartNone {
			chart = selection.ChartPool
		}

		var buf bytes.Buffer
		if err := RenderSVG(&buf, render.View(chart), opts.SVG); err != nil {
			return nil, err
		}

		return buf.Bytes(), nil
	})

	return r
}
