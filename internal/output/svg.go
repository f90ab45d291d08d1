package output

import (
	"bytes"
	"fmt"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/hupe1980/where2work/internal/cycle"
	"github.com/hupe1980/where2work/internal/selection"
)

// SVGOptions sizes the rendered chart.
type SVGOptions struct {
	Width  int
	Height int
	// DotWidth is the bubble radius in pixels.
	DotWidth float64
}

// DefaultSVGOptions returns the standard chart size.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Width: 960, Height: 280, DotWidth: 7}
}

var (
	shortlistColor = drawing.ColorFromHex("1f77b4")
	poolColor      = drawing.ColorFromHex("7f7f7f")
)

// RenderSVG draws view as a bubble chart. An empty view is drawn as an
// empty frame carrying the view's empty-state message.
func RenderSVG(w io.Writer, view *cycle.ChartView, opts SVGOptions) error {
	if view == nil {
		return fmt.Errorf("rendering SVG: no chart view")
	}

	def := DefaultSVGOptions()
	if opts.Width == 0 {
		opts.Width = def.Width
	}

	if opts.Height == 0 {
		opts.Height = def.Height
	}

	if opts.DotWidth == 0 {
		opts.DotWidth = def.DotWidth
	}

	ticks := make([]chart.Tick, len(view.Ticks))
	for i, t := range view.Ticks {
		ticks[i] = chart.Tick{Value: t.Value, Label: t.Label}
	}

	graph := chart.Chart{
		Title:  view.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  view.AxisTitle,
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: view.XRange[0], Max: view.XRange[1]},
		},
		YAxis: chart.YAxis{
			Style: chart.Hidden(),
			Range: &chart.ContinuousRange{Min: view.YRange[0], Max: view.YRange[1]},
		},
		Series: bubbleSeries(view, opts),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.SVG, &buf); err != nil {
		return fmt.Errorf("rendering %s chart: %w", view.Chart, err)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing SVG: %w", err)
	}

	return nil
}

func bubbleSeries(view *cycle.ChartView, opts SVGOptions) []chart.Series {
	midX := (view.XRange[0] + view.XRange[1]) / 2

	if view.Empty {
		return []chart.Series{
			chart.AnnotationSeries{
				Name:        "empty",
				Annotations: []chart.Value2{{XValue: midX, YValue: 0, Label: view.EmptyMessage}},
			},
		}
	}

	color := poolColor
	if view.Chart == selection.ChartShortlist {
		color = shortlistColor
	}

	xs := make([]float64, len(view.Markers))
	ys := make([]float64, len(view.Markers))
	labels := make([]chart.Value2, 0, len(view.Markers))

	for i, m := range view.Markers {
		xs[i], ys[i] = m.X, m.Y

		if m.Label != "" {
			labels = append(labels, chart.Value2{XValue: m.X, YValue: m.Y, Label: m.Label})
		}
	}

	series := []chart.Series{
		chart.ContinuousSeries{
			Name: string(view.Chart),
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    opts.DotWidth,
				DotColor:    color.WithAlpha(180),
			},
			XValues: xs,
			YValues: ys,
		},
	}

	if len(labels) > 0 {
		series = append(series, chart.AnnotationSeries{Name: "labels", Annotations: labels})
	}

	return series
}
