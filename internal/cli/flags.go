package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/where2work/internal/cycle"
	"github.com/hupe1980/where2work/internal/logging"
	"github.com/hupe1980/where2work/internal/output"
	"github.com/hupe1980/where2work/internal/selection"
)

// outputOptions controls how a render is encoded and where it goes.
type outputOptions struct {
	format string
	chart  string
	output string
	width  int
	height int
}

// registerOutputFlags adds the render output flags to a cobra command.
func registerOutputFlags(cmd *cobra.Command, opts *outputOptions) {
	def := output.DefaultSVGOptions()

	f := cmd.Flags()
	f.StringVar(&opts.format, "format", output.FormatYAML, "output format: "+output.DefaultRegistry().AvailableFormats())
	f.StringVar(&opts.chart, "chart", string(selection.ChartPool), "chart drawn by the svg format: pool, shortlist")
	f.StringVarP(&opts.output, "output", "o", "", "output file path (default: stdout)")
	f.IntVar(&opts.width, "width", def.Width, "svg width in pixels")
	f.IntVar(&opts.height, "height", def.Height, "svg height in pixels")
}

// encodeOptions validates the flags and maps them to encoder options.
func (o *outputOptions) encodeOptions() (output.EncodeOptions, error) {
	chart, err := selection.ParseChart(o.chart)
	if err != nil {
		return output.EncodeOptions{}, &ExitError{Code: exitUsage, Err: err}
	}

	svg := output.DefaultSVGOptions()
	svg.Width, svg.Height = o.width, o.height

	return output.EncodeOptions{Chart: chart, SVG: svg}, nil
}

// encode renders r in the selected format.
func (o *outputOptions) encode(r *cycle.Render) ([]byte, error) {
	encOpts, err := o.encodeOptions()
	if err != nil {
		return nil, err
	}

	data, err := output.DefaultRegistry().Encode(o.format, r, encOpts)
	if err != nil {
		return nil, &ExitError{Code: exitUsage, Err: err}
	}

	return data, nil
}

// write encodes r and sends it to the configured destination.
func (o *outputOptions) write(cmd *cobra.Command, r *cycle.Render) error {
	data, err := o.encode(r)
	if err != nil {
		return err
	}

	w := output.NewWriter(o.output, cmd.OutOrStdout())
	if err := w.Write(data); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	logging.FromContext(cmd.Context()).Debug("render written",
		slog.String("format", o.format),
		slog.String("destination", w.Name()),
		slog.Int("bytes", len(data)),
	)

	return nil
}
