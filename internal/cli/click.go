package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/where2work/internal/cycle"
	"github.com/hupe1980/where2work/internal/selection"
)

type clickOptions struct {
	filterOptions
	outputOptions

	on    string
	index int
}

func newClickCommand() *cobra.Command {
	opts := &clickOptions{}

	cmd := &cobra.Command{
		Use:   "click",
		Short: "Click a marker and move its company to the other chart",
		Long: `Click resolves --index against the render of the current filters and
shortlist, the same render a previous 'where2work render' produced, and
moves the company behind that marker: a pool marker adds it to the
shortlist, a shortlist marker removes it. Clicking a company that is
already where the click would move it changes nothing. An index that no
longer names a marker is ignored.

The new shortlist is saved to the configured store and the resulting
render is written like 'where2work render' does.`,
		Example: `  where2work click --on pool --index 3 --store sqlite
  where2work click --on shortlist --index 0 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClick(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.on, "on", "", "chart the marker was clicked on: pool, shortlist (required)")
	f.IntVar(&opts.index, "index", -1, "marker index within that chart (required)")

	_ = cmd.MarkFlagRequired("on")
	_ = cmd.MarkFlagRequired("index")

	registerFilterFlags(cmd, &opts.filterOptions)
	registerOutputFlags(cmd, &opts.outputOptions)

	return cmd
}

func runClick(cmd *cobra.Command, opts *clickOptions) error {
	chart, err := selection.ParseChart(opts.on)
	if err != nil {
		return &ExitError{Code: exitUsage, Err: err}
	}

	ctx := cmd.Context()

	cfg, svc, closeFn, err := setup(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	criteria, err := opts.criteria(cfg)
	if err != nil {
		return err
	}

	step, err := svc.Click(ctx, cfg.Session, criteria, cycle.MarkerClick{Chart: chart, Index: opts.index})
	if err != nil {
		return err
	}

	if !cfg.Quiet {
		writeOutcome(cmd, step)
	}

	return opts.write(cmd, step.Render)
}

// writeOutcome reports the transition on stderr.
func writeOutcome(cmd *cobra.Command, step *cycle.Step) {
	w := cmd.ErrOrStderr()

	switch step.Outcome {
	case selection.OutcomeAdded:
		_, _ = fmt.Fprintf(w, "added %q to the shortlist (%d shortlisted)\n", step.Click.EntityID, step.Selection.Len())
	case selection.OutcomeRemoved:
		_, _ = fmt.Fprintf(w, "removed %q from the shortlist (%d shortlisted)\n", step.Click.EntityID, step.Selection.Len())
	case selection.OutcomeUnchanged:
		_, _ = fmt.Fprintf(w, "%q is already on the %s chart\n", step.Click.EntityID, step.Click.Origin.Opposite())
	default:
		_, _ = fmt.Fprintln(w, "click ignored: no marker at that index")
	}
}
