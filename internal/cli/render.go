package cli

import (
	"github.com/spf13/cobra"
)

type renderOptions struct {
	filterOptions
	outputOptions
}

func newRenderCommand() *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the shortlist and pool charts",
		Long: `Render runs one cycle for the current session: the dataset is filtered
by --location, --band and --industry (or a --preset), split into the
shortlisted companies and the remaining pool, and both charts are laid out.

The yaml and json formats describe both charts, including every marker's
position, label and tooltip. The svg format draws the chart named by
--chart.`,
		Example: `  where2work render --location Sydney --band "6–19 Employees"
  where2work render --format svg --chart shortlist -o shortlist.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, opts)
		},
	}

	registerFilterFlags(cmd, &opts.filterOptions)
	registerOutputFlags(cmd, &opts.outputOptions)

	return cmd
}

func runRender(cmd *cobra.Command, opts *renderOptions) error {
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

	r, err := svc.Render(ctx, cfg.Session, criteria)
	if err != nil {
		return err
	}

	return opts.write(cmd, r)
}
