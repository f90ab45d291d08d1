package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/where2work/internal/config"
	"github.com/hupe1980/where2work/internal/diff"
	"github.com/hupe1980/where2work/internal/output"
)

type diffOptions struct {
	filterOptions

	// Exit with code 1 when the renders differ.
	exitCode bool

	// Print only the membership summary.
	summaryOnly bool
}

func newDiffCommand() *cobra.Command {
	opts := &diffOptions{}

	cmd := &cobra.Command{
		Use:   "diff <saved-render> [<other-render>]",
		Short: "Compare a saved render against the current one",
		Long: `Diff compares a render saved with 'where2work render' (yaml or json)
against a fresh render of the current dataset, filters and shortlist, or
against a second saved render when one is given.

Both documents are normalised before the unified diff is computed, so a
yaml render and a json render of the same state compare equal. A summary
of the companies that moved onto or off the shortlist, or appeared in or
disappeared from the charts, follows the diff.

Exit codes:
  0  No differences (or --exit-code not set)
  1  Differences found with --exit-code, or error
  2  Invalid arguments
  3  Dataset could not be loaded`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.exitCode, "exit-code", false, "exit with code 1 when the renders differ")
	f.BoolVar(&opts.summaryOnly, "summary", false, "print only the companies that changed charts")

	registerFilterFlags(cmd, &opts.filterOptions)

	return cmd
}

func runDiff(cmd *cobra.Command, args []string, opts *diffOptions) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)

	saved, err := os.ReadFile(args[0]) //nolint:gosec // user-supplied render path
	if err != nil {
		return &ExitError{Code: exitUsage, Err: fmt.Errorf("reading saved render: %w", err)}
	}

	diffOpts := diff.DefaultOptions()
	diffOpts.OldLabel = args[0]

	var current []byte

	if len(args) == 2 {
		diffOpts.NewLabel = args[1]

		current, err = os.ReadFile(args[1]) //nolint:gosec // user-supplied render path
		if err != nil {
			return &ExitError{Code: exitUsage, Err: fmt.Errorf("reading render: %w", err)}
		}
	} else {
		_, svc, closeFn, serr := setup(ctx)
		if serr != nil {
			return serr
		}
		defer closeFn()

		criteria, cerr := opts.criteria(cfg)
		if cerr != nil {
			return cerr
		}

		r, rerr := svc.Render(ctx, cfg.Session, criteria)
		if rerr != nil {
			return rerr
		}

		current, err = output.Serialize(r)
		if err != nil {
			return err
		}
	}

	result, err := diff.CompareDocuments(saved, current, diffOpts)
	if err != nil {
		return &ExitError{Code: exitUsage, Err: err}
	}

	before, err := diff.MembershipOf(saved)
	if err != nil {
		return &ExitError{Code: exitUsage, Err: fmt.Errorf("%s: %w", diffOpts.OldLabel, err)}
	}

	after, err := diff.MembershipOf(current)
	if err != nil {
		return &ExitError{Code: exitUsage, Err: fmt.Errorf("%s: %w", diffOpts.NewLabel, err)}
	}

	w := cmd.OutOrStdout()

	if !opts.summaryOnly {
		diff.Write(w, result, !cfg.NoColor)

		if result.HasDifferences {
			_, _ = fmt.Fprintln(w)
		}
	}

	diff.WriteSummary(w, diff.Summarize(before, after))

	if opts.exitCode && result.HasDifferences {
		return &ExitError{Code: 1, Err: fmt.Errorf("renders differ")}
	}

	return nil
}
