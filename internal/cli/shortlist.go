package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/where2work/internal/filter"
	"github.com/hupe1980/where2work/internal/output"
)

func newShortlistCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shortlist",
		Short: "Inspect or clear the session's shortlist",
	}

	cmd.AddCommand(newShortlistListCommand(), newShortlistClearCommand())

	return cmd
}

func newShortlistListCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the shortlisted companies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, svc, closeFn, err := setup(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			set, err := svc.Shortlist(ctx, cfg.Session)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()

			if jsonOutput {
				data, err := output.SerializeJSON(set, "  ")
				if err != nil {
					return err
				}

				_, err = w.Write(data)

				return err
			}

			for _, name := range set.Names() {
				_, _ = fmt.Fprintln(w, name)
			}

			if set.Len() == 0 && !cfg.Quiet {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "shortlist is empty")
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the shortlist as a JSON array")

	return cmd
}

func newShortlistClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Return every shortlisted company to the pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, svc, closeFn, err := setup(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			r, err := svc.Clear(ctx, cfg.Session, filter.Criteria{})
			if err != nil {
				return err
			}

			if !cfg.Quiet {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "shortlist cleared (%d companies in the pool)\n", r.Pool.Count)
			}

			return nil
		},
	}

	return cmd
}
