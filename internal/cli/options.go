package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/where2work/internal/config"
	"github.com/hupe1980/where2work/internal/output"
)

func newOptionsCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "options",
		Short: "List the values each filter accepts",
		Long: `Options lists the headquarters locations and industry codes present in
the dataset, sorted, and the canonical employee bands in order. Bands
that matched no canonical band are listed separately; they are drawn in
extra columns after the canonical ones.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			engine, err := newEngine(ctx, config.FromContext(ctx), false)
			if err != nil {
				return err
			}

			var data []byte
			if jsonOutput {
				data, err = output.SerializeJSON(engine.Options(), "  ")
			} else {
				data, err = output.Serialize(engine.Options())
			}

			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}
