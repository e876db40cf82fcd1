package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mit.edu/dsg/physopt/codec"
	"mit.edu/dsg/physopt/optimizer"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <plan.yaml|->",
		Short: "Verify that a plan meets every ordering and partitioning requirement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			o, err := newOptimizer(rootOpts, cfg)
			if err != nil {
				return err
			}
			defer syncLogger(o.Logger)

			doc, err := readPlan(cmd, args[0])
			if err != nil {
				return err
			}
			plan, err := codec.Decode(doc, o.Catalog)
			if err != nil {
				return err
			}
			if err := optimizer.CheckPlan(plan); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
		SilenceUsage: true,
	}
}
