package cli

import (
	"github.com/spf13/cobra"

	"mit.edu/dsg/physopt/codec"
)

// NewExplainCommand creates the explain command. It prints a plan without
// optimizing it, which also normalizes hand-written documents in yaml format.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "explain <plan.yaml|->",
		Short:        "Print a plan one operator per line",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
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
			return writePlan(cmd.OutOrStdout(), rootOpts.Format, plan)
		},
	}
}
