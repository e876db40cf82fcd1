package cli

import (
	"github.com/spf13/cobra"
)

// OptimizeOptions are the flags of the optimize command. The toggles
// override the config file only when given explicitly.
type OptimizeOptions struct {
	RepartitionSorts bool
	BoundedVariants  bool
	Stats            bool
}

// NewOptimizeCommand creates the optimize command.
func NewOptimizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OptimizeOptions{}
	cmd := &cobra.Command{
		Use:   "optimize <plan.yaml|->",
		Short: "Enforce ordering requirements with as few sorts as possible",
		Long: `Optimize a physical plan: add the sorts its operators require, remove
the ones that are redundant, and push the rest as deep as they can go.
The optimized plan is checked before it is printed.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, rootOpts, opts, args[0])
		},
	}
	cmd.Flags().BoolVar(&opts.RepartitionSorts, "repartition-sorts", true, "parallelize sorts over coalesced inputs")
	cmd.Flags().BoolVar(&opts.BoundedVariants, "bounded-variants", false, "use order-preserving exchanges for bounded inputs")
	cmd.Flags().BoolVar(&opts.Stats, "stats", false, "print rewrite counters")
	return cmd
}

func runOptimize(cmd *cobra.Command, rootOpts *RootOptions, opts *OptimizeOptions, path string) error {
	cfg, err := loadConfig(rootOpts)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("repartition-sorts") {
		cfg.Optimizer.RepartitionSorts = opts.RepartitionSorts
	}
	if cmd.Flags().Changed("bounded-variants") {
		cfg.Optimizer.BoundedOrderPreservingVariants = opts.BoundedVariants
	}

	o, err := newOptimizer(rootOpts, cfg)
	if err != nil {
		return err
	}
	defer syncLogger(o.Logger)

	doc, err := readPlan(cmd, path)
	if err != nil {
		return err
	}
	plan, err := o.OptimizeDocument(doc)
	if err != nil {
		return err
	}
	if err := writePlan(cmd.OutOrStdout(), rootOpts.Format, plan); err != nil {
		return err
	}
	if opts.Stats {
		writeStats(cmd.OutOrStdout(), rootOpts.Format, o.Stats.Snapshot())
	}
	return nil
}
