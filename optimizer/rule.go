package optimizer

import (
	"mit.edu/dsg/physopt/config"
	"mit.edu/dsg/physopt/planner"
)

// PhysicalOptimizerRule rewrites a physical plan into an equivalent one.
type PhysicalOptimizerRule interface {
	Name() string

	// Optimize returns the rewritten plan. On error no partial plan is
	// returned and the input must be used unchanged or not at all.
	Optimize(plan planner.PlanNode, cfg *config.OptimizerConfig) (planner.PlanNode, error)

	// SchemaCheck reports whether the caller should verify that the rule
	// kept the output schema unchanged.
	SchemaCheck() bool
}
