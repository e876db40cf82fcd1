package optimizer

import (
	mapset "github.com/deckarep/golang-set/v2"

	"mit.edu/dsg/physopt/common"
	"mit.edu/dsg/physopt/planner"
)

// CheckPlan verifies that every operator of plan gets what it asks of its
// inputs: the required ordering, and a single partition where it needs one.
// It reports the first violation found, walking parents before children.
func CheckPlan(plan planner.PlanNode) error {
	visited := mapset.NewThreadUnsafeSet[planner.PlanNode]()
	var check func(n planner.PlanNode) error
	check = func(n planner.PlanNode) error {
		if !visited.Add(n) {
			return nil
		}
		children := n.Children()
		required := n.RequiredInputOrdering()
		dists := n.RequiredInputDistribution()
		for i, child := range children {
			if req := required[i]; req != nil && !child.EquivalenceProperties().OrderingSatisfyRequirement(req) {
				return common.NewPlanError(common.InvalidPlanError,
					"%s requires ordering %s from input %d, which provides %s", n, req, i, child.OutputOrdering())
			}
			if dists[i].IsSinglePartition() && partitionCount(child) > 1 {
				return common.NewPlanError(common.InvalidPlanError,
					"%s requires a single partition from input %d, which has %d", n, i, partitionCount(child))
			}
		}
		for _, child := range children {
			if err := check(child); err != nil {
				return err
			}
		}
		return nil
	}
	return check(plan)
}
