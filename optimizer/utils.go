package optimizer

import (
	"slices"

	"mit.edu/dsg/physopt/common"
	"mit.edu/dsg/physopt/planner"
)

func isSort(n planner.PlanNode) bool {
	return n.Kind() == planner.SortKind
}

func isSortPreservingMerge(n planner.PlanNode) bool {
	return n.Kind() == planner.SortPreservingMergeKind
}

func isCoalescePartitions(n planner.PlanNode) bool {
	return n.Kind() == planner.CoalescePartitionsKind
}

func isRepartition(n planner.PlanNode) bool {
	return n.Kind() == planner.RepartitionKind
}

func isUnion(n planner.PlanNode) bool {
	return n.Kind() == planner.UnionKind
}

func isLimit(n planner.PlanNode) bool {
	k := n.Kind()
	return k == planner.GlobalLimitKind || k == planner.LocalLimitKind
}

func isWindow(n planner.PlanNode) bool {
	k := n.Kind()
	return k == planner.BoundedWindowAggKind || k == planner.WindowAggKind
}

// samePlan reports whether a and b render the same, which for the immutable
// nodes of this package means they compute the same thing.
func samePlan(a, b planner.PlanNode) bool {
	return a == b || slices.Equal(planner.ExplainLines(a), planner.ExplainLines(b))
}

func partitionCount(n planner.PlanNode) int {
	return n.OutputPartitioning().PartitionCount()
}

// addSortAbove puts a Sort enforcing req on top of node unless node already
// satisfies it. The Sort keeps the partitioning of a multi-partition input.
func addSortAbove(node planner.PlanNode, req planner.LexRequirement, fetch *int) planner.PlanNode {
	if node.EquivalenceProperties().OrderingSatisfyRequirement(req) {
		return node
	}
	sort := planner.NewSortNode(node, req.ToOrdering()).WithFetch(fetch)
	if partitionCount(node) > 1 {
		sort = sort.WithPreservePartitioning(true)
	}
	return sort
}

// sortExprsAndFetch returns the keys and row limit of a Sort or
// SortPreservingMerge.
func sortExprsAndFetch(n planner.PlanNode) (planner.LexOrdering, *int, error) {
	switch s := n.(type) {
	case *planner.SortNode:
		return s.Expr, s.Fetch, nil
	case *planner.SortPreservingMergeNode:
		return s.Expr, s.Fetch, nil
	}
	return nil, nil, common.NewPlanError(common.NodeKindMismatchError,
		"expected Sort or SortPreservingMerge, found %s", n.Kind())
}

func kindMismatch(want planner.NodeKind, got planner.PlanNode) error {
	return common.NewPlanError(common.NodeKindMismatchError, "expected %s, found %s", want, got.Kind())
}
