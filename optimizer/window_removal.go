package optimizer

import (
	mapset "github.com/deckarep/golang-set/v2"

	"mit.edu/dsg/physopt/common"
	"mit.edu/dsg/physopt/planner"
)

// analyzeWindowSortRemoval handles a window whose input slot carries a sort
// lineage. The sort is removed; if the window can be evaluated over what is
// left, possibly in reverse, it is rebuilt that way, otherwise the sort is put
// back directly below it.
func (r *EnforceSorting) analyzeWindowSortRemoval(l *LineageTree, window planner.PlanNode) (*sortContext, error) {
	var exprs []planner.WindowExpr
	var keys []planner.Expr
	switch w := window.(type) {
	case *planner.BoundedWindowAggNode:
		exprs, keys = w.WindowExprs, w.PartitionKeys
	case *planner.WindowAggNode:
		exprs, keys = w.WindowExprs, w.PartitionKeys
	default:
		return nil, common.NewPlanError(common.NodeKindMismatchError,
			"expected BoundedWindowAgg or WindowAgg, found %s", window.Kind())
	}

	requiresSingle := window.RequiredInputDistribution()[l.Idx].IsSinglePartition()
	trial := r.trial()
	child, err := trial.removeSortFromSubPlan(l, requiresSingle)
	if err != nil {
		return nil, err
	}

	if fitted := bestFittingWindow(exprs, child, keys); fitted != nil {
		r.commit(trial)
		r.record(WindowRewritten, fitted)
		return newSortContext(fitted), nil
	}

	child = addSortAbove(child, window.RequiredInputOrdering()[0], nil)
	if samePlan(child, l.Plan) {
		// The sort went back where it was.
		kept, err := planner.WithNewChildrenIfNecessary(window, []planner.PlanNode{l.Plan})
		if err != nil {
			return nil, err
		}
		return newSortContext(kept), nil
	}
	r.commit(trial)
	if isSort(child) {
		r.record(SortAdded, child)
	}
	if planner.AllBounded(exprs) {
		return newSortContext(planner.NewBoundedWindowAggNode(child, exprs, keys)), nil
	}
	return newSortContext(planner.NewWindowAggNode(child, exprs, keys)), nil
}

// bestFittingWindow returns a window operator computing exprs directly over
// input as it is currently sorted, or nil if input's order does not allow it.
// The expressions are reversed when input is sorted the opposite way of
// their ORDER BY.
func bestFittingWindow(exprs []planner.WindowExpr, input planner.PlanNode, keys []planner.Expr) planner.PlanNode {
	if len(exprs) == 0 {
		return nil
	}
	reverse, ok := canSkipSort(exprs[0].PartitionBy, exprs[0].OrderBy, input)
	if !ok {
		return nil
	}
	fitted := exprs
	if reverse {
		fitted = make([]planner.WindowExpr, len(exprs))
		for i, w := range exprs {
			rev, ok := w.Reverse()
			if !ok {
				return nil
			}
			fitted[i] = rev
		}
	}
	if planner.AllBounded(fitted) {
		return planner.NewBoundedWindowAggNode(input, fitted, keys)
	}
	return planner.NewWindowAggNode(input, fitted, keys)
}

// canSkipSort reports whether input is sorted by the partition keys, in any
// order and direction, followed by orderBy or by its reverse. reverse is true
// in the latter case.
func canSkipSort(partitionBy []planner.Expr, orderBy planner.LexOrdering, input planner.PlanNode) (reverse bool, ok bool) {
	eq := input.EquivalenceProperties()
	keys := eq.NormalizeRequirement(planner.RequirementFromExprs(partitionBy))
	ordering := eq.NormalizeSortExprs(input.OutputOrdering())
	if len(keys) > len(ordering) {
		return false, false
	}

	prefix := ordering[:len(keys)]
	if len(keys) > 0 {
		want := mapset.NewThreadUnsafeSet[string]()
		for _, k := range keys {
			want.Add(k.Expr.String())
		}
		have := mapset.NewThreadUnsafeSet[string]()
		for _, s := range prefix {
			have.Add(s.Expr.String())
		}
		if !want.Equal(have) {
			return false, false
		}
	}

	if eq.OrderingSatisfy(concatOrderings(prefix, orderBy)) {
		return false, true
	}
	if len(orderBy) > 0 && eq.OrderingSatisfy(concatOrderings(prefix, orderBy.Reverse())) {
		return true, true
	}
	return false, false
}

func concatOrderings(a, b planner.LexOrdering) planner.LexOrdering {
	out := make(planner.LexOrdering, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
