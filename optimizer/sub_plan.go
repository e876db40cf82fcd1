package optimizer

import (
	"mit.edu/dsg/physopt/planner"
)

// removeUnnecessarySort strips the sort tracked by lineage out of child, the
// input in some slot of parent. Without a lineage child is returned as is.
func (r *EnforceSorting) removeUnnecessarySort(child planner.PlanNode, lineage *LineageTree, parent planner.PlanNode) (planner.PlanNode, error) {
	if lineage == nil {
		return child, nil
	}
	requiresSingle := parent.RequiredInputDistribution()[lineage.Idx].IsSinglePartition()
	return r.removeSortFromSubPlan(lineage, requiresSingle)
}

// removeSortFromSubPlan rebuilds the chain described by l without the Sort at
// its bottom. Only the operators on the chain are rebuilt. A merge on the
// chain has nothing left to merge by and is dropped; an order-preserving
// repartition falls back to the plain one.
//
// When the slot the chain hangs from needs a single partition and the result
// has several, they are merged back: by the remaining ordering if there is
// one, otherwise with a coalesce.
func (r *EnforceSorting) removeSortFromSubPlan(l *LineageTree, requiresSingle bool) (planner.PlanNode, error) {
	var updated planner.PlanNode
	if l.IsLeaf() {
		sort, ok := l.Plan.(*planner.SortNode)
		if !ok {
			return nil, kindMismatch(planner.SortKind, l.Plan)
		}
		r.record(SortRemoved, sort)
		updated = sort.Child
	} else {
		plan := l.Plan
		children := append([]planner.PlanNode(nil), plan.Children()...)
		dists := plan.RequiredInputDistribution()
		for _, item := range l.Children {
			repaired, err := r.removeSortFromSubPlan(item, dists[item.Idx].IsSinglePartition())
			if err != nil {
				return nil, err
			}
			children[item.Idx] = repaired
		}
		switch n := plan.(type) {
		case *planner.SortPreservingMergeNode:
			r.record(MergeRemoved, n)
			updated = children[0]
		case *planner.RepartitionNode:
			updated = planner.NewRepartitionNode(children[0], n.Partitioning)
		default:
			rebuilt, err := planner.WithNewChildrenIfNecessary(plan, children)
			if err != nil {
				return nil, err
			}
			updated = rebuilt
		}
	}

	if requiresSingle && partitionCount(updated) > 1 {
		if ordering := updated.OutputOrdering(); ordering != nil {
			updated = planner.NewSortPreservingMergeNode(updated, ordering)
			r.record(MergeAdded, updated)
		} else {
			updated = planner.NewCoalescePartitionsNode(updated)
		}
	}
	return updated, nil
}

// removeCoalesceFromSubPlan rebuilds the chain described by l without the
// CoalescePartitions at its bottom. parent is the operator directly above l.
// A repartition left directly below an identical one is redundant once the
// coalesce between them is gone, and is skipped.
func (r *EnforceSorting) removeCoalesceFromSubPlan(l *LineageTree, parent planner.PlanNode) (planner.PlanNode, error) {
	if l.IsLeaf() {
		coalesce, ok := l.Plan.(*planner.CoalescePartitionsNode)
		if !ok {
			return nil, kindMismatch(planner.CoalescePartitionsKind, l.Plan)
		}
		r.record(CoalesceRemoved, coalesce)
		updated := coalesce.Child
		for isRepartition(updated) && isRepartition(parent) &&
			updated.OutputPartitioning().Equal(parent.OutputPartitioning()) {
			updated = updated.Children()[0]
		}
		return updated, nil
	}

	plan := l.Plan
	children := append([]planner.PlanNode(nil), plan.Children()...)
	for _, item := range l.Children {
		repaired, err := r.removeCoalesceFromSubPlan(item, plan)
		if err != nil {
			return nil, err
		}
		children[item.Idx] = repaired
	}
	return planner.WithNewChildrenIfNecessary(plan, children)
}
