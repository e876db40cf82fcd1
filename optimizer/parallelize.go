package optimizer

import (
	"mit.edu/dsg/physopt/planner"
)

// coalesceContext is a plan node together with the coalesce lineage of each
// of its child slots: the chains leading down to a CoalescePartitions through
// operators that do not need a single input partition.
type coalesceContext struct {
	plan     planner.PlanNode
	lineages []*LineageTree
}

func newCoalesceContext(plan planner.PlanNode) *coalesceContext {
	return &coalesceContext{plan: plan, lineages: emptyLineages(len(plan.Children()))}
}

func (c *coalesceContext) ChildNodes() []*coalesceContext {
	children := c.plan.Children()
	out := make([]*coalesceContext, len(children))
	for i, child := range children {
		out[i] = newCoalesceContext(child)
	}
	return out
}

func (c *coalesceContext) WithChildNodes(children []*coalesceContext) (*coalesceContext, error) {
	plans := make([]planner.PlanNode, len(children))
	lineages := make([]*LineageTree, len(children))
	for i, child := range children {
		plans[i] = child.plan
		lineages[i] = coalesceLineage(child, i)
	}
	plan, err := planner.WithNewChildrenIfNecessary(c.plan, plans)
	if err != nil {
		return nil, err
	}
	return &coalesceContext{plan: plan, lineages: lineages}, nil
}

// coalesceLineage starts a lineage at a coalesce and extends the lineages of
// the child's inputs unless the child needs that input in one partition.
func coalesceLineage(child *coalesceContext, idx int) *LineageTree {
	plan := child.plan
	if len(plan.Children()) == 0 {
		return nil
	}
	if isCoalescePartitions(plan) {
		return newLineageLeaf(plan, idx)
	}
	dists := plan.RequiredInputDistribution()
	var kept []*LineageTree
	for _, l := range child.lineages {
		if l != nil && !dists[l.Idx].IsSinglePartition() {
			kept = append(kept, l)
		}
	}
	return newLineageNode(plan, idx, kept)
}

// parallelizeSorts replaces a coalesce followed by a global sort (or merge)
// with per-partition sorts followed by a merge, and drops a coalesce that has
// another coalesce below it.
func (r *EnforceSorting) parallelizeSorts(ctx *coalesceContext) (*coalesceContext, error) {
	plan := ctx.plan
	if len(plan.Children()) == 0 || ctx.lineages[0] == nil {
		return ctx, nil
	}

	if (isSort(plan) || isSortPreservingMerge(plan)) && partitionCount(plan) <= 1 {
		input, err := r.removeCoalesceFromSubPlan(ctx.lineages[0], plan)
		if err != nil {
			return nil, err
		}
		exprs, fetch, err := sortExprsAndFetch(plan)
		if err != nil {
			return nil, err
		}
		if sorted := addSortAbove(input, exprs.Requirement(), fetch); sorted != input {
			r.record(SortAdded, sorted)
			input = sorted
		}
		spm := planner.NewSortPreservingMergeNode(input, exprs).WithFetch(fetch)
		// A merge over a coalesce is only rebuilt.
		if isSort(plan) {
			r.record(MergeAdded, spm)
		}
		return &coalesceContext{plan: spm, lineages: emptyLineages(1)}, nil
	}

	if isCoalescePartitions(plan) {
		input, err := r.removeCoalesceFromSubPlan(ctx.lineages[0], plan)
		if err != nil {
			return nil, err
		}
		rebuilt, err := planner.WithNewChildrenIfNecessary(plan, []planner.PlanNode{input})
		if err != nil {
			return nil, err
		}
		return &coalesceContext{plan: rebuilt, lineages: emptyLineages(1)}, nil
	}

	return ctx, nil
}
