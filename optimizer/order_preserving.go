package optimizer

import (
	"mit.edu/dsg/physopt/config"
	"mit.edu/dsg/physopt/planner"
)

// orderingContext tracks, per child slot, the chains leading to an exchange
// that drops an ordering it could keep: a Repartition that does not preserve
// order, or a CoalescePartitions over sorted partitions.
type orderingContext struct {
	plan     planner.PlanNode
	lineages []*LineageTree
}

func newOrderingContext(plan planner.PlanNode) *orderingContext {
	return &orderingContext{plan: plan, lineages: emptyLineages(len(plan.Children()))}
}

func (c *orderingContext) ChildNodes() []*orderingContext {
	children := c.plan.Children()
	out := make([]*orderingContext, len(children))
	for i, child := range children {
		out[i] = newOrderingContext(child)
	}
	return out
}

func (c *orderingContext) WithChildNodes(children []*orderingContext) (*orderingContext, error) {
	plans := make([]planner.PlanNode, len(children))
	lineages := make([]*LineageTree, len(children))
	for i, child := range children {
		plans[i] = child.plan
		lineages[i] = orderingLineage(child, i)
	}
	plan, err := planner.WithNewChildrenIfNecessary(c.plan, plans)
	if err != nil {
		return nil, err
	}
	return &orderingContext{plan: plan, lineages: lineages}, nil
}

func orderingLineage(child *orderingContext, idx int) *LineageTree {
	plan := child.plan
	children := plan.Children()
	if len(children) == 0 {
		return nil
	}
	maintains := plan.MaintainsInputOrder()
	exchange := isRepartition(plan) || isCoalescePartitions(plan)
	if child.lineages[0] == nil {
		if (isRepartition(plan) && !maintains[0]) ||
			(isCoalescePartitions(plan) && children[0].OutputOrdering() != nil) {
			return newLineageLeaf(plan, idx)
		}
	}
	var kept []*LineageTree
	for _, l := range child.lineages {
		if l != nil && (maintains[l.Idx] || exchange) {
			kept = append(kept, l)
		}
	}
	return newLineageNode(plan, idx, kept)
}

// replaceWithOrderPreservingVariants removes a Sort when switching the
// exchanges below it to their order-preserving variants makes the input
// already sorted. For unbounded inputs, or when the configuration asks for
// it, both kinds of exchange are switched; otherwise preferRepartition and
// preferMerge decide per kind. A Sort with a fetch is kept, as is a global
// Sort whose rewritten input would still have several partitions.
func (r *EnforceSorting) replaceWithOrderPreservingVariants(ctx *orderingContext, preferRepartition, preferMerge bool, cfg *config.OptimizerConfig) (*orderingContext, error) {
	sort, ok := ctx.plan.(*planner.SortNode)
	if !ok || ctx.lineages[0] == nil || sort.Fetch != nil {
		return ctx, nil
	}
	useVariants := cfg.BoundedOrderPreservingVariants || sort.Unbounded()
	updated, substituted, err := orderPreservingPlan(ctx.lineages[0], preferRepartition || useVariants, preferMerge || useVariants)
	if err != nil {
		return nil, err
	}
	if !updated.EquivalenceProperties().OrderingSatisfy(sort.Expr) {
		return ctx, nil
	}
	if !sort.PreservePartitioning && partitionCount(updated) > 1 {
		return ctx, nil
	}
	for _, n := range substituted {
		r.record(VariantSubstituted, n)
	}
	r.record(SortRemoved, sort)
	return &orderingContext{plan: updated, lineages: emptyLineages(len(updated.Children()))}, nil
}

// orderPreservingPlan rebuilds the chain described by l with its exchanges
// switched to their order-preserving variants where allowed. It also returns
// the operators it substituted.
func orderPreservingPlan(l *LineageTree, switchRepartition, switchCoalesce bool) (planner.PlanNode, []planner.PlanNode, error) {
	plan := l.Plan
	children := append([]planner.PlanNode(nil), plan.Children()...)
	var substituted []planner.PlanNode
	for _, item := range l.Children {
		updated, subs, err := orderPreservingPlan(item, switchRepartition, switchCoalesce)
		if err != nil {
			return nil, nil, err
		}
		children[item.Idx] = updated
		substituted = append(substituted, subs...)
	}
	plan, err := planner.WithNewChildrenIfNecessary(plan, children)
	if err != nil {
		return nil, nil, err
	}

	if rep, ok := plan.(*planner.RepartitionNode); ok && !rep.MaintainsInputOrder()[0] && switchRepartition {
		if preserving := rep.WithPreserveOrder(); preserving.PreserveOrder {
			plan = preserving
			substituted = append(substituted, plan)
		}
	}
	if isCoalescePartitions(plan) && switchCoalesce {
		if ordering := plan.Children()[0].OutputOrdering(); ordering != nil {
			plan = planner.NewSortPreservingMergeNode(plan.Children()[0], ordering)
			substituted = append(substituted, plan)
		}
	}
	return plan, substituted, nil
}
