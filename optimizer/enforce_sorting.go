package optimizer

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"mit.edu/dsg/physopt/config"
	"mit.edu/dsg/physopt/planner"
)

// EnforceSorting makes every ordering requirement of a plan hold while using
// as few sorts as it can. It runs four passes:
//
//  1. ensureSorting (bottom-up) adds the sorts that are missing and removes
//     the ones whose effect is lost or already provided by their input.
//  2. parallelizeSorts (bottom-up, only with RepartitionSorts) turns a
//     global sort over a coalesce into per-partition sorts and a merge.
//  3. replaceWithOrderPreservingVariants (bottom-up) drops sorts that an
//     order-preserving exchange can make unnecessary.
//  4. pushdownSorts (top-down) moves the remaining sorts as deep as they go.
//
// The rule is stateless apart from its logger and counters and may be shared
// between goroutines.
type EnforceSorting struct {
	log   *zap.Logger
	stats *RuleStats

	// pending collects events instead of recording them when set; see trial.
	pending *[]pendingEvent
}

type pendingEvent struct {
	event Event
	node  planner.PlanNode
}

// NewEnforceSorting builds the rule. A nil logger disables logging and nil
// stats get a private counter set.
func NewEnforceSorting(log *zap.Logger, stats *RuleStats) *EnforceSorting {
	if log == nil {
		log = zap.NewNop()
	}
	if stats == nil {
		stats = NewRuleStats()
	}
	return &EnforceSorting{log: log.Named("enforce_sorting"), stats: stats}
}

func (r *EnforceSorting) Name() string {
	return "EnforceSorting"
}

func (r *EnforceSorting) SchemaCheck() bool {
	return true
}

func (r *EnforceSorting) Stats() *RuleStats {
	return r.stats
}

func (r *EnforceSorting) Optimize(plan planner.PlanNode, cfg *config.OptimizerConfig) (planner.PlanNode, error) {
	if cfg == nil {
		cfg = &config.Default().Optimizer
	}

	sorted, err := TransformUp(newSortContext(plan), r.ensureSorting)
	if err != nil {
		return nil, errors.Wrap(err, "ensuring sort requirements")
	}
	plan = sorted.plan

	if cfg.RepartitionSorts {
		parallel, err := TransformUp(newCoalesceContext(plan), r.parallelizeSorts)
		if err != nil {
			return nil, errors.Wrap(err, "parallelizing sorts")
		}
		plan = parallel.plan
	}

	substituted, err := TransformUp(newOrderingContext(plan), func(ctx *orderingContext) (*orderingContext, error) {
		return r.replaceWithOrderPreservingVariants(ctx, false, true, cfg)
	})
	if err != nil {
		return nil, errors.Wrap(err, "replacing order-preserving variants")
	}
	plan = substituted.plan

	pushed, err := TransformDown(newPushdownState(plan), r.pushdownSorts)
	if err != nil {
		return nil, errors.Wrap(err, "pushing down sorts")
	}
	return pushed.plan, nil
}

func (r *EnforceSorting) record(e Event, node planner.PlanNode) {
	if r.pending != nil {
		*r.pending = append(*r.pending, pendingEvent{event: e, node: node})
		return
	}
	r.stats.Inc(e)
	if ce := r.log.Check(zap.DebugLevel, string(e)); ce != nil {
		ce.Write(zap.Stringer("node", node))
	}
}

// trial returns a copy of the rule that holds back the events it records
// until they are passed to commit. Rewrites that may be thrown away run on it.
func (r *EnforceSorting) trial() *EnforceSorting {
	return &EnforceSorting{log: r.log, stats: r.stats, pending: &[]pendingEvent{}}
}

func (r *EnforceSorting) commit(t *EnforceSorting) {
	for _, p := range *t.pending {
		r.record(p.event, p.node)
	}
}

// sortContext is a plan node together with the sort lineage of each of its
// child slots.
type sortContext struct {
	plan     planner.PlanNode
	lineages []*LineageTree
}

func newSortContext(plan planner.PlanNode) *sortContext {
	return &sortContext{plan: plan, lineages: emptyLineages(len(plan.Children()))}
}

func (c *sortContext) ChildNodes() []*sortContext {
	children := c.plan.Children()
	out := make([]*sortContext, len(children))
	for i, child := range children {
		out[i] = newSortContext(child)
	}
	return out
}

func (c *sortContext) WithChildNodes(children []*sortContext) (*sortContext, error) {
	plans := make([]planner.PlanNode, len(children))
	lineages := make([]*LineageTree, len(children))
	for i, child := range children {
		plans[i] = child.plan
		lineages[i] = sortLineage(child, i)
	}
	plan, err := planner.WithNewChildrenIfNecessary(c.plan, plans)
	if err != nil {
		return nil, err
	}
	return &sortContext{plan: plan, lineages: lineages}, nil
}

// sortLineage computes the lineage of slot idx from the context of the child
// sitting in it. A sort starts a new lineage. Operators that change the row
// count (limits, and sorts or merges with a fetch) end it, because the rows
// below them are not the rows above them. Other operators pass on the
// lineages of the inputs whose order they keep without requiring it; a
// merge passes on all of them since it relies on its inputs being sorted.
func sortLineage(child *sortContext, idx int) *LineageTree {
	plan := child.plan
	switch n := plan.(type) {
	case *planner.SortNode:
		if n.Fetch != nil {
			return nil
		}
		return newLineageLeaf(plan, idx)
	case *planner.SortPreservingMergeNode:
		if n.Fetch != nil {
			return nil
		}
		return newLineageNode(plan, idx, child.lineages)
	}
	if isLimit(plan) {
		return nil
	}
	required := plan.RequiredInputOrdering()
	maintains := plan.MaintainsInputOrder()
	var kept []*LineageTree
	for i, l := range child.lineages {
		if required[i] == nil && maintains[i] {
			kept = append(kept, l)
		}
	}
	return newLineageNode(plan, idx, kept)
}

func (r *EnforceSorting) ensureSorting(ctx *sortContext) (*sortContext, error) {
	if len(ctx.plan.Children()) == 0 {
		return ctx, nil
	}
	if result := r.analyzeImmediateSortRemoval(ctx); result != nil {
		return result, nil
	}

	plan := ctx.plan
	children := append([]planner.PlanNode(nil), plan.Children()...)
	lineages := append([]*LineageTree(nil), ctx.lineages...)
	required := plan.RequiredInputOrdering()
	maintains := plan.MaintainsInputOrder()

	for i, child := range children {
		req := required[i]
		hasOrdering := child.OutputOrdering() != nil
		switch {
		case req != nil:
			if hasOrdering && child.EquivalenceProperties().OrderingSatisfyRequirement(req) {
				continue
			}
			if hasOrdering {
				stripped, err := r.removeUnnecessarySort(child, lineages[i], plan)
				if err != nil {
					return nil, err
				}
				child = stripped
			}
			child = addSortAbove(child, req, nil)
			if isSort(child) {
				r.record(SortAdded, child)
				lineages[i] = newLineageLeaf(child, i)
			} else {
				lineages[i] = nil
			}
		case hasOrdering:
			if maintains[i] && !isUnion(plan) {
				continue
			}
			stripped, err := r.removeUnnecessarySort(child, lineages[i], plan)
			if err != nil {
				return nil, err
			}
			child = stripped
			lineages[i] = nil
		}
		children[i] = child
	}

	if isWindow(plan) {
		if lineages[0] != nil {
			return r.analyzeWindowSortRemoval(lineages[0], plan)
		}
	} else if spm, ok := plan.(*planner.SortPreservingMergeNode); ok && partitionCount(children[0]) <= 1 {
		r.record(MergeRemoved, plan)
		child := children[0]
		if spm.Fetch != nil {
			return newSortContext(planner.NewGlobalLimitNode(child, 0, spm.Fetch)), nil
		}
		return &sortContext{plan: child, lineages: lineages[0].SlotLineages(len(child.Children()))}, nil
	}

	rebuilt, err := planner.WithNewChildrenIfNecessary(plan, children)
	if err != nil {
		return nil, err
	}
	return &sortContext{plan: rebuilt, lineages: lineages}, nil
}

// analyzeImmediateSortRemoval removes a Sort whose input is already sorted
// the way the Sort would sort it. It returns nil if the Sort is needed.
func (r *EnforceSorting) analyzeImmediateSortRemoval(ctx *sortContext) *sortContext {
	sort, ok := ctx.plan.(*planner.SortNode)
	if !ok {
		return nil
	}
	input := sort.Child
	if !input.EquivalenceProperties().OrderingSatisfy(sort.Expr) {
		return nil
	}
	r.record(SortRemoved, sort)

	// A global sort over several sorted partitions still has to merge them.
	if !sort.PreservePartitioning && partitionCount(input) > 1 {
		spm := planner.NewSortPreservingMergeNode(input, sort.Expr).WithFetch(sort.Fetch)
		r.record(MergeAdded, spm)
		return &sortContext{plan: spm, lineages: ctx.lineages}
	}
	if sort.Fetch != nil {
		if partitionCount(input) > 1 {
			return newSortContext(planner.NewLocalLimitNode(input, *sort.Fetch))
		}
		return newSortContext(planner.NewGlobalLimitNode(input, 0, sort.Fetch))
	}
	return &sortContext{plan: input, lineages: ctx.lineages[0].SlotLineages(len(input.Children()))}
}
