package optimizer

import (
	mapset "github.com/deckarep/golang-set/v2"

	"mit.edu/dsg/physopt/planner"
)

// pushdownState is the top-down state of the sort pushdown pass: a plan
// node, the ordering its parent still needs from it, and the orderings it
// will ask of each of its children.
type pushdownState struct {
	plan     planner.PlanNode
	required planner.LexRequirement
	adjusted []planner.LexRequirement
}

func newPushdownState(plan planner.PlanNode) *pushdownState {
	return &pushdownState{plan: plan, adjusted: plan.RequiredInputOrdering()}
}

func (s *pushdownState) ChildNodes() []*pushdownState {
	children := s.plan.Children()
	out := make([]*pushdownState, len(children))
	for i, child := range children {
		out[i] = &pushdownState{
			plan:     child,
			required: s.adjusted[i],
			adjusted: child.RequiredInputOrdering(),
		}
	}
	return out
}

func (s *pushdownState) WithChildNodes(children []*pushdownState) (*pushdownState, error) {
	plans := make([]planner.PlanNode, len(children))
	for i, child := range children {
		plans[i] = child.plan
	}
	plan, err := planner.WithNewChildrenIfNecessary(s.plan, plans)
	if err != nil {
		return nil, err
	}
	return &pushdownState{plan: plan, required: s.required, adjusted: s.adjusted}, nil
}

// pushdownSorts moves the requirement reaching a node as far down as it can
// legally go, sorting only where it stops.
func (r *EnforceSorting) pushdownSorts(s *pushdownState) (*pushdownState, error) {
	plan := s.plan
	parentReq := s.required

	if sort, ok := plan.(*planner.SortNode); ok {
		newPlan := plan
		if !plan.EquivalenceProperties().OrderingSatisfyRequirement(parentReq) {
			newPlan = addSortAbove(sort.Child, parentReq, sort.Fetch)
			if !isSort(newPlan) && (sort.Fetch != nil || (!sort.PreservePartitioning && partitionCount(sort.Child) > 1)) {
				newPlan = planner.NewSortNode(sort.Child, parentReq.ToOrdering()).
					WithFetch(sort.Fetch).
					WithPreservePartitioning(sort.PreservePartitioning)
			}
		}
		newSort, ok := newPlan.(*planner.SortNode)
		if !ok {
			r.record(SortRemoved, sort)
			return newPushdownState(newPlan), nil
		}
		// A sort with a fetch is also a limit, and a global sort is also a
		// merge of its input partitions; neither can simply go away.
		child := newSort.Child
		if newSort.Fetch == nil && (newSort.PreservePartitioning || partitionCount(child) <= 1) {
			if adjusted, replacement, ok := pushdownRequirementToChildren(child, newSort.Expr.Requirement()); ok {
				r.record(SortPushedDown, newSort)
				return &pushdownState{plan: replacement, adjusted: adjusted}, nil
			}
		}
		return newPushdownState(newPlan), nil
	}

	if plan.EquivalenceProperties().OrderingSatisfyRequirement(parentReq) {
		return &pushdownState{plan: plan, adjusted: s.adjusted}, nil
	}
	if adjusted, replacement, ok := pushdownRequirementToChildren(plan, parentReq); ok {
		return &pushdownState{plan: replacement, adjusted: adjusted}, nil
	}
	newPlan := addSortAbove(plan, parentReq, nil)
	if isSort(newPlan) {
		r.record(SortAdded, newPlan)
	}
	return newPushdownState(newPlan), nil
}

// pushdownRequirementToChildren decides whether plan can meet req by passing
// it to its inputs. On success it returns the requirement for each child and
// the node to use in place of plan, which differs from plan only for a merge
// that now merges by req.
func pushdownRequirementToChildren(plan planner.PlanNode, req planner.LexRequirement) ([]planner.LexRequirement, planner.PlanNode, bool) {
	switch n := plan.(type) {
	case *planner.BoundedWindowAggNode, *planner.WindowAggNode:
		adjusted, ok := pushdownToWindow(plan, req)
		return adjusted, plan, ok
	case *planner.UnionNode:
		adjusted := make([]planner.LexRequirement, len(n.Inputs))
		for i := range adjusted {
			adjusted[i] = req
		}
		return adjusted, plan, true
	case *planner.SortMergeJoinNode:
		adjusted, ok := pushdownToJoin(n, req)
		return adjusted, plan, ok
	}

	maintains := plan.MaintainsInputOrder()
	if !anyTrue(maintains) {
		return nil, nil, false
	}
	switch plan.Kind() {
	case planner.RepartitionKind, planner.FilterKind, planner.ProjectionKind,
		planner.GlobalLimitKind, planner.LocalLimitKind, planner.HashJoinKind:
		return nil, nil, false
	}

	if spm, ok := plan.(*planner.SortPreservingMergeNode); ok {
		ordering := req.ToOrdering()
		if !plan.EquivalenceProperties().WithReorder(ordering).OrderingSatisfy(spm.Expr) {
			return nil, nil, false
		}
		return []planner.LexRequirement{req}, spm.WithExpr(ordering), true
	}

	adjusted := make([]planner.LexRequirement, len(maintains))
	for i, keep := range maintains {
		if keep && len(req) > 0 {
			adjusted[i] = req
		}
	}
	return adjusted, plan, true
}

// pushdownToWindow passes req below a window when it and the window's own
// requirement agree: the finer of the two goes to the input.
func pushdownToWindow(window planner.PlanNode, req planner.LexRequirement) ([]planner.LexRequirement, bool) {
	child := window.Children()[0]
	if !columnsWithin(req, len(child.OutputSchema())) {
		return nil, false
	}
	own := window.RequiredInputOrdering()[0]
	eq := child.EquivalenceProperties()
	switch {
	case eq.RequirementsCompatible(own, req):
		return []planner.LexRequirement{own}, true
	case eq.RequirementsCompatible(req, own):
		return []planner.LexRequirement{req}, true
	}
	return nil, false
}

type joinSide int

const (
	leftSide joinSide = iota
	rightSide
)

// pushdownToJoin passes req to the streamed input of a sort-merge join when
// every key of req is a column of that input and req refines the join keys
// of that side.
func pushdownToJoin(smj *planner.SortMergeJoinNode, req planner.LexRequirement) ([]planner.LexRequirement, bool) {
	leftLen := len(smj.Left.OutputSchema())
	side, ok := requirementSide(req, leftLen)
	if !ok {
		return nil, false
	}

	own := smj.RequiredInputOrdering()
	var pushed planner.LexRequirement
	var streamed planner.LexOrdering
	switch {
	case side == leftSide && (smj.JoinType == planner.InnerJoin || smj.JoinType == planner.LeftJoin):
		pushed = req
		if !smj.Left.EquivalenceProperties().RequirementsCompatible(pushed, own[0]) {
			return nil, false
		}
		streamed = smj.StreamedOrdering(pushed.ToOrdering(), smj.Right.OutputOrdering())
	case side == rightSide && smj.JoinType == planner.RightJoin:
		pushed = shiftRequirement(req, -leftLen)
		if !smj.Right.EquivalenceProperties().RequirementsCompatible(pushed, own[1]) {
			return nil, false
		}
		streamed = smj.StreamedOrdering(smj.Left.OutputOrdering(), pushed.ToOrdering())
	default:
		return nil, false
	}

	if !smj.EquivalenceProperties().WithReorder(streamed).OrderingSatisfyRequirement(req) {
		return nil, false
	}
	adjusted := append([]planner.LexRequirement(nil), own...)
	adjusted[side] = pushed
	return adjusted, true
}

// requirementSide reports which join input every key of req comes from.
// Keys that are not plain columns, or keys from both inputs, cannot be
// attributed.
func requirementSide(req planner.LexRequirement, leftLen int) (joinSide, bool) {
	if len(req) == 0 {
		return 0, false
	}
	sides := mapset.NewThreadUnsafeSet[joinSide]()
	for _, r := range req {
		col, ok := r.Expr.(*planner.BoundValueExpr)
		if !ok {
			return 0, false
		}
		if col.Index() < leftLen {
			sides.Add(leftSide)
		} else {
			sides.Add(rightSide)
		}
	}
	if sides.Cardinality() != 1 {
		return 0, false
	}
	side, _ := sides.Pop()
	return side, true
}

func shiftRequirement(req planner.LexRequirement, offset int) planner.LexRequirement {
	out := make(planner.LexRequirement, len(req))
	for i, r := range req {
		out[i] = planner.SortRequirement{Expr: planner.ShiftColumns(r.Expr, offset), Options: r.Options}
	}
	return out
}

// columnsWithin reports whether every column req refers to is below width.
func columnsWithin(req planner.LexRequirement, width int) bool {
	for _, r := range req {
		for _, col := range planner.CollectColumns(r.Expr) {
			if col.Index() >= width {
				return false
			}
		}
	}
	return true
}

func anyTrue(flags []bool) bool {
	for _, f := range flags {
		if f {
			return true
		}
	}
	return false
}
