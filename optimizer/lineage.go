package optimizer

import (
	"fmt"
	"strings"

	"mit.edu/dsg/physopt/planner"
)

// LineageTree records, for one child slot of a plan node, the chain of
// operators that connects the slot to the operators a pass tracks (sorts,
// coalesces, or order-breaking exchanges). Leaves are always tracked
// operators. A nil *LineageTree means nothing tracked reaches the slot.
//
// Lineage trees are rebuilt from the children at every rewrite step and never
// modified afterwards.
type LineageTree struct {
	// Plan is the operator at this point of the chain.
	Plan planner.PlanNode
	// Idx is the slot of Plan within its parent.
	Idx int
	// Children continue the chain below Plan; empty at a leaf.
	Children []*LineageTree
}

func newLineageLeaf(plan planner.PlanNode, idx int) *LineageTree {
	return &LineageTree{Plan: plan, Idx: idx}
}

// newLineageNode returns a chain node over children, or nil if no child
// carries a lineage.
func newLineageNode(plan planner.PlanNode, idx int, children []*LineageTree) *LineageTree {
	var kept []*LineageTree
	for _, c := range children {
		if c != nil {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return &LineageTree{Plan: plan, Idx: idx, Children: kept}
}

func (l *LineageTree) IsLeaf() bool {
	return len(l.Children) == 0
}

// SlotLineages spreads the children of l over the n child slots of l.Plan.
// Used when a node is replaced by l.Plan and needs per-slot lineages again.
func (l *LineageTree) SlotLineages(n int) []*LineageTree {
	out := make([]*LineageTree, n)
	if l == nil {
		return out
	}
	for _, c := range l.Children {
		if c.Idx < n {
			out[c.Idx] = c
		}
	}
	return out
}

// Leaves returns the tracked operators at the bottom of the chain.
func (l *LineageTree) Leaves() []planner.PlanNode {
	if l == nil {
		return nil
	}
	if l.IsLeaf() {
		return []planner.PlanNode{l.Plan}
	}
	var out []planner.PlanNode
	for _, c := range l.Children {
		out = append(out, c.Leaves()...)
	}
	return out
}

func (l *LineageTree) String() string {
	var b strings.Builder
	l.write(&b, 0)
	return strings.TrimRight(b.String(), "\n")
}

func (l *LineageTree) write(b *strings.Builder, depth int) {
	fmt.Fprintf(b, "%s[%d] %s\n", strings.Repeat("  ", depth), l.Idx, l.Plan)
	for _, c := range l.Children {
		c.write(b, depth+1)
	}
}

func emptyLineages(n int) []*LineageTree {
	return make([]*LineageTree, n)
}
