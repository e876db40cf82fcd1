package planner

import (
	"fmt"
	"strings"

	"mit.edu/dsg/physopt/catalog"
)

// SortNode sorts its input by Expr. A SortNode with PreservePartitioning sorts
// every partition independently; otherwise it produces a single, globally
// sorted partition and requires a single-partition input.
type SortNode struct {
	Child                PlanNode
	Expr                 LexOrdering
	Fetch                *int
	PreservePartitioning bool
	planProperties
}

func NewSortNode(child PlanNode, expr LexOrdering) *SortNode {
	return newSortNode(child, expr, nil, false)
}

func newSortNode(child PlanNode, expr LexOrdering, fetch *int, preserve bool) *SortNode {
	partitioning := NewUnknownPartitioning(1)
	if preserve {
		partitioning = child.OutputPartitioning()
	}
	eq := child.EquivalenceProperties().WithOrderings()
	return &SortNode{
		Child:                child,
		Expr:                 expr,
		Fetch:                fetch,
		PreservePartitioning: preserve,
		planProperties:       newPlanProperties(eq, expr, partitioning, child.Unbounded()),
	}
}

// WithFetch returns a copy that stops after fetch rows (nil for no limit).
func (n *SortNode) WithFetch(fetch *int) *SortNode {
	return newSortNode(n.Child, n.Expr, fetch, n.PreservePartitioning)
}

// WithPreservePartitioning returns a copy with partition-local sorting toggled.
func (n *SortNode) WithPreservePartitioning(preserve bool) *SortNode {
	return newSortNode(n.Child, n.Expr, n.Fetch, preserve)
}

func (n *SortNode) Kind() NodeKind {
	return SortKind
}

func (n *SortNode) OutputSchema() catalog.Schema {
	return n.Child.OutputSchema()
}

func (n *SortNode) Children() []PlanNode {
	return []PlanNode{n.Child}
}

func (n *SortNode) RequiredInputOrdering() []LexRequirement {
	return noOrderingRequirement(1)
}

func (n *SortNode) RequiredInputDistribution() []Distribution {
	if n.PreservePartitioning {
		return []Distribution{UnspecifiedDist}
	}
	return []Distribution{SinglePartition}
}

func (n *SortNode) MaintainsInputOrder() []bool {
	return []bool{false}
}

func (n *SortNode) WithNewChildren(children []PlanNode) (PlanNode, error) {
	if err := checkArity(SortKind, children, 1); err != nil {
		return nil, err
	}
	if err := checkSchema(SortKind, n.Child, children[0]); err != nil {
		return nil, err
	}
	return newSortNode(children[0], n.Expr, n.Fetch, n.PreservePartitioning), nil
}

func (n *SortNode) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sort: expr=%s", n.Expr)
	if n.Fetch != nil {
		fmt.Fprintf(&b, ", fetch=%d", *n.Fetch)
	}
	if n.PreservePartitioning {
		b.WriteString(", preserve_partitioning=true")
	}
	return b.String()
}

// SortPreservingMergeNode merges the already sorted partitions of its input
// into one partition sorted by Expr.
type SortPreservingMergeNode struct {
	Child PlanNode
	Expr  LexOrdering
	Fetch *int
	planProperties
}

func NewSortPreservingMergeNode(child PlanNode, expr LexOrdering) *SortPreservingMergeNode {
	return newSortPreservingMergeNode(child, expr, nil)
}

func newSortPreservingMergeNode(child PlanNode, expr LexOrdering, fetch *int) *SortPreservingMergeNode {
	// The merge only guarantees its own keys across partitions.
	eq := child.EquivalenceProperties().WithOrderings()
	return &SortPreservingMergeNode{
		Child:          child,
		Expr:           expr,
		Fetch:          fetch,
		planProperties: newPlanProperties(eq, expr, NewUnknownPartitioning(1), child.Unbounded()),
	}
}

// WithFetch returns a copy that stops after fetch rows (nil for no limit).
func (n *SortPreservingMergeNode) WithFetch(fetch *int) *SortPreservingMergeNode {
	return newSortPreservingMergeNode(n.Child, n.Expr, fetch)
}

// WithExpr returns a copy merging on a different key.
func (n *SortPreservingMergeNode) WithExpr(expr LexOrdering) *SortPreservingMergeNode {
	return newSortPreservingMergeNode(n.Child, expr, n.Fetch)
}

func (n *SortPreservingMergeNode) Kind() NodeKind {
	return SortPreservingMergeKind
}

func (n *SortPreservingMergeNode) OutputSchema() catalog.Schema {
	return n.Child.OutputSchema()
}

func (n *SortPreservingMergeNode) Children() []PlanNode {
	return []PlanNode{n.Child}
}

func (n *SortPreservingMergeNode) RequiredInputOrdering() []LexRequirement {
	return []LexRequirement{n.Expr.Requirement()}
}

func (n *SortPreservingMergeNode) RequiredInputDistribution() []Distribution {
	return []Distribution{UnspecifiedDist}
}

func (n *SortPreservingMergeNode) MaintainsInputOrder() []bool {
	return []bool{true}
}

func (n *SortPreservingMergeNode) WithNewChildren(children []PlanNode) (PlanNode, error) {
	if err := checkArity(SortPreservingMergeKind, children, 1); err != nil {
		return nil, err
	}
	if err := checkSchema(SortPreservingMergeKind, n.Child, children[0]); err != nil {
		return nil, err
	}
	return newSortPreservingMergeNode(children[0], n.Expr, n.Fetch), nil
}

func (n *SortPreservingMergeNode) String() string {
	if n.Fetch != nil {
		return fmt.Sprintf("SortPreservingMerge: %s, fetch=%d", n.Expr, *n.Fetch)
	}
	return fmt.Sprintf("SortPreservingMerge: %s", n.Expr)
}
