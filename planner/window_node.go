package planner

import (
	"fmt"
	"strings"

	"mit.edu/dsg/physopt/catalog"
)

// windowBase holds what the bounded and unbounded window operators share.
// Both append one column per window expression to their input and emit rows
// in input order.
type windowBase struct {
	Child         PlanNode
	WindowExprs   []WindowExpr
	PartitionKeys []Expr
	schema        catalog.Schema
	planProperties
}

func newWindowBase(child PlanNode, exprs []WindowExpr, partitionKeys []Expr) windowBase {
	schema := append(catalog.Schema(nil), child.OutputSchema()...)
	for _, w := range exprs {
		schema = append(schema, catalog.Column{Name: w.Name(), Type: w.resultType(), Nullable: true})
	}
	eq := child.EquivalenceProperties().WithSchema(schema)
	return windowBase{
		Child:          child,
		WindowExprs:    exprs,
		PartitionKeys:  partitionKeys,
		schema:         schema,
		planProperties: newPlanProperties(eq, child.OutputOrdering(), child.OutputPartitioning(), child.Unbounded()),
	}
}

func (n *windowBase) OutputSchema() catalog.Schema {
	return n.schema
}

func (n *windowBase) Children() []PlanNode {
	return []PlanNode{n.Child}
}

func (n *windowBase) RequiredInputOrdering() []LexRequirement {
	return []LexRequirement{WindowRequirement(n.WindowExprs)}
}

func (n *windowBase) RequiredInputDistribution() []Distribution {
	if len(n.PartitionKeys) == 0 {
		return []Distribution{SinglePartition}
	}
	return []Distribution{HashPartitioned(n.PartitionKeys)}
}

func (n *windowBase) MaintainsInputOrder() []bool {
	return []bool{true}
}

func (n *windowBase) exprsString() string {
	parts := make([]string, len(n.WindowExprs))
	for i, w := range n.WindowExprs {
		parts[i] = w.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// AllBounded reports whether every expression supports bounded-memory
// evaluation.
func AllBounded(exprs []WindowExpr) bool {
	for _, w := range exprs {
		if !w.UsesBoundedMemory() {
			return false
		}
	}
	return true
}

// BoundedWindowAggNode evaluates window functions over input already sorted
// by the window's requirement, holding only the rows its frames need.
type BoundedWindowAggNode struct {
	windowBase
}

func NewBoundedWindowAggNode(child PlanNode, exprs []WindowExpr, partitionKeys []Expr) *BoundedWindowAggNode {
	return &BoundedWindowAggNode{windowBase: newWindowBase(child, exprs, partitionKeys)}
}

func (n *BoundedWindowAggNode) Kind() NodeKind {
	return BoundedWindowAggKind
}

func (n *BoundedWindowAggNode) WithNewChildren(children []PlanNode) (PlanNode, error) {
	if err := checkArity(BoundedWindowAggKind, children, 1); err != nil {
		return nil, err
	}
	if err := checkSchema(BoundedWindowAggKind, n.Child, children[0]); err != nil {
		return nil, err
	}
	return NewBoundedWindowAggNode(children[0], n.WindowExprs, n.PartitionKeys), nil
}

func (n *BoundedWindowAggNode) String() string {
	return fmt.Sprintf("BoundedWindowAgg: wdw=%s, mode=Sorted", n.exprsString())
}

// WindowAggNode evaluates window functions by buffering each partition.
type WindowAggNode struct {
	windowBase
}

func NewWindowAggNode(child PlanNode, exprs []WindowExpr, partitionKeys []Expr) *WindowAggNode {
	return &WindowAggNode{windowBase: newWindowBase(child, exprs, partitionKeys)}
}

func (n *WindowAggNode) Kind() NodeKind {
	return WindowAggKind
}

func (n *WindowAggNode) WithNewChildren(children []PlanNode) (PlanNode, error) {
	if err := checkArity(WindowAggKind, children, 1); err != nil {
		return nil, err
	}
	if err := checkSchema(WindowAggKind, n.Child, children[0]); err != nil {
		return nil, err
	}
	return NewWindowAggNode(children[0], n.WindowExprs, n.PartitionKeys), nil
}

func (n *WindowAggNode) String() string {
	return fmt.Sprintf("WindowAgg: wdw=%s", n.exprsString())
}
