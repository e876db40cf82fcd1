package planner

import (
	"fmt"
	"strings"

	"mit.edu/dsg/physopt/catalog"
)

type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	FullJoin
)

func (j JoinType) String() string {
	switch j {
	case InnerJoin:
		return "Inner"
	case LeftJoin:
		return "Left"
	case RightJoin:
		return "Right"
	case FullJoin:
		return "Full"
	}
	return "???"
}

// JoinOn is one equi-join key pair. Left is bound to the left input's schema,
// Right to the right input's.
type JoinOn struct {
	Left  Expr
	Right Expr
}

func onString(on []JoinOn) string {
	parts := make([]string, len(on))
	for i, o := range on {
		parts[i] = fmt.Sprintf("(%s, %s)", o.Left, o.Right)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func joinSchema(left, right catalog.Schema, joinType JoinType) catalog.Schema {
	schema := make(catalog.Schema, 0, len(left)+len(right))
	for _, c := range left {
		if joinType == RightJoin || joinType == FullJoin {
			c.Nullable = true
		}
		schema = append(schema, c)
	}
	for _, c := range right {
		if joinType == LeftJoin || joinType == FullJoin {
			c.Nullable = true
		}
		schema = append(schema, c)
	}
	return schema
}

// joinEquivalence combines the properties of both inputs. Only the sides
// whose rows are never padded with NULLs keep their classes and constants.
func joinEquivalence(left, right PlanNode, joinType JoinType, on []JoinOn, schema catalog.Schema) *EquivalenceProperties {
	leftLen := len(left.OutputSchema())
	eq := NewEquivalenceProperties(schema)
	if joinType == InnerJoin || joinType == LeftJoin {
		eq.Merge(left.EquivalenceProperties())
	}
	if joinType == InnerJoin || joinType == RightJoin {
		eq.Merge(right.EquivalenceProperties().Shifted(leftLen, schema))
	}
	if joinType == InnerJoin {
		for _, o := range on {
			eq.AddEqualConditions(o.Left, ShiftColumns(o.Right, leftLen))
		}
	}
	return eq
}

func shiftPartitioning(p Partitioning, offset int) Partitioning {
	if p.Scheme != HashScheme {
		return p
	}
	exprs := make([]Expr, len(p.Exprs))
	for i, e := range p.Exprs {
		exprs[i] = ShiftColumns(e, offset)
	}
	return NewHashPartitioning(exprs, p.Count)
}

type PartitionMode int

const (
	// PartitionedMode hash-partitions both inputs on the join keys.
	PartitionedMode PartitionMode = iota
	// CollectLeftMode builds one hash table from the whole left input.
	CollectLeftMode
)

func (m PartitionMode) String() string {
	if m == CollectLeftMode {
		return "CollectLeft"
	}
	return "Partitioned"
}

// HashJoinNode builds a hash table from the left input and probes it with
// the right input, so the output follows the right input's order for join
// types that emit rows while probing.
type HashJoinNode struct {
	Left     PlanNode
	Right    PlanNode
	On       []JoinOn
	JoinType JoinType
	Mode     PartitionMode
	schema   catalog.Schema
	planProperties
}

func NewHashJoinNode(left, right PlanNode, on []JoinOn, joinType JoinType, mode PartitionMode) *HashJoinNode {
	n := &HashJoinNode{
		Left:     left,
		Right:    right,
		On:       on,
		JoinType: joinType,
		Mode:     mode,
		schema:   joinSchema(left.OutputSchema(), right.OutputSchema(), joinType),
	}
	leftLen := len(left.OutputSchema())
	var ordering LexOrdering
	partitioning := NewUnknownPartitioning(right.OutputPartitioning().PartitionCount())
	if n.probeOrderKept() {
		ordering = ShiftOrdering(right.OutputOrdering(), leftLen)
		partitioning = shiftPartitioning(right.OutputPartitioning(), leftLen)
	}
	eq := joinEquivalence(left, right, joinType, on, n.schema)
	n.planProperties = newPlanProperties(eq, ordering, partitioning, anyUnbounded(left, right))
	return n
}

func (n *HashJoinNode) probeOrderKept() bool {
	return n.JoinType == InnerJoin || n.JoinType == RightJoin
}

func (n *HashJoinNode) Kind() NodeKind {
	return HashJoinKind
}

func (n *HashJoinNode) OutputSchema() catalog.Schema {
	return n.schema
}

func (n *HashJoinNode) Children() []PlanNode {
	return []PlanNode{n.Left, n.Right}
}

func (n *HashJoinNode) RequiredInputOrdering() []LexRequirement {
	return noOrderingRequirement(2)
}

func (n *HashJoinNode) RequiredInputDistribution() []Distribution {
	if n.Mode == CollectLeftMode {
		return []Distribution{SinglePartition, UnspecifiedDist}
	}
	leftKeys := make([]Expr, len(n.On))
	rightKeys := make([]Expr, len(n.On))
	for i, o := range n.On {
		leftKeys[i], rightKeys[i] = o.Left, o.Right
	}
	return []Distribution{HashPartitioned(leftKeys), HashPartitioned(rightKeys)}
}

func (n *HashJoinNode) MaintainsInputOrder() []bool {
	return []bool{false, n.probeOrderKept()}
}

func (n *HashJoinNode) WithNewChildren(children []PlanNode) (PlanNode, error) {
	if err := checkArity(HashJoinKind, children, 2); err != nil {
		return nil, err
	}
	if err := checkSchema(HashJoinKind, n.Left, children[0]); err != nil {
		return nil, err
	}
	if err := checkSchema(HashJoinKind, n.Right, children[1]); err != nil {
		return nil, err
	}
	return NewHashJoinNode(children[0], children[1], n.On, n.JoinType, n.Mode), nil
}

func (n *HashJoinNode) String() string {
	return fmt.Sprintf("HashJoin: mode=%s, join_type=%s, on=%s", n.Mode, n.JoinType, onString(n.On))
}

// SortMergeJoinNode merges two inputs sorted on their join keys. The side it
// streams (left for Inner and Left joins, right for Right joins) keeps its
// order in the output.
type SortMergeJoinNode struct {
	Left        PlanNode
	Right       PlanNode
	On          []JoinOn
	JoinType    JoinType
	SortOptions []SortOptions // one per key; defaults to ASC NULLS FIRST
	schema      catalog.Schema
	planProperties
}

func NewSortMergeJoinNode(left, right PlanNode, on []JoinOn, joinType JoinType) *SortMergeJoinNode {
	return NewSortMergeJoinNodeWithOptions(left, right, on, joinType, make([]SortOptions, len(on)))
}

func NewSortMergeJoinNodeWithOptions(left, right PlanNode, on []JoinOn, joinType JoinType, options []SortOptions) *SortMergeJoinNode {
	n := &SortMergeJoinNode{
		Left:        left,
		Right:       right,
		On:          on,
		JoinType:    joinType,
		SortOptions: options,
		schema:      joinSchema(left.OutputSchema(), right.OutputSchema(), joinType),
	}
	leftLen := len(left.OutputSchema())
	var ordering LexOrdering
	var partitioning Partitioning
	switch joinType {
	case InnerJoin, LeftJoin:
		ordering = left.OutputOrdering()
		partitioning = left.OutputPartitioning()
	case RightJoin:
		ordering = ShiftOrdering(right.OutputOrdering(), leftLen)
		partitioning = shiftPartitioning(right.OutputPartitioning(), leftLen)
	default:
		partitioning = NewUnknownPartitioning(left.OutputPartitioning().PartitionCount())
	}
	eq := joinEquivalence(left, right, joinType, on, n.schema)
	n.planProperties = newPlanProperties(eq, ordering, partitioning, anyUnbounded(left, right))
	return n
}

// StreamedOrdering computes the output ordering the join would have if its
// inputs were sorted by leftOrdering and rightOrdering.
func (n *SortMergeJoinNode) StreamedOrdering(leftOrdering, rightOrdering LexOrdering) LexOrdering {
	switch n.JoinType {
	case InnerJoin, LeftJoin:
		return leftOrdering
	case RightJoin:
		return ShiftOrdering(rightOrdering, len(n.Left.OutputSchema()))
	}
	return nil
}

func (n *SortMergeJoinNode) keyOrdering(right bool) LexRequirement {
	ordering := make(LexOrdering, len(n.On))
	for i, o := range n.On {
		key := o.Left
		if right {
			key = o.Right
		}
		ordering[i] = SortExpr{Expr: key, Options: n.SortOptions[i]}
	}
	return ordering.Requirement()
}

func (n *SortMergeJoinNode) Kind() NodeKind {
	return SortMergeJoinKind
}

func (n *SortMergeJoinNode) OutputSchema() catalog.Schema {
	return n.schema
}

func (n *SortMergeJoinNode) Children() []PlanNode {
	return []PlanNode{n.Left, n.Right}
}

func (n *SortMergeJoinNode) RequiredInputOrdering() []LexRequirement {
	return []LexRequirement{n.keyOrdering(false), n.keyOrdering(true)}
}

func (n *SortMergeJoinNode) RequiredInputDistribution() []Distribution {
	leftKeys := make([]Expr, len(n.On))
	rightKeys := make([]Expr, len(n.On))
	for i, o := range n.On {
		leftKeys[i], rightKeys[i] = o.Left, o.Right
	}
	return []Distribution{HashPartitioned(leftKeys), HashPartitioned(rightKeys)}
}

func (n *SortMergeJoinNode) MaintainsInputOrder() []bool {
	switch n.JoinType {
	case InnerJoin, LeftJoin:
		return []bool{true, false}
	case RightJoin:
		return []bool{false, true}
	}
	return []bool{false, false}
}

func (n *SortMergeJoinNode) WithNewChildren(children []PlanNode) (PlanNode, error) {
	if err := checkArity(SortMergeJoinKind, children, 2); err != nil {
		return nil, err
	}
	if err := checkSchema(SortMergeJoinKind, n.Left, children[0]); err != nil {
		return nil, err
	}
	if err := checkSchema(SortMergeJoinKind, n.Right, children[1]); err != nil {
		return nil, err
	}
	return NewSortMergeJoinNodeWithOptions(children[0], children[1], n.On, n.JoinType, n.SortOptions), nil
}

func (n *SortMergeJoinNode) String() string {
	return fmt.Sprintf("SortMergeJoin: join_type=%s, on=%s", n.JoinType, onString(n.On))
}
