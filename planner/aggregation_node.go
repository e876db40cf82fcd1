package planner

import (
	"fmt"
	"strings"

	"mit.edu/dsg/physopt/catalog"
	"mit.edu/dsg/physopt/common"
)

type AggregatorType int

const (
	AggCount AggregatorType = iota
	AggSum
	AggMin
	AggMax
)

func (a AggregatorType) String() string {
	switch a {
	case AggCount:
		return "count"
	case AggSum:
		return "sum"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	}
	return "???"
}

type AggregateClause struct {
	Type AggregatorType
	Expr Expr
}

func (a AggregateClause) String() string {
	return fmt.Sprintf("%s(%s)", a.Type, a.Expr)
}

// AggregateMode is the stage of a two-phase aggregation.
type AggregateMode int

const (
	// AggPartial computes partial states per input partition.
	AggPartial AggregateMode = iota
	// AggFinal merges partial states from a single partition.
	AggFinal
	// AggFinalPartitioned merges partial states hash-partitioned on the group keys.
	AggFinalPartitioned
	// AggSingle aggregates raw input in one step from a single partition.
	AggSingle
)

func (m AggregateMode) String() string {
	switch m {
	case AggPartial:
		return "Partial"
	case AggFinal:
		return "Final"
	case AggFinalPartitioned:
		return "FinalPartitioned"
	case AggSingle:
		return "Single"
	}
	return "???"
}

// AggregateNode represents a group-by and aggregation operation.
type AggregateNode struct {
	Child         PlanNode
	Mode          AggregateMode
	GroupByClause []Expr
	AggClauses    []AggregateClause
	outputSchema  catalog.Schema
	planProperties
}

func NewAggregateNode(child PlanNode, mode AggregateMode, groupBy []Expr, aggregates []AggregateClause) *AggregateNode {
	outputSchema := make(catalog.Schema, len(groupBy)+len(aggregates))
	for i, expr := range groupBy {
		outputSchema[i] = catalog.Column{Name: expr.String(), Type: expr.OutputType(), Nullable: true}
	}
	for i, agg := range aggregates {
		outputSchema[len(groupBy)+i] = catalog.Column{Name: agg.String(), Type: common.IntType, Nullable: true}
	}

	partitions := child.OutputPartitioning().PartitionCount()
	return &AggregateNode{
		Child:          child,
		Mode:           mode,
		GroupByClause:  groupBy,
		AggClauses:     aggregates,
		outputSchema:   outputSchema,
		planProperties: newPlanProperties(NewEquivalenceProperties(outputSchema), nil, NewUnknownPartitioning(partitions), child.Unbounded()),
	}
}

func (n *AggregateNode) Kind() NodeKind {
	return AggregateKind
}

func (n *AggregateNode) OutputSchema() catalog.Schema {
	return n.outputSchema
}

func (n *AggregateNode) Children() []PlanNode {
	return []PlanNode{n.Child}
}

func (n *AggregateNode) RequiredInputOrdering() []LexRequirement {
	return noOrderingRequirement(1)
}

func (n *AggregateNode) RequiredInputDistribution() []Distribution {
	switch n.Mode {
	case AggFinal, AggSingle:
		return []Distribution{SinglePartition}
	case AggFinalPartitioned:
		return []Distribution{HashPartitioned(n.GroupByClause)}
	}
	return []Distribution{UnspecifiedDist}
}

func (n *AggregateNode) MaintainsInputOrder() []bool {
	return []bool{false}
}

func (n *AggregateNode) WithNewChildren(children []PlanNode) (PlanNode, error) {
	if err := checkArity(AggregateKind, children, 1); err != nil {
		return nil, err
	}
	if err := checkSchema(AggregateKind, n.Child, children[0]); err != nil {
		return nil, err
	}
	return NewAggregateNode(children[0], n.Mode, n.GroupByClause, n.AggClauses), nil
}

func (n *AggregateNode) String() string {
	aggs := make([]string, len(n.AggClauses))
	for i, a := range n.AggClauses {
		aggs[i] = a.String()
	}
	return fmt.Sprintf("Aggregate: mode=%s, gby=%s, aggr=[%s]", n.Mode, exprList(n.GroupByClause), strings.Join(aggs, ", "))
}
