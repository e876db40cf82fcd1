package planner

import (
	"fmt"

	"mit.edu/dsg/physopt/catalog"
)

// FilterNode filters tuples from its child based on a predicate.
// Equality conjuncts of the predicate refine the equivalence properties:
// column = column joins two equivalence classes, column = literal marks the
// column constant.
type FilterNode struct {
	Child     PlanNode
	Predicate Expr
	planProperties
}

func NewFilterNode(child PlanNode, predicate Expr) *FilterNode {
	eq := child.EquivalenceProperties().Clone()
	for _, conjunct := range SplitConjunction(predicate) {
		cmp, ok := conjunct.(*ComparisonExpression)
		if !ok || cmp.CompType() != Equal {
			continue
		}
		_, leftConst := cmp.Left().(*ConstantValueExpr)
		_, rightConst := cmp.Right().(*ConstantValueExpr)
		switch {
		case leftConst && !rightConst:
			eq.AddConstants(cmp.Right())
		case rightConst && !leftConst:
			eq.AddConstants(cmp.Left())
		case !leftConst && !rightConst:
			eq.AddEqualConditions(cmp.Left(), cmp.Right())
		}
	}
	return &FilterNode{
		Child:          child,
		Predicate:      predicate,
		planProperties: newPlanProperties(eq, child.OutputOrdering(), child.OutputPartitioning(), child.Unbounded()),
	}
}

func (n *FilterNode) Kind() NodeKind {
	return FilterKind
}

func (n *FilterNode) OutputSchema() catalog.Schema {
	return n.Child.OutputSchema()
}

func (n *FilterNode) Children() []PlanNode {
	return []PlanNode{n.Child}
}

func (n *FilterNode) RequiredInputOrdering() []LexRequirement {
	return noOrderingRequirement(1)
}

func (n *FilterNode) RequiredInputDistribution() []Distribution {
	return unspecifiedDistribution(1)
}

func (n *FilterNode) MaintainsInputOrder() []bool {
	return []bool{true}
}

func (n *FilterNode) WithNewChildren(children []PlanNode) (PlanNode, error) {
	if err := checkArity(FilterKind, children, 1); err != nil {
		return nil, err
	}
	if err := checkSchema(FilterKind, n.Child, children[0]); err != nil {
		return nil, err
	}
	return NewFilterNode(children[0], n.Predicate), nil
}

func (n *FilterNode) String() string {
	return fmt.Sprintf("Filter: %s", n.Predicate.String())
}
