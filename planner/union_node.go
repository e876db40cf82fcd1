package planner

import (
	"mit.edu/dsg/physopt/catalog"
	"mit.edu/dsg/physopt/common"
)

// UnionNode concatenates the partitions of all inputs. Its output ordering is
// the longest ordering prefix every input shares.
type UnionNode struct {
	Inputs []PlanNode
	planProperties
}

func NewUnionNode(inputs []PlanNode) *UnionNode {
	common.Assert(len(inputs) > 0, "union needs at least one input")
	orderings := make([]LexOrdering, len(inputs))
	partitions := 0
	for i, in := range inputs {
		orderings[i] = in.OutputOrdering()
		partitions += in.OutputPartitioning().PartitionCount()
	}
	eq := NewEquivalenceProperties(inputs[0].OutputSchema())
	return &UnionNode{
		Inputs:         inputs,
		planProperties: newPlanProperties(eq, MeetOrderings(orderings), NewUnknownPartitioning(partitions), anyUnbounded(inputs...)),
	}
}

func (n *UnionNode) Kind() NodeKind {
	return UnionKind
}

func (n *UnionNode) OutputSchema() catalog.Schema {
	return n.Inputs[0].OutputSchema()
}

func (n *UnionNode) Children() []PlanNode {
	return n.Inputs
}

func (n *UnionNode) RequiredInputOrdering() []LexRequirement {
	return noOrderingRequirement(len(n.Inputs))
}

func (n *UnionNode) RequiredInputDistribution() []Distribution {
	return unspecifiedDistribution(len(n.Inputs))
}

// MaintainsInputOrder is true for the inputs whose whole ordering survives as
// the union's output ordering.
func (n *UnionNode) MaintainsInputOrder() []bool {
	out := make([]bool, len(n.Inputs))
	if n.ordering == nil {
		return out
	}
	for i, in := range n.Inputs {
		out[i] = len(in.OutputOrdering()) == len(n.ordering)
	}
	return out
}

func (n *UnionNode) WithNewChildren(children []PlanNode) (PlanNode, error) {
	if err := checkArity(UnionKind, children, len(n.Inputs)); err != nil {
		return nil, err
	}
	for i := range children {
		if err := checkSchema(UnionKind, n.Inputs[i], children[i]); err != nil {
			return nil, err
		}
	}
	return NewUnionNode(children), nil
}

func (n *UnionNode) String() string {
	return "Union"
}
