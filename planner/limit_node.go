package planner

import (
	"fmt"

	"mit.edu/dsg/physopt/catalog"
)

// GlobalLimitNode skips Skip rows and then returns at most Fetch rows of its
// single input partition.
type GlobalLimitNode struct {
	Child PlanNode
	Skip  int
	Fetch *int
	planProperties
}

func NewGlobalLimitNode(child PlanNode, skip int, fetch *int) *GlobalLimitNode {
	return &GlobalLimitNode{
		Child:          child,
		Skip:           skip,
		Fetch:          fetch,
		planProperties: newPlanProperties(child.EquivalenceProperties(), child.OutputOrdering(), NewUnknownPartitioning(1), child.Unbounded()),
	}
}

func (n *GlobalLimitNode) Kind() NodeKind {
	return GlobalLimitKind
}

func (n *GlobalLimitNode) OutputSchema() catalog.Schema {
	return n.Child.OutputSchema()
}

func (n *GlobalLimitNode) Children() []PlanNode {
	return []PlanNode{n.Child}
}

func (n *GlobalLimitNode) RequiredInputOrdering() []LexRequirement {
	return noOrderingRequirement(1)
}

func (n *GlobalLimitNode) RequiredInputDistribution() []Distribution {
	return []Distribution{SinglePartition}
}

func (n *GlobalLimitNode) MaintainsInputOrder() []bool {
	return []bool{true}
}

func (n *GlobalLimitNode) WithNewChildren(children []PlanNode) (PlanNode, error) {
	if err := checkArity(GlobalLimitKind, children, 1); err != nil {
		return nil, err
	}
	return NewGlobalLimitNode(children[0], n.Skip, n.Fetch), nil
}

func (n *GlobalLimitNode) String() string {
	if n.Fetch == nil {
		return fmt.Sprintf("GlobalLimit: skip=%d, fetch=None", n.Skip)
	}
	return fmt.Sprintf("GlobalLimit: skip=%d, fetch=%d", n.Skip, *n.Fetch)
}

// LocalLimitNode returns at most Fetch rows from every input partition.
type LocalLimitNode struct {
	Child PlanNode
	Fetch int
	planProperties
}

func NewLocalLimitNode(child PlanNode, fetch int) *LocalLimitNode {
	return &LocalLimitNode{
		Child:          child,
		Fetch:          fetch,
		planProperties: newPlanProperties(child.EquivalenceProperties(), child.OutputOrdering(), child.OutputPartitioning(), child.Unbounded()),
	}
}

func (n *LocalLimitNode) Kind() NodeKind {
	return LocalLimitKind
}

func (n *LocalLimitNode) OutputSchema() catalog.Schema {
	return n.Child.OutputSchema()
}

func (n *LocalLimitNode) Children() []PlanNode {
	return []PlanNode{n.Child}
}

func (n *LocalLimitNode) RequiredInputOrdering() []LexRequirement {
	return noOrderingRequirement(1)
}

func (n *LocalLimitNode) RequiredInputDistribution() []Distribution {
	return unspecifiedDistribution(1)
}

func (n *LocalLimitNode) MaintainsInputOrder() []bool {
	return []bool{true}
}

func (n *LocalLimitNode) WithNewChildren(children []PlanNode) (PlanNode, error) {
	if err := checkArity(LocalLimitKind, children, 1); err != nil {
		return nil, err
	}
	return NewLocalLimitNode(children[0], n.Fetch), nil
}

func (n *LocalLimitNode) String() string {
	return fmt.Sprintf("LocalLimit: fetch=%d", n.Fetch)
}
