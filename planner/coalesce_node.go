package planner

import (
	"fmt"

	"mit.edu/dsg/physopt/catalog"
)

// CoalescePartitionsNode merges all input partitions into one, in no
// particular order.
type CoalescePartitionsNode struct {
	Child PlanNode
	planProperties
}

func NewCoalescePartitionsNode(child PlanNode) *CoalescePartitionsNode {
	return &CoalescePartitionsNode{
		Child:          child,
		planProperties: newPlanProperties(child.EquivalenceProperties().WithOrderings(), nil, NewUnknownPartitioning(1), child.Unbounded()),
	}
}

func (n *CoalescePartitionsNode) Kind() NodeKind {
	return CoalescePartitionsKind
}

func (n *CoalescePartitionsNode) OutputSchema() catalog.Schema {
	return n.Child.OutputSchema()
}

func (n *CoalescePartitionsNode) Children() []PlanNode {
	return []PlanNode{n.Child}
}

func (n *CoalescePartitionsNode) RequiredInputOrdering() []LexRequirement {
	return noOrderingRequirement(1)
}

func (n *CoalescePartitionsNode) RequiredInputDistribution() []Distribution {
	return unspecifiedDistribution(1)
}

func (n *CoalescePartitionsNode) MaintainsInputOrder() []bool {
	return []bool{false}
}

func (n *CoalescePartitionsNode) WithNewChildren(children []PlanNode) (PlanNode, error) {
	if err := checkArity(CoalescePartitionsKind, children, 1); err != nil {
		return nil, err
	}
	return NewCoalescePartitionsNode(children[0]), nil
}

func (n *CoalescePartitionsNode) String() string {
	return "CoalescePartitions"
}

// CoalesceBatchesNode concatenates small batches up to TargetBatchSize rows.
// It changes neither order nor partitioning.
type CoalesceBatchesNode struct {
	Child           PlanNode
	TargetBatchSize int
	planProperties
}

func NewCoalesceBatchesNode(child PlanNode, targetBatchSize int) *CoalesceBatchesNode {
	return &CoalesceBatchesNode{
		Child:           child,
		TargetBatchSize: targetBatchSize,
		planProperties:  newPlanProperties(child.EquivalenceProperties(), child.OutputOrdering(), child.OutputPartitioning(), child.Unbounded()),
	}
}

func (n *CoalesceBatchesNode) Kind() NodeKind {
	return CoalesceBatchesKind
}

func (n *CoalesceBatchesNode) OutputSchema() catalog.Schema {
	return n.Child.OutputSchema()
}

func (n *CoalesceBatchesNode) Children() []PlanNode {
	return []PlanNode{n.Child}
}

func (n *CoalesceBatchesNode) RequiredInputOrdering() []LexRequirement {
	return noOrderingRequirement(1)
}

func (n *CoalesceBatchesNode) RequiredInputDistribution() []Distribution {
	return unspecifiedDistribution(1)
}

func (n *CoalesceBatchesNode) MaintainsInputOrder() []bool {
	return []bool{true}
}

func (n *CoalesceBatchesNode) WithNewChildren(children []PlanNode) (PlanNode, error) {
	if err := checkArity(CoalesceBatchesKind, children, 1); err != nil {
		return nil, err
	}
	return NewCoalesceBatchesNode(children[0], n.TargetBatchSize), nil
}

func (n *CoalesceBatchesNode) String() string {
	return fmt.Sprintf("CoalesceBatches: target_batch_size=%d", n.TargetBatchSize)
}
