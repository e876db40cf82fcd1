package planner

import (
	"fmt"

	"mit.edu/dsg/physopt/catalog"
)

// RepartitionNode redistributes its input into Partitioning. With
// PreserveOrder set it merges the sorted input partitions feeding each output
// partition, so every output partition keeps the input ordering.
type RepartitionNode struct {
	Child         PlanNode
	Partitioning  Partitioning
	PreserveOrder bool
	planProperties
}

func NewRepartitionNode(child PlanNode, partitioning Partitioning) *RepartitionNode {
	return newRepartitionNode(child, partitioning, false)
}

func newRepartitionNode(child PlanNode, partitioning Partitioning, preserveOrder bool) *RepartitionNode {
	n := &RepartitionNode{
		Child:         child,
		Partitioning:  partitioning,
		PreserveOrder: preserveOrder,
	}
	eq := child.EquivalenceProperties()
	var ordering LexOrdering
	if n.maintainsOrder() {
		ordering = child.OutputOrdering()
	} else {
		eq = eq.WithOrderings()
	}
	n.planProperties = newPlanProperties(eq, ordering, partitioning, child.Unbounded())
	return n
}

// WithPreserveOrder returns the order-preserving variant. The flag only sticks
// when there is an ordering to preserve and more than one input partition;
// otherwise the plain variant already keeps the order.
func (n *RepartitionNode) WithPreserveOrder() *RepartitionNode {
	preserve := n.Child.OutputOrdering() != nil && n.Child.OutputPartitioning().PartitionCount() > 1
	return newRepartitionNode(n.Child, n.Partitioning, preserve)
}

// WithoutPreserveOrder returns the plain variant.
func (n *RepartitionNode) WithoutPreserveOrder() *RepartitionNode {
	return newRepartitionNode(n.Child, n.Partitioning, false)
}

func (n *RepartitionNode) maintainsOrder() bool {
	return n.PreserveOrder || n.Child.OutputPartitioning().PartitionCount() <= 1
}

func (n *RepartitionNode) Kind() NodeKind {
	return RepartitionKind
}

func (n *RepartitionNode) OutputSchema() catalog.Schema {
	return n.Child.OutputSchema()
}

func (n *RepartitionNode) Children() []PlanNode {
	return []PlanNode{n.Child}
}

func (n *RepartitionNode) RequiredInputOrdering() []LexRequirement {
	return noOrderingRequirement(1)
}

func (n *RepartitionNode) RequiredInputDistribution() []Distribution {
	return unspecifiedDistribution(1)
}

func (n *RepartitionNode) MaintainsInputOrder() []bool {
	return []bool{n.maintainsOrder()}
}

func (n *RepartitionNode) WithNewChildren(children []PlanNode) (PlanNode, error) {
	if err := checkArity(RepartitionKind, children, 1); err != nil {
		return nil, err
	}
	if n.Partitioning.Scheme == HashScheme {
		if err := checkSchema(RepartitionKind, n.Child, children[0]); err != nil {
			return nil, err
		}
	}
	rebuilt := newRepartitionNode(children[0], n.Partitioning, false)
	if n.PreserveOrder {
		rebuilt = rebuilt.WithPreserveOrder()
	}
	return rebuilt, nil
}

func (n *RepartitionNode) String() string {
	inputPartitions := n.Child.OutputPartitioning().PartitionCount()
	if n.PreserveOrder {
		return fmt.Sprintf("SortPreservingRepartition: partitioning=%s, input_partitions=%d, sort_exprs=%s",
			n.Partitioning, inputPartitions, n.Child.OutputOrdering())
	}
	return fmt.Sprintf("Repartition: partitioning=%s, input_partitions=%d", n.Partitioning, inputPartitions)
}
