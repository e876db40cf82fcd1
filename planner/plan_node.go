package planner

import (
	"mit.edu/dsg/physopt/catalog"
	"mit.edu/dsg/physopt/common"
)

// NodeKind identifies the operator a PlanNode implements. Rewrites switch on
// the kind instead of type-asserting whenever only the kind matters.
type NodeKind int

const (
	SortKind NodeKind = iota
	SortPreservingMergeKind
	CoalescePartitionsKind
	CoalesceBatchesKind
	RepartitionKind
	GlobalLimitKind
	LocalLimitKind
	UnionKind
	FilterKind
	ProjectionKind
	HashJoinKind
	SortMergeJoinKind
	AggregateKind
	BoundedWindowAggKind
	WindowAggKind
	MemoryScanKind
	ParquetScanKind
	CsvScanKind
)

func (k NodeKind) String() string {
	switch k {
	case SortKind:
		return "Sort"
	case SortPreservingMergeKind:
		return "SortPreservingMerge"
	case CoalescePartitionsKind:
		return "CoalescePartitions"
	case CoalesceBatchesKind:
		return "CoalesceBatches"
	case RepartitionKind:
		return "Repartition"
	case GlobalLimitKind:
		return "GlobalLimit"
	case LocalLimitKind:
		return "LocalLimit"
	case UnionKind:
		return "Union"
	case FilterKind:
		return "Filter"
	case ProjectionKind:
		return "Projection"
	case HashJoinKind:
		return "HashJoin"
	case SortMergeJoinKind:
		return "SortMergeJoin"
	case AggregateKind:
		return "Aggregate"
	case BoundedWindowAggKind:
		return "BoundedWindowAgg"
	case WindowAggKind:
		return "WindowAgg"
	case MemoryScanKind:
		return "MemoryScan"
	case ParquetScanKind:
		return "ParquetScan"
	case CsvScanKind:
		return "CsvScan"
	}
	return "unknown"
}

// PlanNode represents the static structure of a physical query plan.
// It is immutable: every property is a pure function of the operator's kind,
// its parameters and its children, and rewrites produce new nodes instead of
// editing existing ones. Unchanged subtrees are shared between the old and
// the new plan.
type PlanNode interface {
	// Kind identifies the operator.
	Kind() NodeKind

	// OutputSchema returns the schema of the tuples produced by this node.
	OutputSchema() catalog.Schema

	// Children returns the child plan nodes.
	Children() []PlanNode

	// OutputOrdering returns the ordering every output partition is sorted
	// by, or nil.
	OutputOrdering() LexOrdering

	// OutputPartitioning describes the output partitions.
	OutputPartitioning() Partitioning

	// EquivalenceProperties answers ordering questions about the output.
	EquivalenceProperties() *EquivalenceProperties

	// RequiredInputOrdering returns, per child, the ordering this node needs
	// from that child (nil for none).
	RequiredInputOrdering() []LexRequirement

	// RequiredInputDistribution returns, per child, the partitioning this
	// node needs from that child.
	RequiredInputDistribution() []Distribution

	// MaintainsInputOrder reports, per child, whether rows leave this node in
	// the order they arrived from that child.
	MaintainsInputOrder() []bool

	// Unbounded reports whether the node produces an infinite stream.
	Unbounded() bool

	// WithNewChildren rebuilds the node with the same parameters over new
	// children. It fails with ReconstructionError when the children are not
	// compatible with the node.
	WithNewChildren(children []PlanNode) (PlanNode, error)

	// String returns a one-line description of the node.
	String() string
}

// planProperties caches the derived output properties of a node. Nodes are
// immutable, so these are computed once in the constructor.
type planProperties struct {
	ordering     LexOrdering
	partitioning Partitioning
	eqProps      *EquivalenceProperties
	unbounded    bool
}

func newPlanProperties(eq *EquivalenceProperties, ordering LexOrdering, partitioning Partitioning, unbounded bool) planProperties {
	eq = eq.WithOrderings(append([]LexOrdering{ordering}, eq.Orderings()...)...)
	return planProperties{
		ordering:     ordering,
		partitioning: partitioning,
		eqProps:      dedupOrderings(eq),
		unbounded:    unbounded,
	}
}

func dedupOrderings(eq *EquivalenceProperties) *EquivalenceProperties {
	var kept []LexOrdering
	for _, o := range eq.orderings {
		dup := false
		for _, k := range kept {
			if k.Equal(o) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, o)
		}
	}
	eq.orderings = kept
	return eq
}

func (p *planProperties) OutputOrdering() LexOrdering {
	return p.ordering
}

func (p *planProperties) OutputPartitioning() Partitioning {
	return p.partitioning
}

func (p *planProperties) EquivalenceProperties() *EquivalenceProperties {
	return p.eqProps
}

func (p *planProperties) Unbounded() bool {
	return p.unbounded
}

func anyUnbounded(children ...PlanNode) bool {
	for _, c := range children {
		if c.Unbounded() {
			return true
		}
	}
	return false
}

func checkArity(kind NodeKind, children []PlanNode, want int) error {
	if len(children) != want {
		return common.NewPlanError(common.ReconstructionError,
			"%s expects %d children, got %d", kind, want, len(children))
	}
	return nil
}

// checkSchema fails when a new child does not produce the schema the node's
// expressions were bound against.
func checkSchema(kind NodeKind, old, replacement PlanNode) error {
	if !old.OutputSchema().Equal(replacement.OutputSchema()) {
		return common.NewPlanError(common.ReconstructionError,
			"%s cannot be rebuilt: child schema %s does not match %s",
			kind, replacement.OutputSchema(), old.OutputSchema())
	}
	return nil
}

// WithNewChildrenIfNecessary rebuilds node only if some child differs from the
// current one, so untouched subtrees keep their identity.
func WithNewChildrenIfNecessary(node PlanNode, children []PlanNode) (PlanNode, error) {
	old := node.Children()
	if len(old) == len(children) {
		same := true
		for i := range old {
			if old[i] != children[i] {
				same = false
				break
			}
		}
		if same {
			return node, nil
		}
	}
	return node.WithNewChildren(children)
}

func noOrderingRequirement(n int) []LexRequirement {
	return make([]LexRequirement, n)
}

func unspecifiedDistribution(n int) []Distribution {
	out := make([]Distribution, n)
	for i := range out {
		out[i] = UnspecifiedDist
	}
	return out
}
