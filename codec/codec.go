// Package codec reads and writes physical plans as YAML documents.
//
// A document is a tree of nodes, each naming its operator kind and carrying
// the operator's parameters. Column references are written with both name and
// position; hand-written documents may give only the name, which is then
// resolved against the child's output schema.
//
// Scans may omit their columns, in which case the table is looked up in the
// catalog and the scan is built from the table's layout.
package codec

import (
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"mit.edu/dsg/physopt/catalog"
	"mit.edu/dsg/physopt/common"
	"mit.edu/dsg/physopt/planner"
)

type nodeDoc struct {
	Kind     string     `yaml:"kind"`
	Children []*nodeDoc `yaml:"children,omitempty"`

	// scans
	Table           string           `yaml:"table,omitempty"`
	Columns         catalog.Schema   `yaml:"columns,omitempty"`
	Partitions      int              `yaml:"partitions,omitempty"`
	Unbounded       bool             `yaml:"unbounded,omitempty"`
	SortInformation [][]sortDoc      `yaml:"sort_information,omitempty"`
	Ordering        []sortDoc        `yaml:"ordering,omitempty"`
	Partitioning    *partitioningDoc `yaml:"partitioning,omitempty"`

	// sorts, merges and limits
	Fetch                *int `yaml:"fetch,omitempty"`
	Skip                 int  `yaml:"skip,omitempty"`
	PreservePartitioning bool `yaml:"preserve_partitioning,omitempty"`
	PreserveOrder        bool `yaml:"preserve_order,omitempty"`
	TargetBatchSize      int  `yaml:"target_batch_size,omitempty"`

	Predicate *exprDoc  `yaml:"predicate,omitempty"`
	Exprs     []exprDoc `yaml:"exprs,omitempty"`
	Aliases   []string  `yaml:"aliases,omitempty"`

	// joins
	JoinType    string           `yaml:"join_type,omitempty"`
	Mode        string           `yaml:"mode,omitempty"`
	On          []joinOnDoc      `yaml:"on,omitempty"`
	SortOptions []sortOptionsDoc `yaml:"sort_options,omitempty"`

	GroupBy    []exprDoc      `yaml:"group_by,omitempty"`
	Aggregates []aggregateDoc `yaml:"aggregates,omitempty"`

	Windows       []windowDoc `yaml:"windows,omitempty"`
	PartitionKeys []exprDoc   `yaml:"partition_keys,omitempty"`
}

type partitioningDoc struct {
	Scheme string    `yaml:"scheme"`
	Count  int       `yaml:"count"`
	Exprs  []exprDoc `yaml:"exprs,omitempty"`
}

type joinOnDoc struct {
	Left  exprDoc `yaml:"left"`
	Right exprDoc `yaml:"right"`
}

type sortOptionsDoc struct {
	Descending bool `yaml:"descending,omitempty"`
	NullsLast  bool `yaml:"nulls_last,omitempty"`
}

type aggregateDoc struct {
	Func string  `yaml:"func"`
	Expr exprDoc `yaml:"expr"`
}

type windowDoc struct {
	Func        string    `yaml:"func"`
	Args        []exprDoc `yaml:"args,omitempty"`
	PartitionBy []exprDoc `yaml:"partition_by,omitempty"`
	OrderBy     []sortDoc `yaml:"order_by,omitempty"`
	Frame       *frameDoc `yaml:"frame,omitempty"`
}

type frameDoc struct {
	Units string   `yaml:"units"`
	Start boundDoc `yaml:"start"`
	End   boundDoc `yaml:"end"`
}

type boundDoc struct {
	Kind   string `yaml:"kind"`
	Offset *int64 `yaml:"offset,omitempty"`
}

// Encode writes plan as a YAML document.
func Encode(plan planner.PlanNode) ([]byte, error) {
	doc, err := encodeNode(plan)
	if err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "marshal plan")
	}
	return out, nil
}

// Decode parses a YAML plan document. cat resolves scans that name a table
// without listing its columns; it may be nil when every scan is
// self-describing.
func Decode(data []byte, cat *catalog.Catalog) (planner.PlanNode, error) {
	var doc nodeDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, common.NewPlanError(common.SerializationError, "malformed plan document: %v", err)
	}
	d := &decoder{cat: cat}
	return d.node(&doc)
}

func encodeNode(plan planner.PlanNode) (*nodeDoc, error) {
	doc := &nodeDoc{Kind: plan.Kind().String()}
	for _, child := range plan.Children() {
		c, err := encodeNode(child)
		if err != nil {
			return nil, err
		}
		doc.Children = append(doc.Children, c)
	}

	var err error
	switch n := plan.(type) {
	case *planner.MemoryScanNode:
		doc.Table, doc.Columns, doc.Partitions = n.Table, n.OutputSchema(), n.Partitions
		for _, o := range n.SortInformation {
			s, err := encodeOrdering(o)
			if err != nil {
				return nil, err
			}
			doc.SortInformation = append(doc.SortInformation, s)
		}
	case *planner.FileScanNode:
		doc.Table, doc.Columns, doc.Partitions = n.Table, n.OutputSchema(), n.Partitions
		doc.Unbounded = n.UnboundedInput
		doc.Ordering, err = encodeOrdering(n.OutputOrder)
	case *planner.SortNode:
		doc.Fetch, doc.PreservePartitioning = n.Fetch, n.PreservePartitioning
		doc.Ordering, err = encodeOrdering(n.Expr)
	case *planner.SortPreservingMergeNode:
		doc.Fetch = n.Fetch
		doc.Ordering, err = encodeOrdering(n.Expr)
	case *planner.CoalescePartitionsNode, *planner.UnionNode:
	case *planner.CoalesceBatchesNode:
		doc.TargetBatchSize = n.TargetBatchSize
	case *planner.RepartitionNode:
		doc.PreserveOrder = n.PreserveOrder
		doc.Partitioning, err = encodePartitioning(n.Partitioning)
	case *planner.GlobalLimitNode:
		doc.Skip, doc.Fetch = n.Skip, n.Fetch
	case *planner.LocalLimitNode:
		fetch := n.Fetch
		doc.Fetch = &fetch
	case *planner.FilterNode:
		var p exprDoc
		p, err = encodeExpr(n.Predicate)
		doc.Predicate = &p
	case *planner.ProjectionNode:
		doc.Aliases = n.Aliases
		doc.Exprs, err = encodeExprs(n.Expressions)
	case *planner.HashJoinNode:
		doc.JoinType, doc.Mode = n.JoinType.String(), n.Mode.String()
		doc.On, err = encodeJoinOn(n.On)
	case *planner.SortMergeJoinNode:
		doc.JoinType = n.JoinType.String()
		doc.On, err = encodeJoinOn(n.On)
		for _, o := range n.SortOptions {
			doc.SortOptions = append(doc.SortOptions, sortOptionsDoc{Descending: o.Descending, NullsLast: o.NullsLast})
		}
	case *planner.AggregateNode:
		doc.Mode = n.Mode.String()
		if doc.GroupBy, err = encodeExprs(n.GroupByClause); err != nil {
			return nil, err
		}
		for _, a := range n.AggClauses {
			e, err := encodeExpr(a.Expr)
			if err != nil {
				return nil, err
			}
			doc.Aggregates = append(doc.Aggregates, aggregateDoc{Func: a.Type.String(), Expr: e})
		}
	case *planner.BoundedWindowAggNode:
		doc.Windows, doc.PartitionKeys, err = encodeWindows(n.WindowExprs, n.PartitionKeys)
	case *planner.WindowAggNode:
		doc.Windows, doc.PartitionKeys, err = encodeWindows(n.WindowExprs, n.PartitionKeys)
	default:
		return nil, common.NewPlanError(common.SerializationError, "cannot encode %s", plan.Kind())
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func encodePartitioning(p planner.Partitioning) (*partitioningDoc, error) {
	exprs, err := encodeExprs(p.Exprs)
	if err != nil {
		return nil, err
	}
	return &partitioningDoc{Scheme: p.Scheme.String(), Count: p.Count, Exprs: exprs}, nil
}

func encodeJoinOn(on []planner.JoinOn) ([]joinOnDoc, error) {
	out := make([]joinOnDoc, len(on))
	for i, o := range on {
		l, err := encodeExpr(o.Left)
		if err != nil {
			return nil, err
		}
		r, err := encodeExpr(o.Right)
		if err != nil {
			return nil, err
		}
		out[i] = joinOnDoc{Left: l, Right: r}
	}
	return out, nil
}

func encodeWindows(exprs []planner.WindowExpr, keys []planner.Expr) ([]windowDoc, []exprDoc, error) {
	out := make([]windowDoc, len(exprs))
	for i, w := range exprs {
		args, err := encodeExprs(w.Args)
		if err != nil {
			return nil, nil, err
		}
		partitionBy, err := encodeExprs(w.PartitionBy)
		if err != nil {
			return nil, nil, err
		}
		orderBy, err := encodeOrdering(w.OrderBy)
		if err != nil {
			return nil, nil, err
		}
		out[i] = windowDoc{
			Func:        w.Func.String(),
			Args:        args,
			PartitionBy: partitionBy,
			OrderBy:     orderBy,
			Frame: &frameDoc{
				Units: w.Frame.Units.String(),
				Start: encodeBound(w.Frame.Start),
				End:   encodeBound(w.Frame.End),
			},
		}
	}
	keyDocs, err := encodeExprs(keys)
	if err != nil {
		return nil, nil, err
	}
	return out, keyDocs, nil
}

func encodeBound(b planner.FrameBound) boundDoc {
	kind := "current_row"
	switch b.Kind {
	case planner.PrecedingBound:
		kind = "preceding"
	case planner.FollowingBound:
		kind = "following"
	}
	return boundDoc{Kind: kind, Offset: b.Offset}
}
