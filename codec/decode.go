package codec

import (
	"mit.edu/dsg/physopt/catalog"
	"mit.edu/dsg/physopt/common"
	"mit.edu/dsg/physopt/planner"
)

type decoder struct {
	cat *catalog.Catalog
}

func parseKind(s string) (planner.NodeKind, bool) {
	for k := planner.SortKind; k <= planner.CsvScanKind; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

func parseEnum[T interface {
	~int
	String() string
}](what, s string, last T) (T, error) {
	for v := T(0); v <= last; v++ {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, common.NewPlanError(common.SerializationError, "unknown %s %q", what, s)
}

func serializationError(kind planner.NodeKind, format string, args ...any) error {
	return common.NewPlanError(common.SerializationError, kind.String()+": "+format, args...)
}

func (d *decoder) node(doc *nodeDoc) (planner.PlanNode, error) {
	if doc == nil {
		return nil, common.NewPlanError(common.SerializationError, "empty plan node")
	}
	kind, ok := parseKind(doc.Kind)
	if !ok {
		return nil, common.NewPlanError(common.SerializationError, "unknown node kind %q", doc.Kind)
	}

	children := make([]planner.PlanNode, len(doc.Children))
	for i, c := range doc.Children {
		child, err := d.node(c)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	if err := checkChildCount(kind, len(children)); err != nil {
		return nil, err
	}

	switch kind {
	case planner.MemoryScanKind, planner.ParquetScanKind, planner.CsvScanKind:
		return d.scan(kind, doc)
	case planner.SortKind:
		ordering, err := d.sortKeys(kind, doc.Ordering, children[0].OutputSchema())
		if err != nil {
			return nil, err
		}
		return planner.NewSortNode(children[0], ordering).
			WithFetch(doc.Fetch).
			WithPreservePartitioning(doc.PreservePartitioning), nil
	case planner.SortPreservingMergeKind:
		ordering, err := d.sortKeys(kind, doc.Ordering, children[0].OutputSchema())
		if err != nil {
			return nil, err
		}
		return planner.NewSortPreservingMergeNode(children[0], ordering).WithFetch(doc.Fetch), nil
	case planner.CoalescePartitionsKind:
		return planner.NewCoalescePartitionsNode(children[0]), nil
	case planner.CoalesceBatchesKind:
		if doc.TargetBatchSize <= 0 {
			return nil, serializationError(kind, "target_batch_size must be positive")
		}
		return planner.NewCoalesceBatchesNode(children[0], doc.TargetBatchSize), nil
	case planner.RepartitionKind:
		return d.repartition(doc, children[0])
	case planner.GlobalLimitKind:
		if doc.Skip < 0 || (doc.Fetch != nil && *doc.Fetch < 0) {
			return nil, serializationError(kind, "skip and fetch must not be negative")
		}
		return planner.NewGlobalLimitNode(children[0], doc.Skip, doc.Fetch), nil
	case planner.LocalLimitKind:
		if doc.Fetch == nil || *doc.Fetch < 0 {
			return nil, serializationError(kind, "fetch is required")
		}
		return planner.NewLocalLimitNode(children[0], *doc.Fetch), nil
	case planner.UnionKind:
		for _, c := range children[1:] {
			if !c.OutputSchema().Equal(children[0].OutputSchema()) {
				return nil, serializationError(kind, "inputs have different schemas %s and %s",
					children[0].OutputSchema(), c.OutputSchema())
			}
		}
		return planner.NewUnionNode(children), nil
	case planner.FilterKind:
		if doc.Predicate == nil {
			return nil, serializationError(kind, "predicate is required")
		}
		pred, err := decodeExpr(*doc.Predicate, children[0].OutputSchema())
		if err != nil {
			return nil, err
		}
		return planner.NewFilterNode(children[0], pred), nil
	case planner.ProjectionKind:
		exprs, err := decodeExprs(doc.Exprs, children[0].OutputSchema())
		if err != nil {
			return nil, err
		}
		aliases := doc.Aliases
		if aliases == nil {
			aliases = make([]string, len(exprs))
			for i, e := range exprs {
				aliases[i] = e.String()
			}
		}
		if len(aliases) != len(exprs) {
			return nil, serializationError(kind, "%d aliases for %d expressions", len(aliases), len(exprs))
		}
		return planner.NewProjectionNode(children[0], exprs, aliases), nil
	case planner.HashJoinKind, planner.SortMergeJoinKind:
		return d.join(kind, doc, children[0], children[1])
	case planner.AggregateKind:
		return d.aggregate(doc, children[0])
	case planner.BoundedWindowAggKind, planner.WindowAggKind:
		return d.window(kind, doc, children[0])
	}
	return nil, serializationError(kind, "cannot decode")
}

func checkChildCount(kind planner.NodeKind, got int) error {
	want := 1
	switch kind {
	case planner.MemoryScanKind, planner.ParquetScanKind, planner.CsvScanKind:
		want = 0
	case planner.HashJoinKind, planner.SortMergeJoinKind:
		want = 2
	case planner.UnionKind:
		if got == 0 {
			return serializationError(kind, "needs at least one input")
		}
		return nil
	}
	if got != want {
		return serializationError(kind, "expected %d children, got %d", want, got)
	}
	return nil
}

func (d *decoder) sortKeys(kind planner.NodeKind, docs []sortDoc, schema catalog.Schema) (planner.LexOrdering, error) {
	if len(docs) == 0 {
		return nil, serializationError(kind, "ordering is required")
	}
	return decodeOrdering(docs, schema)
}

// scan builds a leaf. Without columns the catalog's layout is authoritative;
// with columns the document describes the scan completely, and the catalog,
// if it knows the table, must agree on the schema.
func (d *decoder) scan(kind planner.NodeKind, doc *nodeDoc) (planner.PlanNode, error) {
	var table *catalog.Table
	if d.cat != nil && doc.Table != "" {
		if t, err := d.cat.GetTableMetadata(doc.Table); err == nil {
			table = t
		}
	}

	if len(doc.Columns) == 0 {
		if table == nil {
			if doc.Table == "" {
				return nil, serializationError(kind, "scan needs a table or columns")
			}
			return nil, common.NewPlanError(common.NoSuchTableError, "table '%s' does not exist", doc.Table)
		}
		scan, err := planner.NewScanFromTable(table)
		if err != nil {
			return nil, err
		}
		if scan.Kind() != kind {
			return nil, serializationError(kind, "table '%s' is stored as %s", table.Name, table.Layout.Format)
		}
		return scan, nil
	}

	schema := doc.Columns
	if table != nil && !table.Columns.Equal(schema) {
		return nil, serializationError(kind, "columns %s do not match table '%s' %s", schema, table.Name, table.Columns)
	}
	partitions := doc.Partitions
	if partitions == 0 {
		partitions = 1
	}
	if partitions < 0 {
		return nil, serializationError(kind, "partitions must be positive")
	}

	switch kind {
	case planner.MemoryScanKind:
		if doc.Unbounded {
			return nil, serializationError(kind, "memory scans are bounded")
		}
		var sortInformation []planner.LexOrdering
		for _, s := range doc.SortInformation {
			o, err := decodeOrdering(s, schema)
			if err != nil {
				return nil, err
			}
			if o != nil {
				sortInformation = append(sortInformation, o)
			}
		}
		return planner.NewMemoryScanNode(doc.Table, schema, partitions, sortInformation...), nil
	case planner.ParquetScanKind:
		if doc.Unbounded {
			return nil, serializationError(kind, "parquet scans are bounded")
		}
		ordering, err := decodeOrdering(doc.Ordering, schema)
		if err != nil {
			return nil, err
		}
		return planner.NewParquetScanNode(doc.Table, schema, partitions, ordering), nil
	}
	ordering, err := decodeOrdering(doc.Ordering, schema)
	if err != nil {
		return nil, err
	}
	return planner.NewCsvScanNode(doc.Table, schema, partitions, ordering, doc.Unbounded), nil
}

func (d *decoder) repartition(doc *nodeDoc, child planner.PlanNode) (planner.PlanNode, error) {
	kind := planner.RepartitionKind
	if doc.Partitioning == nil {
		return nil, serializationError(kind, "partitioning is required")
	}
	p := doc.Partitioning
	if p.Count <= 0 {
		return nil, serializationError(kind, "partition count must be positive")
	}
	scheme, err := parseEnum("partitioning scheme", p.Scheme, planner.HashScheme)
	if err != nil {
		return nil, err
	}
	var partitioning planner.Partitioning
	switch scheme {
	case planner.RoundRobinBatchScheme:
		partitioning = planner.NewRoundRobinPartitioning(p.Count)
	case planner.HashScheme:
		exprs, err := decodeExprs(p.Exprs, child.OutputSchema())
		if err != nil {
			return nil, err
		}
		if len(exprs) == 0 {
			return nil, serializationError(kind, "hash partitioning needs keys")
		}
		partitioning = planner.NewHashPartitioning(exprs, p.Count)
	default:
		partitioning = planner.NewUnknownPartitioning(p.Count)
	}
	node := planner.NewRepartitionNode(child, partitioning)
	if doc.PreserveOrder {
		return node.WithPreserveOrder(), nil
	}
	return node, nil
}

func (d *decoder) join(kind planner.NodeKind, doc *nodeDoc, left, right planner.PlanNode) (planner.PlanNode, error) {
	joinType, err := parseEnum("join type", doc.JoinType, planner.FullJoin)
	if err != nil {
		return nil, err
	}
	if len(doc.On) == 0 {
		return nil, serializationError(kind, "join keys are required")
	}
	on := make([]planner.JoinOn, len(doc.On))
	for i, o := range doc.On {
		l, err := decodeExpr(o.Left, left.OutputSchema())
		if err != nil {
			return nil, err
		}
		r, err := decodeExpr(o.Right, right.OutputSchema())
		if err != nil {
			return nil, err
		}
		on[i] = planner.JoinOn{Left: l, Right: r}
	}

	if kind == planner.HashJoinKind {
		mode := planner.PartitionedMode
		if doc.Mode != "" {
			if mode, err = parseEnum("partition mode", doc.Mode, planner.CollectLeftMode); err != nil {
				return nil, err
			}
		}
		return planner.NewHashJoinNode(left, right, on, joinType, mode), nil
	}

	if doc.SortOptions == nil {
		return planner.NewSortMergeJoinNode(left, right, on, joinType), nil
	}
	if len(doc.SortOptions) != len(on) {
		return nil, serializationError(kind, "%d sort options for %d keys", len(doc.SortOptions), len(on))
	}
	options := make([]planner.SortOptions, len(on))
	for i, o := range doc.SortOptions {
		options[i] = planner.SortOptions{Descending: o.Descending, NullsLast: o.NullsLast}
	}
	return planner.NewSortMergeJoinNodeWithOptions(left, right, on, joinType, options), nil
}

func (d *decoder) aggregate(doc *nodeDoc, child planner.PlanNode) (planner.PlanNode, error) {
	mode, err := parseEnum("aggregate mode", doc.Mode, planner.AggSingle)
	if err != nil {
		return nil, err
	}
	groupBy, err := decodeExprs(doc.GroupBy, child.OutputSchema())
	if err != nil {
		return nil, err
	}
	aggs := make([]planner.AggregateClause, len(doc.Aggregates))
	for i, a := range doc.Aggregates {
		t, err := parseEnum("aggregate", a.Func, planner.AggMax)
		if err != nil {
			return nil, err
		}
		e, err := decodeExpr(a.Expr, child.OutputSchema())
		if err != nil {
			return nil, err
		}
		aggs[i] = planner.AggregateClause{Type: t, Expr: e}
	}
	return planner.NewAggregateNode(child, mode, groupBy, aggs), nil
}

func (d *decoder) window(kind planner.NodeKind, doc *nodeDoc, child planner.PlanNode) (planner.PlanNode, error) {
	if len(doc.Windows) == 0 {
		return nil, serializationError(kind, "window expressions are required")
	}
	schema := child.OutputSchema()
	exprs := make([]planner.WindowExpr, len(doc.Windows))
	for i, w := range doc.Windows {
		f, ok := planner.ParseWindowFunc(w.Func)
		if !ok {
			return nil, serializationError(kind, "unknown window function %q", w.Func)
		}
		args, err := decodeExprs(w.Args, schema)
		if err != nil {
			return nil, err
		}
		partitionBy, err := decodeExprs(w.PartitionBy, schema)
		if err != nil {
			return nil, err
		}
		orderBy, err := decodeOrdering(w.OrderBy, schema)
		if err != nil {
			return nil, err
		}
		frame := planner.DefaultWindowFrame(len(orderBy) > 0)
		if w.Frame != nil {
			if frame, err = decodeFrame(w.Frame); err != nil {
				return nil, err
			}
		}
		exprs[i] = planner.WindowExpr{Func: f, Args: args, PartitionBy: partitionBy, OrderBy: orderBy, Frame: frame}
	}
	keys, err := decodeExprs(doc.PartitionKeys, schema)
	if err != nil {
		return nil, err
	}
	if kind == planner.BoundedWindowAggKind {
		if !planner.AllBounded(exprs) {
			return nil, serializationError(kind, "window frames need unbounded memory")
		}
		return planner.NewBoundedWindowAggNode(child, exprs, keys), nil
	}
	return planner.NewWindowAggNode(child, exprs, keys), nil
}

func decodeFrame(doc *frameDoc) (planner.WindowFrame, error) {
	units, err := parseEnum("frame units", doc.Units, planner.RangeFrame)
	if err != nil {
		return planner.WindowFrame{}, err
	}
	start, err := decodeBound(doc.Start)
	if err != nil {
		return planner.WindowFrame{}, err
	}
	end, err := decodeBound(doc.End)
	if err != nil {
		return planner.WindowFrame{}, err
	}
	return planner.WindowFrame{Units: units, Start: start, End: end}, nil
}

func decodeBound(doc boundDoc) (planner.FrameBound, error) {
	if doc.Offset != nil && *doc.Offset < 0 {
		return planner.FrameBound{}, common.NewPlanError(common.SerializationError, "negative frame offset %d", *doc.Offset)
	}
	switch doc.Kind {
	case "current_row":
		return planner.CurrentRow(), nil
	case "preceding":
		return planner.FrameBound{Kind: planner.PrecedingBound, Offset: doc.Offset}, nil
	case "following":
		return planner.FrameBound{Kind: planner.FollowingBound, Offset: doc.Offset}, nil
	}
	return planner.FrameBound{}, common.NewPlanError(common.SerializationError, "unknown frame bound %q", doc.Kind)
}
