package planner

import (
	"fmt"
	"strings"

	"mit.edu/dsg/physopt/catalog"
	"mit.edu/dsg/physopt/common"
)

// scanBase is shared by the leaf operators. Scans have no children, so their
// requirements are empty and they can only be rebuilt over no inputs.
type scanBase struct {
	Table      string
	Partitions int
	schema     catalog.Schema
	planProperties
}

func (n *scanBase) OutputSchema() catalog.Schema {
	return n.schema
}

func (n *scanBase) Children() []PlanNode {
	return nil
}

func (n *scanBase) RequiredInputOrdering() []LexRequirement {
	return nil
}

func (n *scanBase) RequiredInputDistribution() []Distribution {
	return nil
}

func (n *scanBase) MaintainsInputOrder() []bool {
	return nil
}

// MemoryScanNode reads batches held in memory. Each entry of SortInformation
// is an ordering every partition is known to satisfy; the first one is
// reported as the output ordering.
type MemoryScanNode struct {
	scanBase
	SortInformation []LexOrdering
}

func NewMemoryScanNode(table string, schema catalog.Schema, partitions int, sortInformation ...LexOrdering) *MemoryScanNode {
	common.Assert(partitions > 0, "memory scan needs at least one partition")
	eq := NewEquivalenceProperties(schema)
	eq.AddNewOrderings(sortInformation...)
	var ordering LexOrdering
	if len(sortInformation) > 0 {
		ordering = sortInformation[0]
	}
	return &MemoryScanNode{
		scanBase: scanBase{
			Table:          table,
			Partitions:     partitions,
			schema:         schema,
			planProperties: newPlanProperties(eq, ordering, NewUnknownPartitioning(partitions), false),
		},
		SortInformation: sortInformation,
	}
}

func (n *MemoryScanNode) Kind() NodeKind {
	return MemoryScanKind
}

func (n *MemoryScanNode) WithNewChildren(children []PlanNode) (PlanNode, error) {
	if err := checkArity(MemoryScanKind, children, 0); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *MemoryScanNode) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "MemoryScan: partitions=%d", n.Partitions)
	if n.ordering != nil {
		fmt.Fprintf(&b, ", output_ordering=%s", n.ordering)
	}
	return b.String()
}

// FileScanNode reads a table stored as Parquet or CSV files split into
// Partitions file groups. A scan over an unbounded source never finishes.
type FileScanNode struct {
	scanBase
	Format         catalog.FileFormat
	OutputOrder    LexOrdering
	UnboundedInput bool
}

func NewParquetScanNode(table string, schema catalog.Schema, partitions int, ordering LexOrdering) *FileScanNode {
	return newFileScanNode(catalog.ParquetFormat, table, schema, partitions, ordering, false)
}

func NewCsvScanNode(table string, schema catalog.Schema, partitions int, ordering LexOrdering, unbounded bool) *FileScanNode {
	return newFileScanNode(catalog.CsvFormat, table, schema, partitions, ordering, unbounded)
}

func newFileScanNode(format catalog.FileFormat, table string, schema catalog.Schema, partitions int, ordering LexOrdering, unbounded bool) *FileScanNode {
	common.Assert(partitions > 0, "file scan needs at least one file group")
	eq := NewEquivalenceProperties(schema)
	return &FileScanNode{
		scanBase: scanBase{
			Table:          table,
			Partitions:     partitions,
			schema:         schema,
			planProperties: newPlanProperties(eq, ordering, NewUnknownPartitioning(partitions), unbounded),
		},
		Format:         format,
		OutputOrder:    ordering,
		UnboundedInput: unbounded,
	}
}

func (n *FileScanNode) Kind() NodeKind {
	if n.Format == catalog.CsvFormat {
		return CsvScanKind
	}
	return ParquetScanKind
}

func (n *FileScanNode) WithNewChildren(children []PlanNode) (PlanNode, error) {
	if err := checkArity(n.Kind(), children, 0); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *FileScanNode) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: table=%s, file_groups=%d, projection=[%s]",
		n.Kind(), n.Table, n.Partitions, strings.Join(n.schema.Names(), ", "))
	if n.UnboundedInput {
		b.WriteString(", unbounded=true")
	}
	if n.OutputOrder != nil {
		fmt.Fprintf(&b, ", output_ordering=%s", n.OutputOrder)
	}
	return b.String()
}

// TableOrdering binds a table's declared sort order to its schema.
func TableOrdering(t *catalog.Table) (LexOrdering, error) {
	var ordering LexOrdering
	for _, sc := range t.Layout.SortOrder {
		col, err := NewColumnByName(sc.Name, t.Columns)
		if err != nil {
			return nil, err
		}
		ordering = append(ordering, NewSortExpr(col, SortOptions{Descending: sc.Descending, NullsLast: sc.NullsLast}))
	}
	return ordering, nil
}

// NewScanFromTable builds the leaf operator that reads t as described by its
// catalog layout.
func NewScanFromTable(t *catalog.Table) (PlanNode, error) {
	ordering, err := TableOrdering(t)
	if err != nil {
		return nil, err
	}
	partitions := max(t.Layout.Partitions, 1)
	switch t.Layout.Format {
	case catalog.ParquetFormat:
		if t.Layout.Unbounded {
			return nil, common.NewPlanError(common.InvalidPlanError, "parquet table '%s' cannot be unbounded", t.Name)
		}
		return NewParquetScanNode(t.Name, t.Columns, partitions, ordering), nil
	case catalog.CsvFormat:
		return NewCsvScanNode(t.Name, t.Columns, partitions, ordering, t.Layout.Unbounded), nil
	case catalog.MemoryFormat, "":
		if ordering == nil {
			return NewMemoryScanNode(t.Name, t.Columns, partitions), nil
		}
		return NewMemoryScanNode(t.Name, t.Columns, partitions, ordering), nil
	}
	return nil, common.NewPlanError(common.InvalidPlanError, "table '%s' has unknown format '%s'", t.Name, t.Layout.Format)
}
