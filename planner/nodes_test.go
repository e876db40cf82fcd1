package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mit.edu/dsg/physopt/catalog"
	"mit.edu/dsg/physopt/common"
)

func memoryScan(partitions int, sortInformation ...LexOrdering) *MemoryScanNode {
	return NewMemoryScanNode("m", planTestSchema(), partitions, sortInformation...)
}

func TestSortNodeProperties(t *testing.T) {
	source := memoryScan(4, LexOrdering{ascKey("b")})

	global := NewSortNode(source, LexOrdering{ascKey("a")})
	assert.Equal(t, 1, global.OutputPartitioning().PartitionCount())
	assert.True(t, global.RequiredInputDistribution()[0].IsSinglePartition())
	assert.Equal(t, "[a@0 ASC]", global.OutputOrdering().String())
	// The input ordering does not survive a sort.
	assert.False(t, global.EquivalenceProperties().OrderingSatisfy(LexOrdering{ascKey("b")}))

	local := global.WithPreservePartitioning(true).WithFetch(intPtr(10))
	assert.Equal(t, 4, local.OutputPartitioning().PartitionCount())
	assert.False(t, local.RequiredInputDistribution()[0].IsSinglePartition())
	assert.Equal(t, "Sort: expr=[a@0 ASC], fetch=10, preserve_partitioning=true", local.String())
	assert.Nil(t, global.Fetch)
}

func TestCoalesceDropsOrdering(t *testing.T) {
	for _, partitions := range []int{1, 3} {
		c := NewCoalescePartitionsNode(memoryScan(partitions, LexOrdering{ascKey("a")}))
		assert.Nil(t, c.OutputOrdering())
		assert.Equal(t, 1, c.OutputPartitioning().PartitionCount())
		assert.False(t, c.EquivalenceProperties().OrderingSatisfy(LexOrdering{ascKey("a")}))
	}
}

func TestRepartitionOrder(t *testing.T) {
	sorted := LexOrdering{ascKey("a")}

	single := NewRepartitionNode(memoryScan(1, sorted), NewRoundRobinPartitioning(8))
	assert.Equal(t, []bool{true}, single.MaintainsInputOrder())
	assert.True(t, sorted.Equal(single.OutputOrdering()))
	assert.Equal(t, "Repartition: partitioning=RoundRobinBatch(8), input_partitions=1", single.String())
	// Nothing to merge: the flag does not stick.
	assert.False(t, single.WithPreserveOrder().PreserveOrder)

	multi := NewRepartitionNode(memoryScan(4, sorted), NewHashPartitioning([]Expr{column("c")}, 8))
	assert.Equal(t, []bool{false}, multi.MaintainsInputOrder())
	assert.Nil(t, multi.OutputOrdering())

	preserving := multi.WithPreserveOrder()
	require.True(t, preserving.PreserveOrder)
	assert.True(t, sorted.Equal(preserving.OutputOrdering()))
	assert.Equal(t,
		"SortPreservingRepartition: partitioning=Hash([c@2], 8), input_partitions=4, sort_exprs=[a@0 ASC]",
		preserving.String())
	assert.False(t, preserving.WithoutPreserveOrder().PreserveOrder)

	unsorted := NewRepartitionNode(memoryScan(4), NewRoundRobinPartitioning(8)).WithPreserveOrder()
	assert.False(t, unsorted.PreserveOrder)
}

func TestUnionProperties(t *testing.T) {
	u := NewUnionNode([]PlanNode{
		memoryScan(2, LexOrdering{ascKey("a"), ascKey("b")}),
		memoryScan(3, LexOrdering{ascKey("a")}),
	})
	assert.Equal(t, 5, u.OutputPartitioning().PartitionCount())
	assert.Equal(t, "[a@0 ASC]", u.OutputOrdering().String())
	assert.Equal(t, []bool{false, true}, u.MaintainsInputOrder())

	mixed := NewUnionNode([]PlanNode{memoryScan(1, LexOrdering{ascKey("a")}), memoryScan(1)})
	assert.Nil(t, mixed.OutputOrdering())
	assert.Equal(t, []bool{false, false}, mixed.MaintainsInputOrder())
}

func TestJoinOrdering(t *testing.T) {
	left := memoryScan(1, LexOrdering{ascKey("a")})
	right := memoryScan(1, LexOrdering{ascKey("b")})
	on := []JoinOn{{Left: column("a"), Right: column("a")}}

	tests := []struct {
		name     string
		join     PlanNode
		ordering string
		keeps    []bool
	}{
		{"hash inner", NewHashJoinNode(left, right, on, InnerJoin, CollectLeftMode), "[b@5 ASC]", []bool{false, true}},
		{"hash left", NewHashJoinNode(left, right, on, LeftJoin, CollectLeftMode), "", []bool{false, false}},
		{"merge inner", NewSortMergeJoinNode(left, right, on, InnerJoin), "[a@0 ASC]", []bool{true, false}},
		{"merge right", NewSortMergeJoinNode(left, right, on, RightJoin), "[b@5 ASC]", []bool{false, true}},
		{"merge full", NewSortMergeJoinNode(left, right, on, FullJoin), "", []bool{false, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.join.OutputSchema(), 8)
			if tt.ordering == "" {
				assert.Nil(t, tt.join.OutputOrdering())
			} else {
				assert.Equal(t, tt.ordering, tt.join.OutputOrdering().String())
			}
			assert.Equal(t, tt.keeps, tt.join.MaintainsInputOrder())
		})
	}
}

func TestInnerJoinEquatesKeys(t *testing.T) {
	left := memoryScan(1, LexOrdering{ascKey("a")})
	right := memoryScan(1)
	join := NewSortMergeJoinNode(left, right, []JoinOn{{Left: column("a"), Right: column("a")}}, InnerJoin)

	rightKey := NewColumnValueExpression(4, join.OutputSchema())
	assert.True(t, join.EquivalenceProperties().OrderingSatisfy(LexOrdering{NewSortExpr(rightKey, SortOptions{})}))
	assert.Equal(t, "[a@0 ASC]", join.RequiredInputOrdering()[1].String())
}

func TestJoinSchemaNullability(t *testing.T) {
	join := NewHashJoinNode(memoryScan(1), memoryScan(1), []JoinOn{{Left: column("a"), Right: column("a")}}, LeftJoin, PartitionedMode)
	schema := join.OutputSchema()
	assert.False(t, schema[0].Nullable)
	assert.True(t, schema[4].Nullable)
}

func TestWindowNode(t *testing.T) {
	source := memoryScan(1, LexOrdering{ascKey("a")})
	exprs := []WindowExpr{{
		Func:        WinSum,
		Args:        []Expr{column("d")},
		PartitionBy: []Expr{column("c")},
		OrderBy:     LexOrdering{ascKey("a")},
		Frame:       WindowFrame{Units: RowsFrame, Start: Preceding(1), End: Following(1)},
	}}
	w := NewBoundedWindowAggNode(source, exprs, []Expr{column("c")})

	schema := w.OutputSchema()
	require.Len(t, schema, 5)
	assert.Equal(t, "sum(d@3)", schema[4].Name)
	assert.Equal(t, common.IntType, schema[4].Type)
	assert.True(t, source.OutputOrdering().Equal(w.OutputOrdering()))
	assert.Equal(t, "[c@2, a@0 ASC]", w.RequiredInputOrdering()[0].String())
	assert.Equal(t, HashPartitionedDistribution, w.RequiredInputDistribution()[0].Kind)
	assert.Equal(t,
		"BoundedWindowAgg: wdw=[sum(d@3) PARTITION BY [c@2] ORDER BY [a@0 ASC] ROWS BETWEEN 1 PRECEDING AND 1 FOLLOWING], mode=Sorted",
		w.String())

	global := NewWindowAggNode(source, exprs, nil)
	assert.True(t, global.RequiredInputDistribution()[0].IsSinglePartition())
}

func TestWithNewChildren(t *testing.T) {
	source := memoryScan(1)
	sort := NewSortNode(source, LexOrdering{ascKey("a")})

	same, err := WithNewChildrenIfNecessary(sort, []PlanNode{source})
	require.NoError(t, err)
	assert.Same(t, sort, same)

	other := memoryScan(2)
	rebuilt, err := WithNewChildrenIfNecessary(sort, []PlanNode{other})
	require.NoError(t, err)
	assert.NotSame(t, sort, rebuilt)
	assert.Same(t, other, rebuilt.Children()[0])

	_, err = sort.WithNewChildren(nil)
	assert.True(t, common.HasCode(err, common.ReconstructionError))

	narrow := NewMemoryScanNode("n", catalog.Schema{{Name: "a", Type: common.IntType}}, 1)
	_, err = sort.WithNewChildren([]PlanNode{narrow})
	assert.True(t, common.HasCode(err, common.ReconstructionError))

	_, err = source.WithNewChildren([]PlanNode{other})
	assert.True(t, common.HasCode(err, common.ReconstructionError))
}

func TestUnboundedPropagates(t *testing.T) {
	stream := NewCsvScanNode("s", planTestSchema(), 1, nil, true)
	table := NewParquetScanNode("t", planTestSchema(), 1, nil)

	assert.True(t, NewSortNode(stream, LexOrdering{ascKey("a")}).Unbounded())
	assert.True(t, NewUnionNode([]PlanNode{table, stream}).Unbounded())
	assert.False(t, NewCoalescePartitionsNode(table).Unbounded())
}

func TestExplain(t *testing.T) {
	plan := NewSortPreservingMergeNode(
		NewSortNode(
			NewFilterNode(memoryScan(3), NewNullCheckExpression(column("b"), IsNotNull)),
			LexOrdering{descKey("b")}).WithPreservePartitioning(true),
		LexOrdering{descKey("b")}).WithFetch(intPtr(3))

	assert.Equal(t, ""+
		"SortPreservingMerge: [b@1 DESC], fetch=3\n"+
		"  Sort: expr=[b@1 DESC], preserve_partitioning=true\n"+
		"    Filter: (b@1 IS NOT NULL)\n"+
		"      MemoryScan: partitions=3",
		Explain(plan))
}

func intPtr(n int) *int {
	return &n
}
