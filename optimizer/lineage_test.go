package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mit.edu/dsg/physopt/common"
	"mit.edu/dsg/physopt/planner"
)

func TestLineageTree(t *testing.T) {
	source := memoryScan(1)
	rep := roundRobin(source, 4)
	sort := sortExec(rep, order(asc("a"))).WithPreservePartitioning(true)
	spm := sortPreservingMerge(sort, order(asc("a")))

	assert.Nil(t, newLineageNode(spm, 0, []*LineageTree{nil, nil}))

	l := newLineageNode(spm, 0, []*LineageTree{nil, newLineageLeaf(sort, 0)})
	require.NotNil(t, l)
	assert.False(t, l.IsLeaf())
	assert.Len(t, l.Children, 1)
	assert.Equal(t, []planner.PlanNode{sort}, l.Leaves())
	assert.Equal(t,
		"[0] SortPreservingMerge: [a@0 ASC]\n"+
			"  [0] Sort: expr=[a@0 ASC], preserve_partitioning=true",
		l.String())

	slots := l.SlotLineages(1)
	require.Len(t, slots, 1)
	assert.Same(t, l.Children[0], slots[0])

	var missing *LineageTree
	assert.Equal(t, []*LineageTree{nil, nil}, missing.SlotLineages(2))
	assert.Nil(t, missing.Leaves())
}

func TestLineageSlots(t *testing.T) {
	left := newLineageLeaf(sortExec(memoryScan(1), order(asc("a"))), 0)
	right := newLineageLeaf(sortExec(memoryScan(1), order(asc("b"))), 1)
	union := planner.NewUnionNode([]planner.PlanNode{left.Plan, right.Plan})
	l := newLineageNode(union, 0, []*LineageTree{left, right})

	slots := l.SlotLineages(2)
	assert.Same(t, left, slots[0])
	assert.Same(t, right, slots[1])
	assert.Len(t, l.Leaves(), 2)
}

func TestSortLineage(t *testing.T) {
	source := memoryScan(1)
	leaf := newLineageLeaf(sortExec(source, order(asc("a"))), 0)

	tests := []struct {
		name     string
		ctx      *sortContext
		wantNil  bool
		wantLeaf bool
	}{
		{
			name:     "sort starts a lineage",
			ctx:      &sortContext{plan: sortExec(source, order(asc("a"))), lineages: emptyLineages(1)},
			wantLeaf: true,
		},
		{
			name:    "sort with fetch ends it",
			ctx:     &sortContext{plan: sortExec(source, order(asc("a"))).WithFetch(fetch(1)), lineages: emptyLineages(1)},
			wantNil: true,
		},
		{
			name:    "limit ends it",
			ctx:     &sortContext{plan: planner.NewLocalLimitNode(leaf.Plan, 3), lineages: []*LineageTree{leaf}},
			wantNil: true,
		},
		{
			name: "order-keeping operator extends it",
			ctx:  &sortContext{plan: planner.NewCoalesceBatchesNode(leaf.Plan, 128), lineages: []*LineageTree{leaf}},
		},
		{
			name:    "order-breaking operator drops it",
			ctx:     &sortContext{plan: coalesce(leaf.Plan), lineages: []*LineageTree{leaf}},
			wantNil: true,
		},
		{
			name:    "operator requiring the order drops it",
			ctx:     &sortContext{plan: countWindow(leaf.Plan, order(asc("a"))), lineages: []*LineageTree{leaf}},
			wantNil: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := sortLineage(tt.ctx, 0)
			if tt.wantNil {
				assert.Nil(t, l)
				return
			}
			require.NotNil(t, l)
			assert.Equal(t, tt.wantLeaf, l.IsLeaf())
			assert.Same(t, tt.ctx.plan, l.Plan)
		})
	}
}

func TestRemoveSortFromSubPlan(t *testing.T) {
	t.Run("merge over sort needs a single partition", func(t *testing.T) {
		rep := roundRobin(memoryScan(1), 10)
		sort := sortExec(rep, order(asc("a"))).WithPreservePartitioning(true)
		spm := sortPreservingMerge(sort, order(asc("a")))
		l := newLineageNode(spm, 0, []*LineageTree{newLineageLeaf(sort, 0)})

		rule := NewEnforceSorting(nil, nil)
		got, err := rule.removeSortFromSubPlan(l, true)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"CoalescePartitions",
			"  Repartition: partitioning=RoundRobinBatch(10), input_partitions=1",
			"    MemoryScan: partitions=1",
		}, planner.ExplainLines(got))
		assert.Equal(t, map[Event]int64{SortRemoved: 1, MergeRemoved: 1}, statsMap(rule.Stats()))
	})

	t.Run("order-preserving repartition falls back", func(t *testing.T) {
		sort := sortExec(memoryScan(2), order(asc("a"))).WithPreservePartitioning(true)
		rep := hashRepartition(sort, 4, "a").WithPreserveOrder()
		require.True(t, rep.PreserveOrder)
		l := newLineageNode(rep, 0, []*LineageTree{newLineageLeaf(sort, 0)})

		got, err := NewEnforceSorting(nil, nil).removeSortFromSubPlan(l, false)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"Repartition: partitioning=Hash([a@0], 4), input_partitions=2",
			"  MemoryScan: partitions=2",
		}, planner.ExplainLines(got))
	})

	t.Run("sorted remainder is merged", func(t *testing.T) {
		source := memoryScan(2, order(asc("b")))
		sort := sortExec(source, order(asc("a"))).WithPreservePartitioning(true)

		got, err := NewEnforceSorting(nil, nil).removeSortFromSubPlan(newLineageLeaf(sort, 0), true)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"SortPreservingMerge: [b@1 ASC]",
			"  MemoryScan: partitions=2, output_ordering=[b@1 ASC]",
		}, planner.ExplainLines(got))
	})

	t.Run("leaf must be a sort", func(t *testing.T) {
		_, err := NewEnforceSorting(nil, nil).removeSortFromSubPlan(newLineageLeaf(memoryScan(1), 0), false)
		require.Error(t, err)
		assert.True(t, common.HasCode(err, common.NodeKindMismatchError))
	})
}

func TestRemoveCoalesceFromSubPlan(t *testing.T) {
	t.Run("identical repartition below is skipped", func(t *testing.T) {
		source := memoryScan(1)
		inner := roundRobin(source, 10)
		c := coalesce(inner)
		outer := roundRobin(c, 10)

		got, err := NewEnforceSorting(nil, nil).removeCoalesceFromSubPlan(newLineageLeaf(c, 0), outer)
		require.NoError(t, err)
		assert.Same(t, source, got)
	})

	t.Run("chain is rebuilt", func(t *testing.T) {
		c := coalesce(roundRobin(memoryScan(1), 10))
		batches := planner.NewCoalesceBatchesNode(c, 64)
		l := newLineageNode(batches, 0, []*LineageTree{newLineageLeaf(c, 0)})

		rule := NewEnforceSorting(nil, nil)
		got, err := rule.removeCoalesceFromSubPlan(l, sortExec(batches, order(asc("a"))))
		require.NoError(t, err)
		assert.Equal(t, []string{
			"CoalesceBatches: target_batch_size=64",
			"  Repartition: partitioning=RoundRobinBatch(10), input_partitions=1",
			"    MemoryScan: partitions=1",
		}, planner.ExplainLines(got))
		assert.Equal(t, int64(1), rule.Stats().Get(CoalesceRemoved))
	})

	t.Run("leaf must be a coalesce", func(t *testing.T) {
		source := memoryScan(1)
		_, err := NewEnforceSorting(nil, nil).removeCoalesceFromSubPlan(newLineageLeaf(source, 0), sortExec(source, order(asc("a"))))
		require.Error(t, err)
		assert.True(t, common.HasCode(err, common.NodeKindMismatchError))
	})
}

func TestSortExprsAndFetch(t *testing.T) {
	source := memoryScan(2)

	exprs, f, err := sortExprsAndFetch(sortExec(source, order(asc("a"))).WithFetch(fetch(7)))
	require.NoError(t, err)
	assert.Equal(t, "[a@0 ASC]", exprs.String())
	require.NotNil(t, f)
	assert.Equal(t, 7, *f)

	exprs, f, err = sortExprsAndFetch(sortPreservingMerge(source, order(desc("b"))))
	require.NoError(t, err)
	assert.Equal(t, "[b@1 DESC]", exprs.String())
	assert.Nil(t, f)

	_, _, err = sortExprsAndFetch(source)
	assert.True(t, common.HasCode(err, common.NodeKindMismatchError))
}
