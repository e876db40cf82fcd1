package physopt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"mit.edu/dsg/physopt/catalog"
	"mit.edu/dsg/physopt/common"
	"mit.edu/dsg/physopt/optimizer"
	"mit.edu/dsg/physopt/planner"
)

func newTestOptimizer(t *testing.T, log *zap.Logger) *Optimizer {
	t.Helper()
	cat, err := OpenCatalog(t.TempDir())
	require.NoError(t, err)
	_, err = cat.AddTable("t", []catalog.Column{
		{Name: "a", Type: common.IntType},
		{Name: "b", Type: common.IntType},
	}, catalog.TableLayout{
		Format:    catalog.ParquetFormat,
		SortOrder: []catalog.SortColumn{{Name: "a"}},
	}, catalog.NewMemoryCatalogManager())
	require.NoError(t, err)
	return NewOptimizer(cat, nil, log)
}

func TestOptimizeDocument(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	opt := newTestOptimizer(t, zap.New(core))

	plan, err := opt.OptimizeDocument([]byte(`
kind: Sort
ordering: [{expr: {column: a}}]
children: [{kind: ParquetScan, table: t}]
`))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ParquetScan: table=t, file_groups=1, projection=[a, b], output_ordering=[a@0 ASC]",
	}, planner.ExplainLines(plan))
	assert.Equal(t, int64(1), opt.Stats.Get(optimizer.SortRemoved))

	entries := logs.FilterMessage("plan optimized").All()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ContextMap()["run"])
	assert.Equal(t, int64(1), entries[0].ContextMap()["nodes"])
}

func TestOptimizeDocumentErrors(t *testing.T) {
	opt := newTestOptimizer(t, nil)

	_, err := opt.OptimizeDocument([]byte("kind: ["))
	assert.True(t, common.HasCode(err, common.SerializationError))

	_, err = opt.OptimizeDocument([]byte("kind: ParquetScan\ntable: missing\n"))
	assert.True(t, common.HasCode(err, common.NoSuchTableError))
}

func TestOptimizeLeavesInputUntouched(t *testing.T) {
	schema := catalog.Schema{{Name: "a", Type: common.IntType}}
	a, err := planner.NewColumnByName("a", schema)
	require.NoError(t, err)
	ordering := planner.LexOrdering{planner.NewSortExpr(a, planner.SortOptions{})}
	plan := planner.NewSortNode(planner.NewMemoryScanNode("m", schema, 3, ordering), ordering)
	before := planner.ExplainLines(plan)

	optimized, err := NewOptimizer(nil, nil, nil).Optimize(plan)
	require.NoError(t, err)
	assert.Equal(t, before, planner.ExplainLines(plan))
	assert.Equal(t, []string{
		"SortPreservingMerge: [a@0 ASC]",
		"  MemoryScan: partitions=3, output_ordering=[a@0 ASC]",
	}, planner.ExplainLines(optimized))
}
