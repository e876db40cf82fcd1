package optimizer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"mit.edu/dsg/physopt/catalog"
	"mit.edu/dsg/physopt/common"
	"mit.edu/dsg/physopt/config"
	"mit.edu/dsg/physopt/planner"
)

// Schema: [a(int), b(int), c(string), d(int)]
func testSchema() catalog.Schema {
	return catalog.Schema{
		{Name: "a", Type: common.IntType},
		{Name: "b", Type: common.IntType, Nullable: true},
		{Name: "c", Type: common.StringType},
		{Name: "d", Type: common.IntType},
	}
}

func col(name string) planner.Expr {
	c, err := planner.NewColumnByName(name, testSchema())
	if err != nil {
		panic(err)
	}
	return c
}

func asc(name string) planner.SortExpr {
	return planner.NewSortExpr(col(name), planner.SortOptions{})
}

func desc(name string) planner.SortExpr {
	return planner.NewSortExpr(col(name), planner.SortOptions{Descending: true})
}

func ascNullsLast(name string) planner.SortExpr {
	return planner.NewSortExpr(col(name), planner.SortOptions{NullsLast: true})
}

func order(exprs ...planner.SortExpr) planner.LexOrdering {
	return planner.LexOrdering(exprs)
}

func fetch(n int) *int {
	return &n
}

func memoryScan(partitions int, sortInformation ...planner.LexOrdering) planner.PlanNode {
	return planner.NewMemoryScanNode("m", testSchema(), partitions, sortInformation...)
}

func parquetScan(table string) planner.PlanNode {
	return planner.NewParquetScanNode(table, testSchema(), 1, nil)
}

func sortedParquetScan(table string, ordering planner.LexOrdering) planner.PlanNode {
	return planner.NewParquetScanNode(table, testSchema(), 1, ordering)
}

func csvScan(ordering planner.LexOrdering, unbounded bool) planner.PlanNode {
	return planner.NewCsvScanNode("t", testSchema(), 1, ordering, unbounded)
}

func sortExec(input planner.PlanNode, ordering planner.LexOrdering) *planner.SortNode {
	return planner.NewSortNode(input, ordering)
}

func sortPreservingMerge(input planner.PlanNode, ordering planner.LexOrdering) *planner.SortPreservingMergeNode {
	return planner.NewSortPreservingMergeNode(input, ordering)
}

func coalesce(input planner.PlanNode) planner.PlanNode {
	return planner.NewCoalescePartitionsNode(input)
}

func roundRobin(input planner.PlanNode, n int) *planner.RepartitionNode {
	return planner.NewRepartitionNode(input, planner.NewRoundRobinPartitioning(n))
}

func hashRepartition(input planner.PlanNode, n int, cols ...string) *planner.RepartitionNode {
	exprs := make([]planner.Expr, len(cols))
	for i, c := range cols {
		exprs[i] = col(c)
	}
	return planner.NewRepartitionNode(input, planner.NewHashPartitioning(exprs, n))
}

func countWindow(input planner.PlanNode, orderBy planner.LexOrdering) planner.PlanNode {
	return planner.NewBoundedWindowAggNode(input, []planner.WindowExpr{{
		Func:    planner.WinCount,
		Args:    []planner.Expr{col("b")},
		OrderBy: orderBy,
		Frame:   planner.DefaultWindowFrame(len(orderBy) > 0),
	}}, nil)
}

func defaultConfig() *config.OptimizerConfig {
	return &config.Default().Optimizer
}

func statsMap(s *RuleStats) map[Event]int64 {
	out := map[Event]int64{}
	for _, e := range s.Snapshot() {
		out[e.Event] = e.Count
	}
	return out
}

// assertOptimized checks that plan renders as wantInput, runs the rule over
// it and checks the result against wantOptimized. It returns the counters of
// the run.
func assertOptimized(t *testing.T, plan planner.PlanNode, wantInput, wantOptimized []string, cfg *config.OptimizerConfig) *RuleStats {
	t.Helper()
	if diff := cmp.Diff(wantInput, planner.ExplainLines(plan)); diff != "" {
		t.Fatalf("input plan mismatch (-want +got):\n%s", diff)
	}

	rule := NewEnforceSorting(nil, nil)
	optimized, err := rule.Optimize(plan, cfg)
	require.NoError(t, err)
	if diff := cmp.Diff(wantOptimized, planner.ExplainLines(optimized)); diff != "" {
		t.Fatalf("optimized plan mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, CheckPlan(optimized))
	return rule.Stats()
}
