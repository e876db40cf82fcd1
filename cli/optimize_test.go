package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mit.edu/dsg/physopt/codec"
	"mit.edu/dsg/physopt/planner"
)

const catalogDir = "testdata/catalog"

func planPath(name string) string {
	return filepath.Join("testdata", "plans", name+".yaml")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestOptimizeGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, name := range []string{"redundant_sort", "parallelize"} {
		t.Run(name, func(t *testing.T) {
			out, err := execute(t, "--catalog", catalogDir, "optimize", "--stats", planPath(name))
			require.NoError(t, err)
			g.Assert(t, name, []byte(out))
		})
	}
}

func TestOptimizeWithoutRepartitionSorts(t *testing.T) {
	out, err := execute(t, "--catalog", catalogDir, "optimize", "--repartition-sorts=false", planPath("parallelize"))
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"Sort: expr=[a@0 ASC]",
		"  CoalescePartitions",
		"    Repartition: partitioning=RoundRobinBatch(10), input_partitions=1",
		"      ParquetScan: table=t, file_groups=1, projection=[a, b, c]",
		"",
	}, "\n"), out)
}

func TestOptimizeConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "physopt.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("optimizer:\n  repartition_sorts: false\nlogging:\n  level: error\n"), 0644))

	out, err := execute(t, "--catalog", catalogDir, "--config", cfgPath, "optimize", planPath("parallelize"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Sort: expr=[a@0 ASC]\n  CoalescePartitions\n"), out)

	// An explicit flag wins over the file.
	out, err = execute(t, "--catalog", catalogDir, "--config", cfgPath, "optimize", "--repartition-sorts=true", planPath("parallelize"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "SortPreservingMerge: [a@0 ASC]\n"), out)
}

func TestOptimizeYAMLOutput(t *testing.T) {
	out, err := execute(t, "--catalog", catalogDir, "--format", "yaml", "optimize", planPath("parallelize"))
	require.NoError(t, err)

	plan, err := codec.Decode([]byte(out), nil)
	require.NoError(t, err)
	assert.Equal(t, planner.SortPreservingMergeKind, plan.Kind())
	assert.Equal(t, 1, plan.OutputPartitioning().PartitionCount())
}

func TestOptimizeErrors(t *testing.T) {
	_, err := execute(t, "optimize", planPath("parallelize"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table 't' does not exist")

	_, err = execute(t, "optimize", "testdata/plans/missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading plan")
}

func TestOptimizeFromStdin(t *testing.T) {
	doc, err := os.ReadFile(planPath("redundant_sort"))
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetIn(bytes.NewReader(doc))
	cmd.SetArgs([]string{"--catalog", catalogDir, "optimize", "-"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Sort: expr=[a@0 ASC]\n  MemoryScan: partitions=1\n", buf.String())
}
