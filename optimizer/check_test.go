package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mit.edu/dsg/physopt/common"
	"mit.edu/dsg/physopt/planner"
)

func TestCheckPlan(t *testing.T) {
	tests := []struct {
		name    string
		plan    planner.PlanNode
		wantErr string
	}{
		{
			name: "sorted merge",
			plan: sortPreservingMerge(sortExec(roundRobin(memoryScan(1), 4), order(asc("a"))).WithPreservePartitioning(true), order(asc("a"))),
		},
		{
			name: "window over sorted scan",
			plan: countWindow(memoryScan(1, order(asc("a"), asc("b"))), order(asc("a"))),
		},
		{
			name:    "merge over unsorted input",
			plan:    sortPreservingMerge(roundRobin(memoryScan(1), 4), order(asc("a"))),
			wantErr: "requires ordering [a@0 ASC] from input 0",
		},
		{
			name:    "global sort over partitions",
			plan:    sortExec(roundRobin(memoryScan(1), 4), order(asc("a"))),
			wantErr: "requires a single partition from input 0, which has 4",
		},
		{
			name:    "violation below a valid operator",
			plan:    planner.NewCoalesceBatchesNode(countWindow(memoryScan(1), order(asc("b"))), 128),
			wantErr: "requires ordering [b@1 ASC] from input 0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPlan(tt.plan)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, common.HasCode(err, common.InvalidPlanError))
		})
	}
}
