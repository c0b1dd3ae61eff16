package convergence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/DRuanli/PHANTOM/core"
)

func mkItemset(eu, ub float64, items ...string) core.Itemset {
	x := core.NewItemset(items...)
	x.EU, x.UB = eu, ub
	return x
}

func TestWorkExhaustionFiresOnExhaustedInput(t *testing.T) {
	m := New()
	now := time.Now()

	// 3 items => 2^3-1 = 7 itemsets budgeted; fully processed.
	snap := Snapshot{
		TopK:                 []core.Itemset{mkItemset(10, 10, "a")},
		PartitionUpperBounds: []float64{10},
		Processed:            []int64{7},
		Budgets:              []int64{7},
		Now:                  now,
		LastChangeAt:         now,
	}
	result := m.Poll(snap)
	assert.True(t, result.Exhausted)
	assert.True(t, result.Converged)
}

func TestStabilityRequiresTenIdenticalPolls(t *testing.T) {
	m := New()
	now := time.Now()
	snap := Snapshot{
		TopK:                 []core.Itemset{mkItemset(10, 20, "a")},
		PartitionUpperBounds: []float64{10},
		Processed:            []int64{1},
		Budgets:              []int64{1000},
		Now:                  now,
		LastChangeAt:         now,
	}

	var result Result
	for i := 0; i < StabilityThreshold; i++ {
		result = m.Poll(snap)
	}
	assert.True(t, result.Stable)
}

func TestBoundConvergenceRequiresTightBound(t *testing.T) {
	m := New()
	now := time.Now()
	snap := Snapshot{
		TopK:                 []core.Itemset{mkItemset(100, 100, "a")},
		PartitionUpperBounds: []float64{1000}, // far from tau
		Processed:            []int64{1},
		Budgets:              []int64{1_000_000},
		Now:                  now,
		LastChangeAt:         now,
	}
	result := m.Poll(snap)
	assert.False(t, result.BoundsOK)
}
