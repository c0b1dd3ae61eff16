package engine

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DRuanli/PHANTOM/core"
)

func fourItemDatabase() *core.Database {
	return core.NewDatabase([]core.Transaction{
		{TID: "T1", Prob: 1.0, Items: map[string]core.ItemFact{
			"bread": {Prob: 1.0, Utility: 10}, "milk": {Prob: 1.0, Utility: 20},
		}},
		{TID: "T2", Prob: 1.0, Items: map[string]core.ItemFact{
			"bread": {Prob: 1.0, Utility: 10}, "eggs": {Prob: 1.0, Utility: 30},
		}},
		{TID: "T3", Prob: 0.8, Items: map[string]core.ItemFact{
			"milk": {Prob: 1.0, Utility: 20}, "eggs": {Prob: 1.0, Utility: 30}, "soda": {Prob: 1.0, Utility: -5},
		}},
		{TID: "T4", Prob: 1.0, Items: map[string]core.ItemFact{
			"bread": {Prob: 1.0, Utility: 10}, "milk": {Prob: 1.0, Utility: 20}, "eggs": {Prob: 1.0, Utility: 30},
		}},
	})
}

// TestCoordinatorMineReturnsTopKSortedDescending runs the search as a
// single partition, so the level-wise join has every item available.
// The worker never emits bare singletons, so the true top-3 over this
// database's size->=2 itemsets is {milk,eggs}=90, {bread,eggs}=80, and
// a tie at 60 between {bread,milk} and {bread,milk,eggs}.
func TestCoordinatorMineReturnsTopKSortedDescending(t *testing.T) {
	c := NewCoordinator(1)
	c.Alpha = 0

	results, err := c.Mine(context.Background(), fourItemDatabase(), 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].EU, results[i].EU)
	}

	assert.InDelta(t, 90.0, results[0].EU, 1e-9)
	assert.InDelta(t, 80.0, results[1].EU, 1e-9)
	assert.InDelta(t, 60.0, results[2].EU, 1e-9)
}

// TestCoordinatorMineWithMultipleProcessorsStaysWellFormed exercises the
// partitioned path (chunking, per-partition workers, rebalance polling).
// A worker only joins itemsets drawn from its own partition's items, so
// splitting the universe across more partitions than this database has
// joinable items per partition surfaces fewer itemsets than a single
// partition would; the assertions below only pin down shape, not
// equality with the single-partition run.
func TestCoordinatorMineWithMultipleProcessorsStaysWellFormed(t *testing.T) {
	c := NewCoordinator(2)
	c.Alpha = 0

	results, err := c.Mine(context.Background(), fourItemDatabase(), 3)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 3)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].EU, results[i].EU)
	}
}

func TestCoordinatorMineRejectsNonPositiveK(t *testing.T) {
	c := NewCoordinator(2)
	_, err := c.Mine(context.Background(), fourItemDatabase(), 0)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestCoordinatorMineRejectsNumericAnomaly(t *testing.T) {
	db := core.NewDatabase([]core.Transaction{
		{TID: "T1", Prob: 1.0, Items: map[string]core.ItemFact{
			"a": {Prob: 1.0, Utility: 0}, "b": {Prob: 1.0, Utility: math.NaN()},
		}},
	})

	c := NewCoordinator(2)
	_, err := c.Mine(context.Background(), db, 1)
	assert.ErrorIs(t, err, ErrNumericAnomaly)
}

func TestCoordinatorMineOnEmptyDatabaseReturnsNoResultsNoError(t *testing.T) {
	c := NewCoordinator(2)
	results, err := c.Mine(context.Background(), core.NewDatabase(nil), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
