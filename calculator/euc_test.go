package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DRuanli/PHANTOM/core"
	"github.com/DRuanli/PHANTOM/put"
)

func buildDB(txs []core.Transaction) *core.Database {
	return core.NewDatabase(txs)
}

func TestComputeThreeItemPositive(t *testing.T) {
	db := buildDB([]core.Transaction{
		{TID: "T1", Prob: 1.0, Items: map[string]core.ItemFact{"a": {1.0, 10}, "b": {1.0, 20}}},
		{TID: "T2", Prob: 1.0, Items: map[string]core.ItemFact{"a": {1.0, 10}, "c": {1.0, 30}}},
	})
	tensor := put.Build(db)
	c := &Calculator{Alpha: 0, Tensor: tensor}

	euAB := c.Compute(db, core.NewItemset("a", "b"))
	euAC := c.Compute(db, core.NewItemset("a", "c"))

	assert.InDelta(t, 30.0, euAB, 1e-9)
	assert.InDelta(t, 40.0, euAC, 1e-9)
}

func TestComputeProbabilisticDiscounting(t *testing.T) {
	db := buildDB([]core.Transaction{
		{TID: "T1", Prob: 0.5, Items: map[string]core.ItemFact{"a": {0.5, 10}}},
	})
	tensor := put.Build(db)
	c := &Calculator{Alpha: 0, Tensor: tensor}

	eu := c.Compute(db, core.NewItemset("a"))
	assert.InDelta(t, 2.5, eu, 1e-9)
}

func TestComputeNegativeItemPruningSetup(t *testing.T) {
	db := buildDB([]core.Transaction{
		{TID: "T1", Prob: 1, Items: map[string]core.ItemFact{"a": {1, 100}, "b": {1, -80}}},
		{TID: "T2", Prob: 1, Items: map[string]core.ItemFact{"a": {1, 100}}},
	})
	tensor := put.Build(db)
	c := &Calculator{Alpha: 0, Tensor: tensor}

	euA := c.Compute(db, core.NewItemset("a"))
	euAB := c.Compute(db, core.NewItemset("a", "b"))

	assert.InDelta(t, 200.0, euA, 1e-9)
	assert.InDelta(t, 20.0, euAB, 1e-9)
}

func TestComputeIsMemoized(t *testing.T) {
	db := buildDB([]core.Transaction{
		{TID: "T1", Prob: 1, Items: map[string]core.ItemFact{"a": {1, 5}}},
	})
	tensor := put.Build(db)
	c := &Calculator{Alpha: 0, Tensor: tensor}

	x := core.NewItemset("a")
	first := c.Compute(db, x)
	_, cached := tensor.MemoLookup(x)
	second := c.Compute(db, x)

	assert.True(t, cached)
	assert.Equal(t, first, second)
}
