package bounds

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DRuanli/PHANTOM/calculator"
	"github.com/DRuanli/PHANTOM/core"
	"github.com/DRuanli/PHANTOM/put"
)

func TestBoundsNegativeItemPruning(t *testing.T) {
	db := core.NewDatabase([]core.Transaction{
		{TID: "T1", Prob: 1, Items: map[string]core.ItemFact{"a": {1, 100}, "b": {1, -80}}},
		{TID: "T2", Prob: 1, Items: map[string]core.ItemFact{"a": {1, 100}}},
	})
	tensor := put.Build(db)
	calc := calculator.New(tensor)
	calc.Alpha = 0

	universe := db.ItemList()

	b := New(tensor)
	bItemset := core.NewItemset("b")
	bItemset.EU = calc.Compute(db, bItemset)

	ub, _ := b.Bounds(db, bItemset, universe)
	assert.Less(t, ub, 200.0, "UB({b}) must be strictly less than EU({a}) = 200 so the worker prunes {b}")
}

func TestBoundsDegenerateToEUWhenNoCoOccurrence(t *testing.T) {
	db := core.NewDatabase([]core.Transaction{
		{TID: "T1", Prob: 1, Items: map[string]core.ItemFact{"a": {1, 10}}},
	})
	tensor := put.Build(db)
	calc := calculator.New(tensor)
	calc.Alpha = 0

	a := core.NewItemset("a")
	a.EU = calc.Compute(db, a)

	b := New(tensor)
	ub, lb := b.Bounds(db, a, db.ItemList())
	assert.InDelta(t, a.EU, ub, 1e-9)
	assert.InDelta(t, a.EU, lb, 1e-9)
}

func TestStrictModeForcesOmegaToOne(t *testing.T) {
	b := &Calculator{Omega: 0.5, StrictMode: true}
	assert.Equal(t, 1.0, b.omega())
}
