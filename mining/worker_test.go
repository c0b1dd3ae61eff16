package mining

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DRuanli/PHANTOM/bounds"
	"github.com/DRuanli/PHANTOM/calculator"
	"github.com/DRuanli/PHANTOM/core"
	"github.com/DRuanli/PHANTOM/partition"
	"github.com/DRuanli/PHANTOM/put"
	"github.com/DRuanli/PHANTOM/topk"
)

func TestWorkerRunThreeItemPositive(t *testing.T) {
	db := core.NewDatabase([]core.Transaction{
		{TID: "T1", Prob: 1.0, Items: map[string]core.ItemFact{"a": {1.0, 10}, "b": {1.0, 20}}},
		{TID: "T2", Prob: 1.0, Items: map[string]core.ItemFact{"a": {1.0, 10}, "c": {1.0, 30}}},
	})
	tensor := put.Build(db)
	calc := calculator.New(tensor)
	calc.Alpha = 0
	pbc := bounds.New(tensor)
	tk := topk.New(2)

	universe := db.ItemList()
	p := partition.New(0, universe, db.Transactions)
	w := NewWorker(db, universe, p, tensor, calc, pbc, tk)

	require.NoError(t, w.Run(context.Background()))

	snap := tk.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, 40.0, snap[0].EU) // {a,c}
	assert.Equal(t, 30.0, snap[1].EU) // {a,b}
}

func TestWorkerNeverEmitsPastMaxItemsetSize(t *testing.T) {
	db := core.NewDatabase([]core.Transaction{
		{TID: "T1", Prob: 1.0, Items: map[string]core.ItemFact{
			"a": {1.0, 10}, "b": {1.0, 20}, "c": {1.0, 30},
		}},
	})
	tensor := put.Build(db)
	calc := calculator.New(tensor)
	calc.Alpha = 0
	pbc := bounds.New(tensor)
	tk := topk.New(10)

	universe := db.ItemList()
	p := partition.New(0, universe, db.Transactions)
	w := NewWorker(db, universe, p, tensor, calc, pbc, tk)
	w.Cfg.MaxItemsetSize = 2

	require.NoError(t, w.Run(context.Background()))

	for _, x := range tk.Snapshot() {
		assert.LessOrEqual(t, x.Len(), 2, "itemset %v exceeds the configured MaxItemsetSize", x.Items)
	}
}

// TestWorkerSurvivesPositiveThresholdAcrossLevels exercises a run where
// the shared threshold turns positive partway through level-2 (forced by
// a sync interval of 1, so every evaluated pair flushes immediately).
// Speculation is disabled so that only the level-3 join can reach
// {a,b,c}. A worker that discards evaluate's computed UB/LB before
// filtering survivors would see every level-2 candidate's zero-valued
// UB fail against the now-positive threshold and stop before ever
// joining the level-3 candidate, missing the true best itemset.
func TestWorkerSurvivesPositiveThresholdAcrossLevels(t *testing.T) {
	db := core.NewDatabase([]core.Transaction{
		{TID: "T1", Prob: 1.0, Items: map[string]core.ItemFact{
			"a": {1.0, 100}, "b": {1.0, 100}, "c": {1.0, 100},
		}},
	})
	tensor := put.Build(db)
	calc := calculator.New(tensor)
	calc.Alpha = 0
	pbc := bounds.New(tensor)
	tk := topk.New(1)

	universe := db.ItemList()
	p := partition.New(0, universe, db.Transactions)
	w := NewWorker(db, universe, p, tensor, calc, pbc, tk)
	w.Cfg.SyncInterval = 1
	w.Cfg.MaxSpeculation = 0

	require.NoError(t, w.Run(context.Background()))

	snap := tk.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 300.0, snap[0].EU, "expected {a,b,c} (EU=300) to survive into level 3, got %v", snap[0].Items)
}

func TestWorkerTerminatesWhenDoneFlagSet(t *testing.T) {
	db := core.NewDatabase([]core.Transaction{
		{TID: "T1", Prob: 1, Items: map[string]core.ItemFact{"a": {1, 1}, "b": {1, 1}}},
	})
	tensor := put.Build(db)
	calc := calculator.New(tensor)
	pbc := bounds.New(tensor)
	tk := topk.New(5)

	universe := db.ItemList()
	p := partition.New(0, universe, db.Transactions)
	p.Done.Store(true)
	w := NewWorker(db, universe, p, tensor, calc, pbc, tk)

	require.NoError(t, w.Run(context.Background()))
}
