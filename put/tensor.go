// Package put implements the Probabilistic Utility Tensor: a precomputed
// single-item expected-utility map, an inverted item-to-transaction index,
// and an itemset expected-utility memoization map, built once by the
// coordinator before any worker starts.
package put

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/DRuanli/PHANTOM/core"
)

// Tensor is the PUT. Postings is immutable after Build; Memo is the only
// mutable part, and concurrent writes to the same key are idempotent
// (the underlying computation is deterministic), so races on it are
// benign last-writer-wins.
type Tensor struct {
	DB         *core.Database
	SingleEU   map[string]float64
	Postings   map[string]*roaring.Bitmap // item -> transaction indices containing it
	Memo       *sync.Map                  // itemset key -> eu
	negatives  map[string]bool            // item -> true if negative in any transaction
	meanUtil   map[string]float64         // item -> mean per-transaction utility, for PBC's U+/U- split
}

// Build constructs the inverted index, the negative-item flags, and each
// item's mean per-transaction utility from db. SingleEU is left to be
// filled by the caller (typically
// the coordinator, via calculator.Calculator.Compute on every singleton)
// so the EUC formula stays the single source of truth for expected
// utility, including for single items.
func Build(db *core.Database) *Tensor {
	t := &Tensor{
		DB:        db,
		SingleEU:  make(map[string]float64, len(db.Items)),
		Postings:  make(map[string]*roaring.Bitmap, len(db.Items)),
		Memo:      &sync.Map{},
		negatives: make(map[string]bool, len(db.Items)),
		meanUtil:  make(map[string]float64, len(db.Items)),
	}

	sums := make(map[string]float64, len(db.Items))
	counts := make(map[string]int, len(db.Items))

	for idx, tx := range db.Transactions {
		for item, fact := range tx.Items {
			bm, ok := t.Postings[item]
			if !ok {
				bm = roaring.New()
				t.Postings[item] = bm
			}
			bm.Add(uint32(idx))
			if fact.Utility < 0 {
				t.negatives[item] = true
			}
			sums[item] += fact.Utility
			counts[item]++
		}
	}
	for item, sum := range sums {
		if counts[item] > 0 {
			t.meanUtil[item] = sum / float64(counts[item])
		}
	}
	return t
}

// TransactionsOf returns the bitmap of transaction indices containing
// every item of x, computed by intersecting each member item's posting
// list. A nil/empty bitmap means x never co-occurs in any transaction.
func (t *Tensor) TransactionsOf(x core.Itemset) *roaring.Bitmap {
	if x.Len() == 0 {
		return roaring.New()
	}
	var result *roaring.Bitmap
	for _, item := range x.Items {
		bm, ok := t.Postings[item]
		if !ok {
			return roaring.New()
		}
		if result == nil {
			result = bm.Clone()
			continue
		}
		result.And(bm)
	}
	if result == nil {
		return roaring.New()
	}
	return result
}

// HasNegative reports whether item is negative-utility in at least one
// transaction.
func (t *Tensor) HasNegative(item string) bool { return t.negatives[item] }

// MeanUtility returns the mean per-transaction utility for item, used to
// classify it into PBC's U+/U- partition (mean > 0 is candidate-positive).
func (t *Tensor) MeanUtility(item string) float64 { return t.meanUtil[item] }

// MemoLookup consults the memoization map for x's canonical key.
func (t *Tensor) MemoLookup(x core.Itemset) (float64, bool) {
	v, ok := t.Memo.Load(x.Key())
	if !ok {
		return 0, false
	}
	return v.(float64), true
}

// MemoStore writes eu for x's canonical key. Idempotent: concurrent
// stores of the same key with the same (deterministically computed)
// value are harmless races.
func (t *Tensor) MemoStore(x core.Itemset, eu float64) {
	t.Memo.Store(x.Key(), eu)
}

// Support returns the number of transactions containing item, or 0 if it
// never occurs. Used by the Polar Bounds Calculator's corr(X, i, T)
// support-based conditional probability estimate.
func (t *Tensor) Support(item string) int {
	bm, ok := t.Postings[item]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// CoSupport returns the number of transactions containing both every
// item of x and item i.
func (t *Tensor) CoSupport(x core.Itemset, i string) int {
	bm, ok := t.Postings[i]
	if !ok {
		return 0
	}
	txs := t.TransactionsOf(x)
	return int(txs.AndCardinality(bm))
}
