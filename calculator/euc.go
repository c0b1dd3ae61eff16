// Package calculator implements the Expected Utility Calculator: the
// probability-weighted, variance-discounted expected utility of an
// itemset across the transactions that contain it.
package calculator

import (
	"math"

	"github.com/DRuanli/PHANTOM/core"
	"github.com/DRuanli/PHANTOM/put"
)

// DefaultAlpha is the uncertainty-discount factor used when the caller
// does not configure one.
const DefaultAlpha = 0.1

// earlyExitThreshold is the running-product floor below which a
// transaction's contribution is treated as zero during probability
// accumulation.
const earlyExitThreshold = 1e-10

// Calculator computes EU(X) per the formula:
//
//	EU(X) = ( Σ_T P(T)·Πp_i(T)·Σu_i(T) ) · 1 / (1 + α·var(X))
//
// optionally augmented by a caller-supplied synergy bonus table. Results
// are memoized in the associated Tensor.
type Calculator struct {
	Alpha     float64
	Synergies map[string]float64 // canonical subset key -> bonus, empty to disable
	Tensor    *put.Tensor
}

// New returns a Calculator with the default alpha and synergies disabled.
func New(tensor *put.Tensor) *Calculator {
	return &Calculator{Alpha: DefaultAlpha, Tensor: tensor}
}

// Compute returns EU(X), consulting and populating the Tensor's
// memoization map. The second call for the same canonical key performs
// no transaction scan.
func (c *Calculator) Compute(db *core.Database, x core.Itemset) float64 {
	if eu, ok := c.Tensor.MemoLookup(x); ok {
		return eu
	}

	txs := c.Tensor.TransactionsOf(x)
	it := txs.Iterator()

	samples := make([]weightedSample, 0, int(txs.GetCardinality()))

	var total float64
	for it.HasNext() {
		idx := it.Next()
		tx := db.Transactions[idx]

		prodP := 1.0
		sumU := 0.0
		for _, item := range x.Items {
			fact, ok := tx.Items[item]
			if !ok {
				prodP = 0
				break
			}
			prodP *= fact.Prob
			sumU += fact.Utility
			if prodP < earlyExitThreshold {
				prodP = 0
				break
			}
		}
		if prodP <= 0 {
			continue
		}
		sumU += c.synergyBonus(x, tx)

		weight := tx.Prob * prodP
		total += weight * sumU
		samples = append(samples, weightedSample{weight: weight, util: sumU})
	}

	variance := weightedCoefficientOfVariation(samples)
	eu := total / (1 + c.Alpha*variance)

	c.Tensor.MemoStore(x, eu)
	return eu
}

// synergyBonus sums every configured (subset -> bonus) pair whose subset
// is contained in x, evaluated against tx's item membership (a synergy
// only applies in transactions where the whole subset co-occurs).
func (c *Calculator) synergyBonus(x core.Itemset, tx core.Transaction) float64 {
	if len(c.Synergies) == 0 {
		return 0
	}
	var bonus float64
	for key, amount := range c.Synergies {
		subset := keyToItemset(key)
		if !x.ContainsAll(subset) {
			continue
		}
		all := true
		for _, item := range subset.Items {
			if !tx.Has(item) {
				all = false
				break
			}
		}
		if all {
			bonus += amount
		}
	}
	return bonus
}

func keyToItemset(key string) core.Itemset {
	return core.Itemset{Items: splitKey(key)}
}

func splitKey(key string) []string {
	if key == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(key); i++ {
		if key[i] == 0x1f {
			out = append(out, key[start:i])
			start = i + 1
		}
	}
	out = append(out, key[start:])
	return out
}

// weightedSample is one transaction's (weight, per-transaction utility)
// pair, used to compute the weighted coefficient of variation.
type weightedSample struct {
	weight float64
	util   float64
}

// weightedCoefficientOfVariation computes var(X), the weighted
// coefficient of variation of per-transaction utility under weights
// w(T) = P(T)·Πp_i(T). Returns 0 if total weight is 0 or fewer than two
// samples are present.
func weightedCoefficientOfVariation(samples []weightedSample) float64 {
	if len(samples) < 2 {
		return 0
	}
	var totalWeight float64
	for _, s := range samples {
		totalWeight += s.weight
	}
	if totalWeight == 0 {
		return 0
	}

	var mean float64
	for _, s := range samples {
		mean += s.weight * s.util
	}
	mean /= totalWeight

	var variance float64
	for _, s := range samples {
		d := s.util - mean
		variance += s.weight * d * d
	}
	variance /= totalWeight

	if mean == 0 {
		return 0
	}
	return math.Sqrt(variance) / math.Abs(mean)
}
