// Package util provides the synthetic uncertain-database generator used
// by property-based adversarial tests; it is not exposed by the CLI.
package util

import (
	"fmt"
	"math/rand"

	"github.com/DRuanli/PHANTOM/core"
)

// RNG struct encapsulates the random number generator and seed.
type RNG struct {
	rand *rand.Rand
	seed int64
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), // nolint gosec
		seed: seed,
	}
}

// RandomDatabase generates a synthetic uncertain transactional database
// with up to maxItems distinct items and exactly numTx transactions,
// mixing positive and negative utilities. Used by the bound-admissibility
// property test to seek violations on adversarial inputs.
func (r *RNG) RandomDatabase(numTx, maxItems int) *core.Database {
	if maxItems <= 0 {
		maxItems = 1
	}
	universe := make([]string, maxItems)
	for i := range universe {
		universe[i] = fmt.Sprintf("item%d", i)
	}

	txs := make([]core.Transaction, 0, numTx)
	for t := 0; t < numTx; t++ {
		itemCount := 1 + r.rand.Intn(maxItems)
		perm := r.rand.Perm(maxItems)[:itemCount]

		items := make(map[string]core.ItemFact, itemCount)
		for _, idx := range perm {
			utility := r.rand.Float64()*200 - 100 // in [-100, 100)
			prob := 0.1 + r.rand.Float64()*0.9     // in [0.1, 1.0)
			items[universe[idx]] = core.ItemFact{Prob: prob, Utility: utility}
		}

		txs = append(txs, core.Transaction{
			TID:   fmt.Sprintf("T%d", t),
			Prob:  0.5 + r.rand.Float64()*0.5, // in [0.5, 1.0)
			Items: items,
		})
	}

	return core.NewDatabase(txs)
}

// RandomDatabase is a package-level convenience wrapper seeding a fresh
// RNG, so callers that only need one database don't have to construct
// an RNG themselves.
func RandomDatabase(seed int64, numTx, maxItems int) *core.Database {
	return NewRNG(seed).RandomDatabase(numTx, maxItems)
}
