package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomDatabaseProducesRequestedTransactionCount(t *testing.T) {
	rng := NewRNG(4711)
	db := rng.RandomDatabase(20, 10)

	require.Len(t, db.Transactions, 20)
	assert.LessOrEqual(t, len(db.Items), 10)
}

func TestRandomDatabaseIsDeterministicForSameSeed(t *testing.T) {
	a := RandomDatabase(42, 5, 6)
	b := RandomDatabase(42, 5, 6)

	require.Equal(t, len(a.Transactions), len(b.Transactions))
	for i := range a.Transactions {
		assert.Equal(t, a.Transactions[i].TID, b.Transactions[i].TID)
		assert.InDelta(t, a.Transactions[i].Prob, b.Transactions[i].Prob, 1e-12)
	}
}
