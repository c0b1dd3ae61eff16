package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemsetKeyIsOrderIndependent(t *testing.T) {
	a := NewItemset("b", "a")
	b := NewItemset("a", "b")
	assert.Equal(t, a.Key(), b.Key())
}

func TestItemsetUnionDeduplicates(t *testing.T) {
	a := NewItemset("a", "b")
	b := NewItemset("b", "c")
	u := a.Union(b)
	assert.Equal(t, []string{"a", "b", "c"}, u.Items)
}

func TestJoinCandidateRequiresAllButOneSharedItem(t *testing.T) {
	x := NewItemset("a", "b")
	y := NewItemset("a", "c")
	cand, ok := JoinCandidate(x, y)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, cand.Items)

	_, ok = JoinCandidate(x, NewItemset("d", "e"))
	assert.False(t, ok)
}

func TestDatabasePartitionRoundRobin(t *testing.T) {
	db := NewDatabase([]Transaction{
		{TID: "t0", Prob: 1, Items: map[string]ItemFact{"a": {1, 1}}},
		{TID: "t1", Prob: 1, Items: map[string]ItemFact{"a": {1, 1}}},
		{TID: "t2", Prob: 1, Items: map[string]ItemFact{"a": {1, 1}}},
	})
	parts := db.Partition(2)
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 2)
	assert.Len(t, parts[1], 1)
}

func TestTransactionValidateRejectsNaN(t *testing.T) {
	tx := Transaction{TID: "t", Prob: 1, Items: map[string]ItemFact{"a": {1, nan()}}}
	assert.Error(t, tx.Validate())
}

func nan() float64 {
	var zero float64
	return zero / zero
}
