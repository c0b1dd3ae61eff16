// Package partition defines a worker's slice of the item universe: its
// assigned items, progress counters, termination flag, and the current
// partition upper bound consulted by the convergence monitor.
package partition

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/DRuanli/PHANTOM/core"
)

// Partition is a worker's search partition. Items is mutated only by
// the coordinator's rebalance step (under Mu) and read by the owning
// worker; Processed, Done, and UpperBound are lock-free and safe for
// concurrent access by the worker and the convergence monitor.
type Partition struct {
	ID         int
	Mu         sync.Mutex // guards Items during rebalance transfers
	Items      []string
	Transactions []core.Transaction

	Processed  atomic.Int64
	Done       atomic.Bool
	UpperBound atomic.Value // float64, init +Inf

	claimed map[string]struct{} // items promoted past level 1; guarded by Mu
}

// New creates a partition with the given id, item slice, and transaction
// slice. UpperBound starts at +Inf.
func New(id int, items []string, txs []core.Transaction) *Partition {
	p := &Partition{ID: id, Items: items, Transactions: txs, claimed: make(map[string]struct{})}
	p.UpperBound.Store(math.Inf(1))
	return p
}

// SetUpperBound publishes a new partition upper bound.
func (p *Partition) SetUpperBound(v float64) {
	p.UpperBound.Store(v)
}

// GetUpperBound returns the current partition upper bound.
func (p *Partition) GetUpperBound() float64 {
	return p.UpperBound.Load().(float64)
}

// MarkClaimed records that item has been promoted past level 1 and is
// therefore no longer eligible for rebalance transfer.
func (p *Partition) MarkClaimed(item string) {
	p.Mu.Lock()
	defer p.Mu.Unlock()
	p.claimed[item] = struct{}{}
}

// Unclaimed returns the items in this partition not yet promoted past
// level 1 — the only items eligible to be migrated by the coordinator's
// load-rebalancing step, per the documented safe default of never
// touching an in-flight level.
func (p *Partition) Unclaimed() []string {
	p.Mu.Lock()
	defer p.Mu.Unlock()
	out := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		if _, claimed := p.claimed[item]; !claimed {
			out = append(out, item)
		}
	}
	return out
}

// TransferTo moves up to n unclaimed items from p to recipient. It holds
// both partitions' locks (in ID order, to avoid deadlock between two
// concurrent transfers) for the duration of the mutation.
func (p *Partition) TransferTo(recipient *Partition, n int) []string {
	first, second := p, recipient
	if recipient.ID < p.ID {
		first, second = recipient, p
	}
	first.Mu.Lock()
	defer first.Mu.Unlock()
	if second != first {
		second.Mu.Lock()
		defer second.Mu.Unlock()
	}

	var moved []string
	remaining := p.Items[:0:0]
	remaining = append(remaining, p.Items...)
	for i := 0; i < len(remaining) && len(moved) < n; {
		item := remaining[i]
		if _, claimed := p.claimed[item]; claimed {
			i++
			continue
		}
		moved = append(moved, item)
		remaining = append(remaining[:i], remaining[i+1:]...)
	}
	p.Items = remaining
	recipient.Items = append(recipient.Items, moved...)
	return moved
}

// ExhaustionBudget returns min(2^|S_i| - 1, 1_000_000), the processed-
// count ceiling at which the worker terminates even if the level search
// has not naturally ended.
func (p *Partition) ExhaustionBudget() int64 {
	n := len(p.Items)
	if n > 20 {
		return 1_000_000
	}
	budget := int64(1)<<uint(n) - 1
	if budget > 1_000_000 {
		return 1_000_000
	}
	return budget
}
