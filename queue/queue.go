// Package queue provides a heap.Interface-compatible bounded priority
// queue of itemsets, ordered by expected utility. It backs topk.TopK's
// min-ordered heap.
package queue

import (
	"container/heap"

	"github.com/DRuanli/PHANTOM/core"
)

// Compile time check to ensure PriorityQueue satisfies the heap interface.
var _ heap.Interface = (*PriorityQueue)(nil)

// PriorityQueueItem is one entry in the queue: an itemset and the EU it
// was inserted with (itemsets are deep-copied on insertion, so this EU
// cannot drift from the itemset's own EU field afterward).
type PriorityQueueItem struct {
	Itemset core.Itemset
	EU      float64 // EU is the priority of the item in the queue.
	Index   int     // Index is needed by update and is maintained by the heap.Interface methods.
}

// PriorityQueue implements heap.Interface and holds PriorityQueueItems.
// Order selects ascending (min-heap, Order=false) or descending
// (max-heap, Order=true) ordering by EU. topk.TopK uses a min-heap so
// the root is always the current Kth-best candidate.
type PriorityQueue struct {
	Order bool
	Items []*PriorityQueueItem
}

// Len returns the number of elements in the priority queue.
func (pq *PriorityQueue) Len() int { return len(pq.Items) }

// Less reports whether the element with index i should sort before the element with index j.
func (pq *PriorityQueue) Less(i, j int) bool {
	if !pq.Order {
		return pq.Items[i].EU < pq.Items[j].EU
	}
	return pq.Items[i].EU > pq.Items[j].EU
}

// Swap swaps the elements with indexes i and j.
func (pq *PriorityQueue) Swap(i, j int) {
	pq.Items[i], pq.Items[j] = pq.Items[j], pq.Items[i]
	pq.Items[i].Index, pq.Items[j].Index = i, j
}

// Push adds x to the priority queue.
func (pq *PriorityQueue) Push(x any) {
	item, _ := x.(*PriorityQueueItem)
	item.Index = len(pq.Items)
	pq.Items = append(pq.Items, item)
}

// Pop removes and returns the top element from the priority queue.
func (pq *PriorityQueue) Pop() any {
	if len(pq.Items) == 0 {
		return nil
	}

	old := pq.Items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.Index = -1
	pq.Items = old[:n-1]

	return item
}

// Top returns the top element of the priority queue without removing it.
func (pq *PriorityQueue) Top() any {
	if len(pq.Items) == 0 {
		return nil
	}
	return pq.Items[0]
}

// Clone returns a deep copy of pq, safe to mutate independently of the
// original — used by topk.TopK's copy-on-write state swap.
func (pq *PriorityQueue) Clone() *PriorityQueue {
	items := make([]*PriorityQueueItem, len(pq.Items))
	for i, it := range pq.Items {
		cp := *it
		cp.Itemset = it.Itemset.Clone()
		items[i] = &cp
	}
	return &PriorityQueue{Order: pq.Order, Items: items}
}
