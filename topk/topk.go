// Package topk implements the global, concurrency-safe bounded top-K:
// a min-ordered priority queue of at most K itemsets keyed by expected
// utility, with version-stamped optimistic updates and a published
// pruning threshold.
package topk

import (
	"container/heap"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DRuanli/PHANTOM/core"
	"github.com/DRuanli/PHANTOM/queue"
)

// ConsolidationThreshold is the number of successful updates between
// writer-side re-heapify-and-trim passes that reconcile the heap and
// the membership set.
const ConsolidationThreshold = 100

// MaxRetries bounds the optimistic compare-and-set backoff retries per
// candidate before it is dropped.
const MaxRetries = 10

type state struct {
	pq      *queue.PriorityQueue
	members map[string]struct{}
}

// TopK is the lock-free shared top-K. Readers (Threshold, Snapshot)
// take a wait-free atomic load of the current state; writers
// (Update's internal CAS loop) serialize on writeMu while swapping the
// state pointer and bumping version.
type TopK struct {
	k         int
	state     atomic.Value // holds *state
	writeMu   sync.Mutex
	version   atomic.Uint64
	threshold atomic.Value // float64
	updates   atomic.Uint64
	drops     atomic.Uint64
}

// New returns an empty TopK bounded at k items.
func New(k int) *TopK {
	t := &TopK{k: k}
	t.state.Store(&state{pq: &queue.PriorityQueue{Order: false}, members: make(map[string]struct{})})
	t.threshold.Store(math.Inf(-1))
	return t
}

// Threshold returns the current minimum EU if the queue holds K items,
// else -Inf.
func (t *TopK) Threshold() float64 {
	return t.threshold.Load().(float64)
}

// ThresholdRef exposes the underlying atomic cell so a worker can read
// it with a single wait-free load before each candidate's bound check,
// per the shared threshold reference described in the concurrency
// model.
func (t *TopK) ThresholdRef() *atomic.Value {
	return &t.threshold
}

// Version returns the current monotonically increasing version stamp.
func (t *TopK) Version() uint64 {
	return t.version.Load()
}

// Size returns the current number of items held.
func (t *TopK) Size() int {
	s := t.state.Load().(*state)
	return s.pq.Len()
}

// Dropped returns the number of candidates dropped after exhausting
// MaxRetries contention retries.
func (t *TopK) Dropped() uint64 { return t.drops.Load() }

// Update merges a sorted-descending list of candidates into the shared
// top-K. For each candidate, while it would enter the queue (queue not
// yet full, or candidate.EU exceeds the current minimum), an optimistic
// compare-and-set of the whole state is attempted under bounded
// exponential backoff. Inserting a duplicate itemset is a no-op
// success. Once a candidate fails to beat the minimum, all lighter
// (later, since the input is sorted descending) candidates are skipped.
func (t *TopK) Update(candidates []core.Itemset) {
	for _, cand := range candidates {
		if !t.tryInsert(cand) {
			// Either it was a clean reject (not better than the
			// current minimum) or contention exhausted retries.
			// Once a candidate fails to beat the minimum, skip
			// every lighter candidate that follows.
			if !t.wouldEnter(cand) {
				break
			}
		}
	}
}

// wouldEnter reports whether cand currently qualifies to enter the
// queue (queue not full, or EU exceeds the current minimum).
func (t *TopK) wouldEnter(cand core.Itemset) bool {
	s := t.state.Load().(*state)
	if s.pq.Len() < t.k {
		return true
	}
	min := s.pq.Top().(*queue.PriorityQueueItem)
	return cand.EU > min.EU
}

// tryInsert attempts to insert cand, retrying on optimistic-CAS
// contention with bounded exponential backoff. Returns false if the
// candidate was rejected (not competitive) or dropped after exhausting
// retries.
func (t *TopK) tryInsert(cand core.Itemset) bool {
	for attempt := 0; attempt < MaxRetries; attempt++ {
		s := t.state.Load().(*state)

		if _, dup := s.members[cand.Key()]; dup {
			return true // duplicate insertion is a no-op success
		}
		if s.pq.Len() >= t.k {
			min := s.pq.Top().(*queue.PriorityQueueItem)
			if cand.EU <= min.EU {
				return false
			}
		}

		if t.writeMu.TryLock() {
			t.applyInsert(s, cand)
			t.writeMu.Unlock()
			return true
		}

		backoff(attempt)
	}
	t.drops.Add(1)
	return false
}

// applyInsert performs the actual copy-on-write state transition. The
// caller must hold writeMu.
func (t *TopK) applyInsert(old *state, cand core.Itemset) {
	// Re-check against the freshest state now that we hold the lock:
	// another writer may have advanced it since our optimistic read.
	cur := t.state.Load().(*state)
	if _, dup := cur.members[cand.Key()]; dup {
		return
	}
	if cur.pq.Len() >= t.k {
		min := cur.pq.Top().(*queue.PriorityQueueItem)
		if cand.EU <= min.EU {
			return
		}
	}

	next := &state{pq: cur.pq.Clone(), members: cloneMembers(cur.members)}

	heap.Push(next.pq, &queue.PriorityQueueItem{Itemset: cand.Clone(), EU: cand.EU})
	next.members[cand.Key()] = struct{}{}

	if next.pq.Len() > t.k {
		popped := heap.Pop(next.pq).(*queue.PriorityQueueItem)
		delete(next.members, popped.Itemset.Key())
	}

	t.state.Store(next)
	t.version.Add(1)

	if next.pq.Len() >= t.k {
		min := next.pq.Top().(*queue.PriorityQueueItem)
		publishNonDecreasing(&t.threshold, min.EU)
	}

	if n := t.updates.Add(1); n%ConsolidationThreshold == 0 {
		t.consolidate()
	}
}

// consolidate re-heapifies and trims to K, reconciling the heap and
// membership set. Must be called with writeMu held.
func (t *TopK) consolidate() {
	cur := t.state.Load().(*state)
	items := make([]*queue.PriorityQueueItem, len(cur.pq.Items))
	copy(items, cur.pq.Items)

	sort.Slice(items, func(i, j int) bool { return items[i].EU > items[j].EU })
	if len(items) > t.k {
		items = items[:t.k]
	}

	members := make(map[string]struct{}, len(items))
	for i, it := range items {
		it.Index = i
		members[it.Itemset.Key()] = struct{}{}
	}

	pq := &queue.PriorityQueue{Order: false, Items: items}
	heap.Init(pq)

	t.state.Store(&state{pq: pq, members: members})
}

// Snapshot returns the current contents sorted descending by EU,
// truncated to K — the final extraction operation.
func (t *TopK) Snapshot() []core.Itemset {
	s := t.state.Load().(*state)
	out := make([]core.Itemset, len(s.pq.Items))
	for i, it := range s.pq.Items {
		out[i] = it.Itemset.Clone()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EU > out[j].EU })
	if len(out) > t.k {
		out = out[:t.k]
	}
	return out
}

func cloneMembers(m map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

// publishNonDecreasing stores v only if it is not smaller than the
// currently published threshold, preserving the monotone-non-decreasing
// guarantee even if a slightly stale writer races to publish after a
// newer one already raised the bar.
func publishNonDecreasing(cell *atomic.Value, v float64) {
	for {
		cur := cell.Load().(float64)
		if v <= cur {
			return
		}
		cell.Store(v)
		return
	}
}

// backoff sleeps for a bounded exponential duration proportional to
// attempt, used between optimistic-CAS retries.
func backoff(attempt int) {
	d := time.Duration(1<<uint(attempt)) * time.Microsecond
	if d > 2*time.Millisecond {
		d = 2 * time.Millisecond
	}
	time.Sleep(d)
}
