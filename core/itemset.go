package core

import (
	"sort"
	"strings"
)

// Itemset is a non-empty set of item identifiers, plus mutable utility
// metadata computed by the calculator and bounds packages. Equality and
// hashing are determined solely by the member set; Key is the canonical,
// order-independent string used both as a map key and as the PUT
// memoization key.
type Itemset struct {
	Items  []string
	EU     float64
	UB     float64
	LB     float64
	HasNeg bool
}

// NewItemset builds an Itemset from the given items, sorting a private
// copy so Key is stable regardless of caller ordering.
func NewItemset(items ...string) Itemset {
	cp := make([]string, len(items))
	copy(cp, items)
	sort.Strings(cp)
	return Itemset{Items: cp}
}

// Key returns the canonical, order-independent representation of the
// itemset's member set. Two itemsets with the same members produce the
// same Key regardless of construction order.
func (x Itemset) Key() string {
	return strings.Join(x.Items, "\x1f")
}

// Len returns the number of items in the set.
func (x Itemset) Len() int { return len(x.Items) }

// Contains reports whether item is a member of x.
func (x Itemset) Contains(item string) bool {
	for _, it := range x.Items {
		if it == item {
			return true
		}
	}
	return false
}

// ContainsAll reports whether every item of sub is a member of x.
func (x Itemset) ContainsAll(sub Itemset) bool {
	for _, it := range sub.Items {
		if !x.Contains(it) {
			return false
		}
	}
	return true
}

// Union returns a new Itemset containing the members of x and y, without
// mutating either input. The resulting EU/UB/LB/HasNeg are zero-valued;
// callers must recompute them.
func (x Itemset) Union(y Itemset) Itemset {
	seen := make(map[string]struct{}, x.Len()+y.Len())
	merged := make([]string, 0, x.Len()+y.Len())
	for _, it := range x.Items {
		if _, ok := seen[it]; !ok {
			seen[it] = struct{}{}
			merged = append(merged, it)
		}
	}
	for _, it := range y.Items {
		if _, ok := seen[it]; !ok {
			seen[it] = struct{}{}
			merged = append(merged, it)
		}
	}
	sort.Strings(merged)
	return Itemset{Items: merged}
}

// Clone returns a deep copy of x, safe to hand to a shared structure
// (e.g. the global top-K) without aliasing the caller's slice.
func (x Itemset) Clone() Itemset {
	items := make([]string, len(x.Items))
	copy(items, x.Items)
	return Itemset{Items: items, EU: x.EU, UB: x.UB, LB: x.LB, HasNeg: x.HasNeg}
}

// JoinCandidate attempts a level-wise Apriori join of two itemsets of
// equal size that differ in exactly one item, per the Worker Miner's
// join step. ok is false if x and y are not eligible to join (sizes
// differ, or they don't share exactly len-1 items).
func JoinCandidate(x, y Itemset) (candidate Itemset, ok bool) {
	if x.Len() != y.Len() || x.Len() == 0 {
		return Itemset{}, false
	}
	shared := 0
	for _, it := range x.Items {
		if y.Contains(it) {
			shared++
		}
	}
	if shared != x.Len()-1 {
		return Itemset{}, false
	}
	merged := x.Union(y)
	if merged.Len() != x.Len()+1 {
		return Itemset{}, false
	}
	merged.HasNeg = x.HasNeg || y.HasNeg
	return merged, true
}
