package core

// Database is an immutable, ordered sequence of transactions plus the set
// of all item identifiers observed across them. It is built once by the
// caller (typically ioformat.ReadDatabase) and never mutated afterward.
type Database struct {
	Transactions []Transaction
	Items        map[string]struct{}
}

// NewDatabase derives the item universe from txs and returns an immutable
// Database. txs is not copied; callers must not mutate it afterward.
func NewDatabase(txs []Transaction) *Database {
	items := make(map[string]struct{})
	for _, t := range txs {
		for item := range t.Items {
			items[item] = struct{}{}
		}
	}
	return &Database{Transactions: txs, Items: items}
}

// ItemList returns the item universe as a slice, in no particular order.
func (d *Database) ItemList() []string {
	out := make([]string, 0, len(d.Items))
	for item := range d.Items {
		out = append(out, item)
	}
	return out
}

// Partition splits the database into n disjoint transaction subsets by
// round-robin assignment on transaction index: worker i receives every
// transaction whose index is congruent to i (mod n). The union of the
// returned subsets equals the full transaction sequence.
func (d *Database) Partition(n int) [][]Transaction {
	if n <= 0 {
		n = 1
	}
	out := make([][]Transaction, n)
	for i, t := range d.Transactions {
		out[i%n] = append(out[i%n], t)
	}
	return out
}

// Empty reports whether the database has no transactions or no items,
// the condition under which the coordinator skips worker launch entirely.
func (d *Database) Empty() bool {
	return d == nil || len(d.Transactions) == 0 || len(d.Items) == 0
}
