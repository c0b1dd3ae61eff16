// Package bounds implements the Polar Bounds Calculator: asymmetric
// upper and lower bounds on the utility of any superset of a given
// itemset, accounting separately for candidate-positive and
// candidate-negative items still outside the itemset.
package bounds

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/DRuanli/PHANTOM/core"
	"github.com/DRuanli/PHANTOM/put"
)

// DefaultOmega is the optimism factor applied to the optimistic gain
// term of the upper bound.
const DefaultOmega = 0.9

// DefaultEpsilon is the negative-confidence factor applied to the
// guaranteed-loss term of the upper bound.
const DefaultEpsilon = 0.8

// Calculator computes UB(X) and LB(X). StrictMode forces Omega
// to 1.0 regardless of the configured value, giving the
// admissibility-preserving strict bound called for by the open question
// on bound admissibility: Omega is configurable, and StrictMode is the
// escape hatch for correctness testing.
type Calculator struct {
	Omega      float64
	Epsilon    float64
	StrictMode bool
	Tensor     *put.Tensor
}

// New returns a Calculator with the default Omega/Epsilon and
// StrictMode disabled.
func New(tensor *put.Tensor) *Calculator {
	return &Calculator{Omega: DefaultOmega, Epsilon: DefaultEpsilon, Tensor: tensor}
}

func (c *Calculator) omega() float64 {
	if c.StrictMode {
		return 1.0
	}
	if c.Omega == 0 {
		return DefaultOmega
	}
	return c.Omega
}

func (c *Calculator) epsilon() float64 {
	if c.Epsilon == 0 {
		return DefaultEpsilon
	}
	return c.Epsilon
}

// Bounds computes (UB, LB) for itemset x, given its already-computed EU
// and the full item universe U. Empty transaction sets (x never
// co-occurring with a candidate item) contribute 0 to every term, so
// UB degenerates to EU as spec requires.
func (c *Calculator) Bounds(db *core.Database, x core.Itemset, universe []string) (ub, lb float64) {
	txX := c.Tensor.TransactionsOf(x)
	supportX := int(txX.GetCardinality())

	var gainPlus, lossMinus, worstMinus float64

	for _, item := range universe {
		if x.Contains(item) {
			continue
		}
		if c.Tensor.MeanUtility(item) > 0 {
			gainPlus += c.maxPositiveContribution(db, txX, item, supportX)
		} else {
			lossMinus += c.minNegativeContribution(db, txX, item, c.epsilon())
			worstMinus += c.maxNegativeMagnitude(db, txX, item)
		}
	}

	ub = x.EU + c.omega()*gainPlus + lossMinus
	lb = x.EU + worstMinus
	return ub, lb
}

// maxPositiveContribution returns G+'s per-item term:
//
//	max_{T in T_X, i in T} P(T)·p_i(T)·u_i(T)·corr(X,i,T)
//
// Returns 0 if item never co-occurs with x.
func (c *Calculator) maxPositiveContribution(db *core.Database, txX *roaring.Bitmap, item string, supportX int) float64 {
	itemTx := c.Tensor.Postings[item]
	if itemTx == nil {
		return 0
	}
	co := txX.Clone()
	co.And(itemTx)
	if co.IsEmpty() {
		return 0
	}

	corr := c.correlation(co.GetCardinality(), item)

	var best float64
	first := true
	it := co.Iterator()
	for it.HasNext() {
		idx := it.Next()
		tx := db.Transactions[idx]
		fact := tx.Items[item]
		v := tx.Prob * fact.Prob * fact.Utility * corr
		if first || v > best {
			best = v
			first = false
		}
	}
	return best
}

// minNegativeContribution returns L-'s per-item term:
//
//	min_{T in T_X, i in T} [ -epsilonScale · P(T)·p_i(T)·|u_i(T)| ]
//
// a non-positive value; 0 if item never co-occurs with x.
func (c *Calculator) minNegativeContribution(db *core.Database, txX *roaring.Bitmap, item string, epsilonScale float64) float64 {
	itemTx := c.Tensor.Postings[item]
	if itemTx == nil {
		return 0
	}
	co := txX.Clone()
	co.And(itemTx)
	if co.IsEmpty() {
		return 0
	}

	var worst float64
	first := true
	it := co.Iterator()
	for it.HasNext() {
		idx := it.Next()
		tx := db.Transactions[idx]
		fact := tx.Items[item]
		v := -epsilonScale * tx.Prob * fact.Prob * math.Abs(fact.Utility)
		if first || v < worst {
			worst = v
			first = false
		}
	}
	return worst
}

// maxNegativeMagnitude returns LB's per-item term:
//
//	max_{T in T_X, i in T} [ -P(T)·p_i(T)·|u_i(T)| ]
//
// the worst-case (most negative) impact of item joining x.
func (c *Calculator) maxNegativeMagnitude(db *core.Database, txX *roaring.Bitmap, item string) float64 {
	// Equivalent formula to minNegativeContribution with epsilonScale=1,
	// but LB wants the most negative (i.e. the minimum, same direction).
	return c.minNegativeContribution(db, txX, item, 1.0)
}

// correlation is corr(X, i, T): the support-based conditional
// probability estimate |{T' : X subset T' and i in T'}| / |{T' : i in T'}|,
// or 0 if i never occurs.
func (c *Calculator) correlation(coCardinality uint64, item string) float64 {
	supportI := c.Tensor.Support(item)
	if supportI == 0 {
		return 0
	}
	return float64(coCardinality) / float64(supportI)
}
