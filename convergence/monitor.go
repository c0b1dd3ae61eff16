// Package convergence implements the multi-criterion termination test
// polled by the coordinator: stability, bound convergence, work
// exhaustion, and a weighted confidence score.
package convergence

import (
	"math"
	"time"

	"github.com/DRuanli/PHANTOM/core"
)

// StabilityThreshold is the number of consecutive polls the top-K
// sequence must remain byte-identical for C_s to fire.
const StabilityThreshold = 10

// BoundEpsilon is the relative slack applied to the bound-convergence
// criterion C_b.
const BoundEpsilon = 0.01

// WorkExhaustionFraction is the share of aggregate work that may still
// be unprocessed when C_w fires via the exhaustion branch.
const WorkExhaustionFraction = 0.01 // compared as > 1 - WorkExhaustionFraction

// MinRate is the aggregate processing rate (candidates/sec) below which
// C_w fires via the stalled-rate branch.
const MinRate = 1.0

// ConfidenceThreshold is the weighted score C_c must reach to fire.
const ConfidenceThreshold = 0.95

// Snapshot is the set of inputs the monitor needs on each poll. The
// coordinator assembles this from the shared top-K and the partition
// set.
type Snapshot struct {
	TopK                 []core.Itemset // order-sensitive, as currently published
	PartitionUpperBounds []float64
	Processed            []int64
	Budgets              []int64
	RecentDiscoveries    int // new top-K entries since the last poll
	LastChangeAt         time.Time
	Now                  time.Time
}

// Result is the four criteria plus the overall verdict.
type Result struct {
	Stable      bool
	BoundsOK    bool
	Exhausted   bool
	Confident   bool
	Converged   bool
	Confidence  float64
}

// Monitor tracks top-K history across polls to evaluate C_s, and
// per-second processed counts to evaluate the C_w stalled-rate branch.
type Monitor struct {
	history        [][]string // last StabilityThreshold top-K keys, oldest first
	lastProcessed  int64
	lastPollAt     time.Time
	haveLastPoll   bool
}

// New returns an empty Monitor.
func New() *Monitor {
	return &Monitor{}
}

// Poll evaluates all four criteria against snap and returns the
// overall convergence verdict: (C_s and C_b) or C_w or C_c.
func (m *Monitor) Poll(snap Snapshot) Result {
	keys := keysOf(snap.TopK)
	stable := m.recordAndCheckStability(keys)
	bounds := m.checkBoundConvergence(snap)
	exhausted, rate := m.checkWorkExhaustion(snap)
	confidence := m.confidenceScore(snap, rate)
	confident := confidence >= ConfidenceThreshold

	return Result{
		Stable:     stable,
		BoundsOK:   bounds,
		Exhausted:  exhausted,
		Confident:  confident,
		Confidence: confidence,
		Converged:  (stable && bounds) || exhausted || confident,
	}
}

func keysOf(topk []core.Itemset) []string {
	out := make([]string, len(topk))
	for i, x := range topk {
		out[i] = x.Key()
	}
	return out
}

func (m *Monitor) recordAndCheckStability(keys []string) bool {
	m.history = append(m.history, keys)
	if len(m.history) > StabilityThreshold {
		m.history = m.history[len(m.history)-StabilityThreshold:]
	}
	if len(m.history) < StabilityThreshold {
		return false
	}
	first := m.history[0]
	for _, h := range m.history[1:] {
		if !sameSequence(first, h) {
			return false
		}
	}
	return true
}

func sameSequence(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// checkBoundConvergence implements C_b: with tau the smallest EU in
// snap.TopK and B the maximum partition upper bound, B < tau*(1+eps).
// It requires a non-empty top-K but does not check that the top-K holds
// K items.
func (m *Monitor) checkBoundConvergence(snap Snapshot) bool {
	if len(snap.TopK) == 0 {
		return false
	}
	tau := snap.TopK[len(snap.TopK)-1].EU
	for _, x := range snap.TopK {
		if x.EU < tau {
			tau = x.EU
		}
	}
	var maxB float64
	first := true
	for _, b := range snap.PartitionUpperBounds {
		if first || b > maxB {
			maxB = b
			first = false
		}
	}
	if first {
		return false
	}
	return maxB < tau*(1+BoundEpsilon)
}

// checkWorkExhaustion implements C_w: aggregated processed/budget > 1 -
// WorkExhaustionFraction, or the aggregate processing rate falls below
// MinRate candidates/sec.
func (m *Monitor) checkWorkExhaustion(snap Snapshot) (bool, float64) {
	var processed, budget int64
	for i := range snap.Processed {
		processed += snap.Processed[i]
		if i < len(snap.Budgets) {
			budget += snap.Budgets[i]
		}
	}

	rate := m.rate(processed, snap.Now)

	if budget > 0 && float64(processed)/float64(budget) > 1-WorkExhaustionFraction {
		return true, rate
	}
	if m.haveLastPoll && rate < MinRate {
		return true, rate
	}
	return false, rate
}

func (m *Monitor) rate(processed int64, now time.Time) float64 {
	defer func() {
		m.lastProcessed = processed
		m.lastPollAt = now
		m.haveLastPoll = true
	}()
	if !m.haveLastPoll {
		return math.Inf(1) // no prior sample: never stalls on the first poll
	}
	elapsed := now.Sub(m.lastPollAt).Seconds()
	if elapsed <= 0 {
		return math.Inf(1)
	}
	delta := processed - m.lastProcessed
	return float64(delta) / elapsed
}

// confidenceScore implements C_c's weighted score:
// 0.4*S + 0.3*V + 0.3*B, with S a sigmoid of minutes since last change,
// V an inverse discovery-rate term, and B mean eu/ub across the top-K.
func (m *Monitor) confidenceScore(snap Snapshot, _ float64) float64 {
	minutesSince := snap.Now.Sub(snap.LastChangeAt).Minutes()
	s := sigmoid(0.5 * (minutesSince - 5))

	v := 1 - math.Min(1, float64(snap.RecentDiscoveries)/10)

	var b float64
	if len(snap.TopK) > 0 {
		var sum float64
		for _, x := range snap.TopK {
			if x.UB <= 0 {
				continue
			}
			sum += x.EU / x.UB
		}
		b = sum / float64(len(snap.TopK))
	}

	return 0.4*s + 0.3*v + 0.3*b
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
