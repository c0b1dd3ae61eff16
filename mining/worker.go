// Package mining implements the Worker Miner: a level-wise Apriori-style
// search over a single partition's item subset, with negative-aware
// bound checks, speculative exploration, and periodic flushes into the
// shared global top-K.
package mining

import (
	"context"
	"math"
	"sort"

	"github.com/DRuanli/PHANTOM/bounds"
	"github.com/DRuanli/PHANTOM/calculator"
	"github.com/DRuanli/PHANTOM/core"
	"github.com/DRuanli/PHANTOM/partition"
	"github.com/DRuanli/PHANTOM/put"
	"github.com/DRuanli/PHANTOM/topk"
)

// DefaultMaxItemsetSize bounds the level-wise search depth.
const DefaultMaxItemsetSize = 20

// DefaultSpeculationFactor is the multiple of tau an itemset's EU must
// reach to trigger speculative extension.
const DefaultSpeculationFactor = 1.2

// DefaultMaxSpeculation bounds how many single-item extensions a
// speculative step may try per candidate.
const DefaultMaxSpeculation = 10

// DefaultSyncInterval is the number of candidates processed between
// forced flushes to the global top-K, even if the local buffer has not
// filled.
const DefaultSyncInterval = 1000

// flushBufferSize is the local-buffer size that, once exceeded, forces
// an immediate flush regardless of the sync interval.
const flushBufferSize = 100

// Config bundles the Worker's tunable constants, all exposed so the
// coordinator's functional options can override defaults.
type Config struct {
	MaxItemsetSize    int
	SpeculationFactor float64
	MaxSpeculation    int
	SyncInterval      int
}

// DefaultConfig returns the default tuning constants.
func DefaultConfig() Config {
	return Config{
		MaxItemsetSize:    DefaultMaxItemsetSize,
		SpeculationFactor: DefaultSpeculationFactor,
		MaxSpeculation:    DefaultMaxSpeculation,
		SyncInterval:      DefaultSyncInterval,
	}
}

// Metrics is the subset of metrics-collection behavior a worker needs;
// satisfied by the root package's metrics collector.
type Metrics interface {
	RecordCandidateEvaluated()
	RecordCandidatePruned()
	RecordCandidateSpeculated()
	RecordTopKUpdate()
}

type noopMetrics struct{}

func (noopMetrics) RecordCandidateEvaluated()  {}
func (noopMetrics) RecordCandidatePruned()     {}
func (noopMetrics) RecordCandidateSpeculated() {}
func (noopMetrics) RecordTopKUpdate()          {}

// Worker mines a single partition. It is constructed by the coordinator
// with all dependencies shared across the whole run.
type Worker struct {
	DB        *core.Database
	Universe  []string
	Partition *partition.Partition
	Tensor    *put.Tensor
	Calc      *calculator.Calculator
	Bounds    *bounds.Calculator
	TopK      *topk.TopK
	Cfg       Config
	Metrics   Metrics

	buffer []core.Itemset
}

// NewWorker constructs a Worker with the default tuning constants and a
// no-op metrics sink.
func NewWorker(db *core.Database, universe []string, p *partition.Partition, tensor *put.Tensor, calc *calculator.Calculator, pbc *bounds.Calculator, tk *topk.TopK) *Worker {
	return &Worker{DB: db, Universe: universe, Partition: p, Tensor: tensor, Calc: calc, Bounds: pbc, TopK: tk, Cfg: DefaultConfig(), Metrics: noopMetrics{}}
}

// Run executes the level-wise search until termination. Every exit
// path after level 1 flushes the local buffer to the shared top-K. It
// returns ctx.Err() if ctx is cancelled, and nil otherwise.
func (w *Worker) Run(ctx context.Context) error {
	level, err := w.level1()
	if err != nil {
		return err
	}

	var processedSinceFlush int64
	budget := w.Partition.ExhaustionBudget()

	for len(level) > 0 && level[0].Len() < w.Cfg.MaxItemsetSize {
		select {
		case <-ctx.Done():
			w.flush()
			w.Partition.Done.Store(true)
			return ctx.Err()
		default:
		}

		if w.Partition.Done.Load() {
			w.flush()
			return nil
		}

		next := w.joinLevel(level)
		if len(next) == 0 {
			break
		}

		for i := range next {
			if w.Partition.Done.Load() {
				w.flush()
				return nil
			}

			next[i] = w.evaluate(next[i])

			processed := w.Partition.Processed.Add(1)
			processedSinceFlush++
			if processed >= budget {
				w.flush()
				return nil
			}
			if processedSinceFlush >= int64(w.Cfg.SyncInterval) || len(w.buffer) > flushBufferSize {
				w.flush()
				processedSinceFlush = 0
			}
		}

		level = w.survivors(next)
	}

	w.flush()
	return nil
}

// level1 computes EU({i}) for every item in the partition, keeping
// those meeting the current threshold, flagging has_neg, and sorting
// descending by EU.
func (w *Worker) level1() ([]core.Itemset, error) {
	tau := w.readThreshold()
	items := make([]core.Itemset, 0, len(w.Partition.Items))

	for _, item := range w.Partition.Items {
		x := core.NewItemset(item)
		x.EU = w.Calc.Compute(w.DB, x)
		x.HasNeg = w.Tensor.HasNegative(item)
		x.UB, x.LB = w.Bounds.Bounds(w.DB, x, w.Universe)

		if x.EU >= tau {
			items = append(items, x)
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].EU > items[j].EU })
	return items, nil
}

// joinLevel forms the deduplicated candidates X union Y for pairs (X, Y)
// at the current level with |X intersect Y| = |X| - 1. It does not
// evaluate them; Run passes each one to evaluate.
func (w *Worker) joinLevel(level []core.Itemset) []core.Itemset {
	var candidates []core.Itemset
	seen := make(map[string]struct{})

	for i := range level {
		for j := i + 1; j < len(level); j++ {
			cand, ok := core.JoinCandidate(level[i], level[j])
			if !ok {
				continue
			}
			if _, dup := seen[cand.Key()]; dup {
				continue
			}
			seen[cand.Key()] = struct{}{}
			candidates = append(candidates, cand)
		}
	}
	return candidates
}

// evaluate computes EU and bounds for cand, prunes or emits it, attempts
// speculative extension, and returns cand with EU/UB/LB populated so the
// caller can fold the result back into the level before filtering
// survivors.
func (w *Worker) evaluate(cand core.Itemset) core.Itemset {
	w.Metrics.RecordCandidateEvaluated()
	cand.EU = w.Calc.Compute(w.DB, cand)

	var ub float64
	if cand.HasNeg {
		ub, cand.LB = w.Bounds.Bounds(w.DB, cand, w.Universe)
	} else {
		ub = w.positiveOnlyUpperBound(cand)
		cand.LB = cand.EU
	}
	cand.UB = ub

	w.Partition.SetUpperBound(maxFloat(w.Partition.GetUpperBound(), ub))

	tau := w.readThreshold()
	if ub < tau {
		w.Metrics.RecordCandidatePruned()
		return cand // pruned
	}

	if cand.EU >= tau {
		w.emit(cand)
	}

	speculationThreshold := tau * w.Cfg.SpeculationFactor
	if cand.EU >= speculationThreshold && cand.Len() < w.Cfg.MaxItemsetSize/2 {
		w.speculate(cand, tau)
	}

	return cand
}

// positiveOnlyUpperBound implements the non-negative fast path of the
// bound check: EU + sum over remaining positive items of their best
// per-transaction contribution.
func (w *Worker) positiveOnlyUpperBound(cand core.Itemset) float64 {
	sum := cand.EU
	for _, item := range w.Partition.Items {
		if cand.Contains(item) {
			continue
		}
		if w.Tensor.MeanUtility(item) <= 0 {
			continue
		}
		sum += w.bestContribution(cand, item)
	}
	return sum
}

func (w *Worker) bestContribution(cand core.Itemset, item string) float64 {
	txs := w.Tensor.TransactionsOf(cand)
	it := txs.Iterator()
	var best float64
	first := true
	for it.HasNext() {
		idx := it.Next()
		tx := w.DB.Transactions[idx]
		fact, ok := tx.Items[item]
		if !ok {
			continue
		}
		v := tx.Prob * fact.Prob * fact.Utility
		if first || v > best {
			best = v
			first = false
		}
	}
	return best
}

// speculate extends cand by up to MaxSpeculation single items from the
// partition's item set; any extension whose EU meets tau is appended
// directly to the output buffer.
func (w *Worker) speculate(cand core.Itemset, tau float64) {
	tried := 0
	for _, item := range w.Partition.Items {
		if tried >= w.Cfg.MaxSpeculation {
			return
		}
		if cand.Contains(item) {
			continue
		}
		tried++
		w.Metrics.RecordCandidateSpeculated()

		ext := cand.Union(core.NewItemset(item))
		ext.HasNeg = cand.HasNeg || w.Tensor.HasNegative(item)
		ext.EU = w.Calc.Compute(w.DB, ext)
		if ext.EU >= tau {
			w.emit(ext)
		}
	}
}

// survivors filters the evaluated level down to the next level's seed
// set: candidates that were not pruned (UB >= current threshold).
func (w *Worker) survivors(evaluated []core.Itemset) []core.Itemset {
	tau := w.readThreshold()
	out := make([]core.Itemset, 0, len(evaluated))
	for _, cand := range evaluated {
		if cand.UB >= tau {
			for _, item := range cand.Items {
				w.Partition.MarkClaimed(item)
			}
			out = append(out, cand)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EU > out[j].EU })
	return out
}

func (w *Worker) emit(x core.Itemset) {
	w.Metrics.RecordTopKUpdate()
	w.buffer = append(w.buffer, x.Clone())
}

func (w *Worker) flush() {
	if len(w.buffer) == 0 {
		return
	}
	sort.Slice(w.buffer, func(i, j int) bool { return w.buffer[i].EU > w.buffer[j].EU })
	w.TopK.Update(w.buffer)
	w.buffer = w.buffer[:0]
}

func (w *Worker) readThreshold() float64 {
	v := w.TopK.ThresholdRef().Load()
	if v == nil {
		return math.Inf(-1)
	}
	return v.(float64)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
