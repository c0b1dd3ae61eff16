package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/DRuanli/PHANTOM/bounds"
	"github.com/DRuanli/PHANTOM/calculator"
	"github.com/DRuanli/PHANTOM/convergence"
	"github.com/DRuanli/PHANTOM/core"
	"github.com/DRuanli/PHANTOM/mining"
	"github.com/DRuanli/PHANTOM/partition"
	"github.com/DRuanli/PHANTOM/put"
	"github.com/DRuanli/PHANTOM/resource"
	"github.com/DRuanli/PHANTOM/topk"
)

// pollInterval is the convergence monitor's poll period.
const pollInterval = 100 * time.Millisecond

// imbalanceThreshold is the fractional deviation from the mean
// processed count at which the coordinator schedules a load-rebalance
// transfer between a pair of partitions.
const imbalanceThreshold = 0.20

// rebalanceTransferSize is the maximum number of unclaimed items moved
// per rebalance pair, per poll.
const rebalanceTransferSize = 3

// Coordinator drives a single PHANTOM mining run: it builds the PUT,
// partitions the database, launches workers, polls convergence, and
// extracts the final top-K.
type Coordinator struct {
	Processors   int
	Alpha        float64
	Omega        float64
	Epsilon      float64
	StrictBounds bool
	Synergies    map[string]float64
	WorkerCfg    mining.Config
	Resources    *resource.Controller
	Logger       Logger
	Metrics      Metrics

	mu         sync.Mutex
	partitions []*partition.Partition
}

// Logger is the subset of structured-logging behavior the coordinator
// needs; satisfied by the root package's *phantom.Logger.
type Logger interface {
	LogMineStart(ctx context.Context, items, transactions, k, processors int)
	LogWorkerDone(ctx context.Context, partitionID int, processed int64, err error)
	LogConvergence(ctx context.Context, result convergence.Result)
	LogRebalance(ctx context.Context, donor, recipient int, moved int)
	LogTopKDrop(ctx context.Context, dropped uint64)
}

// Metrics is the subset of metrics-collection behavior the coordinator
// and its workers need; satisfied by the root package's metrics
// collector. Embeds mining.Metrics so a single collector value can be
// assigned to both the coordinator and every worker it spawns.
type Metrics interface {
	mining.Metrics
	RecordRebalance()
	RecordTopKDrop(n uint64)
}

// NewCoordinator returns a Coordinator with default tuning constants,
// no logging, and no metrics collection.
func NewCoordinator(processors int) *Coordinator {
	if processors <= 0 {
		processors = 4
	}
	return &Coordinator{
		Processors: processors,
		Alpha:      calculator.DefaultAlpha,
		Omega:      bounds.DefaultOmega,
		Epsilon:    bounds.DefaultEpsilon,
		WorkerCfg:  mining.DefaultConfig(),
	}
}

// Mine is the public library surface: mine(database, k, processors).
// Returns the ordered top-K itemsets, descending by expected utility.
func (c *Coordinator) Mine(ctx context.Context, db *core.Database, k int) ([]core.Itemset, error) {
	if db.Empty() {
		return nil, nil
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrMalformedInput, k)
	}

	for _, tx := range db.Transactions {
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNumericAnomaly, err)
		}
	}

	tensor := put.Build(db)
	calc := &calculator.Calculator{Alpha: c.Alpha, Synergies: c.Synergies, Tensor: tensor}
	pbc := &bounds.Calculator{Omega: c.Omega, Epsilon: c.Epsilon, StrictMode: c.StrictBounds, Tensor: tensor}
	tk := topk.New(k)

	universe := c.sortedUniverse(db, tensor, calc)
	chunks := chunk(universe, c.Processors)
	txChunks := db.Partition(c.Processors)

	partitions := make([]*partition.Partition, len(chunks))
	for i, items := range chunks {
		partitions[i] = partition.New(i, items, txChunks[i])
	}
	c.mu.Lock()
	c.partitions = partitions
	c.mu.Unlock()

	if c.Logger != nil {
		c.Logger.LogMineStart(ctx, len(universe), len(db.Transactions), k, len(partitions))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := NewWorkerPool(len(partitions))
	defer pool.Close()

	var wg sync.WaitGroup
	workerErrs := make([]error, len(partitions))
	for i, p := range partitions {
		i, p := i, p
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if c.Resources != nil {
				if err := c.Resources.AcquireBackground(runCtx); err != nil {
					workerErrs[i] = err
					return
				}
				defer c.Resources.ReleaseBackground()
			}
			w := mining.NewWorker(db, universe, p, tensor, calc, pbc, tk)
			w.Cfg = c.WorkerCfg
			if c.Metrics != nil {
				w.Metrics = c.Metrics
			}
			err := w.Run(runCtx)
			workerErrs[i] = err
			if c.Logger != nil {
				c.Logger.LogWorkerDone(ctx, p.ID, p.Processed.Load(), err)
			}
		}
		if err := pool.Submit(runCtx, task); err != nil {
			wg.Done()
			return nil, err
		}
	}

	monitor := convergence.New()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	lastChange := time.Now()
	var lastSnapshotKey string
	prevMembers := map[string]struct{}{}

pollLoop:
	for {
		select {
		case <-done:
			break pollLoop
		case <-ticker.C:
			snap := tk.Snapshot()
			key := snapshotKey(snap)
			if key != lastSnapshotKey {
				lastChange = time.Now()
				lastSnapshotKey = key
			}

			discoveries := 0
			members := make(map[string]struct{}, len(snap))
			for _, x := range snap {
				members[x.Key()] = struct{}{}
				if _, seen := prevMembers[x.Key()]; !seen {
					discoveries++
				}
			}
			prevMembers = members

			result := monitor.Poll(convergence.Snapshot{
				TopK:                 snap,
				PartitionUpperBounds: c.partitionUpperBounds(),
				Processed:            c.processedCounts(),
				Budgets:              c.budgets(),
				RecentDiscoveries:    discoveries,
				LastChangeAt:         lastChange,
				Now:                  time.Now(),
			})
			if c.Logger != nil {
				c.Logger.LogConvergence(ctx, result)
			}

			if result.Converged {
				c.terminateAll()
				break pollLoop
			}

			c.rebalance(ctx)
		}
	}

	<-done

	if dropped := tk.Dropped(); dropped > 0 {
		if c.Metrics != nil {
			c.Metrics.RecordTopKDrop(dropped)
		}
		if c.Logger != nil {
			c.Logger.LogTopKDrop(ctx, dropped)
		}
	}

	for _, err := range workerErrs {
		if err != nil && ctx.Err() != nil {
			return tk.Snapshot(), err
		}
	}

	return tk.Snapshot(), nil
}

// sortedUniverse sorts the item universe by single-item EU descending
// before work is divided among workers.
func (c *Coordinator) sortedUniverse(db *core.Database, tensor *put.Tensor, calc *calculator.Calculator) []string {
	items := db.ItemList()
	for _, item := range items {
		x := core.NewItemset(item)
		eu := calc.Compute(db, x)
		tensor.SingleEU[item] = eu
	}
	sort.Slice(items, func(i, j int) bool { return tensor.SingleEU[items[i]] > tensor.SingleEU[items[j]] })
	return items
}

// chunk splits items into n contiguous chunks of size ceil(len/n), one
// per worker.
func chunk(items []string, n int) [][]string {
	if n <= 0 {
		n = 1
	}
	out := make([][]string, n)
	if len(items) == 0 {
		for i := range out {
			out[i] = []string{}
		}
		return out
	}
	size := (len(items) + n - 1) / n
	for i := 0; i < n; i++ {
		start := i * size
		if start >= len(items) {
			out[i] = []string{}
			continue
		}
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		cp := make([]string, end-start)
		copy(cp, items[start:end])
		out[i] = cp
	}
	return out
}

func (c *Coordinator) terminateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.partitions {
		p.Done.Store(true)
	}
}

func (c *Coordinator) partitionUpperBounds() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]float64, len(c.partitions))
	for i, p := range c.partitions {
		out[i] = p.GetUpperBound()
	}
	return out
}

func (c *Coordinator) processedCounts() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, len(c.partitions))
	for i, p := range c.partitions {
		out[i] = p.Processed.Load()
	}
	return out
}

func (c *Coordinator) budgets() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, len(c.partitions))
	for i, p := range c.partitions {
		out[i] = p.ExhaustionBudget()
	}
	return out
}

// rebalance implements the load-rebalancing protocol: for any partition
// whose processed count deviates from the
// mean by more than imbalanceThreshold, transfer a bounded slice of
// unexplored single-items from the most-overloaded donor to the
// most-underloaded recipient.
func (c *Coordinator) rebalance(ctx context.Context) {
	c.mu.Lock()
	parts := c.partitions
	c.mu.Unlock()

	if len(parts) < 2 {
		return
	}

	var total int64
	for _, p := range parts {
		total += p.Processed.Load()
	}
	mean := float64(total) / float64(len(parts))
	if mean == 0 {
		return
	}

	var donor, recipient *partition.Partition
	var maxDev, minDev float64
	for _, p := range parts {
		dev := (float64(p.Processed.Load()) - mean) / mean
		if dev > maxDev {
			maxDev = dev
			donor = p
		}
		if dev < minDev {
			minDev = dev
			recipient = p
		}
	}

	if donor == nil || recipient == nil || donor == recipient {
		return
	}
	if maxDev <= imbalanceThreshold && -minDev <= imbalanceThreshold {
		return
	}

	moved := donor.TransferTo(recipient, rebalanceTransferSize)
	if len(moved) == 0 {
		return
	}
	if c.Metrics != nil {
		c.Metrics.RecordRebalance()
	}
	if c.Logger != nil {
		c.Logger.LogRebalance(ctx, donor.ID, recipient.ID, len(moved))
	}
}

func snapshotKey(snap []core.Itemset) string {
	var b []byte
	for _, x := range snap {
		b = append(b, x.Key()...)
		b = append(b, '|')
	}
	return string(b)
}
