// Package engine provides the coordination layer for a PHANTOM mining
// run.
//
// Coordinator is the single entry point: it builds the Probabilistic
// Utility Tensor, partitions the sorted item universe across a fixed
// worker pool, launches the workers, polls the convergence monitor
// (rebalancing load on imbalance), and on convergence extracts the
// final sorted top-K.
//
// # Architecture
//
//   - WorkerPool: a fixed-size pool of goroutines draining a channel of
//     work closures, one closure per partition's mining run.
//   - Coordinator: owns the shared PUT, the shared top-K, and the set of
//     partitions; runs the convergence poll loop on the calling
//     goroutine while workers run in the pool.
//
// No cyclic coupling exists between workers and the coordinator: workers
// write to the shared top-K and read the shared threshold; the
// coordinator reads per-partition progress counters and writes each
// partition's termination flag.
package engine
