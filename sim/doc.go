// Package sim provides the discrete-event engine of the loss-system simulator.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - event.go: the two-state call token (awaiting admission → awaiting release)
//   - scheduler.go: the offset-based agenda that advances simulated time
//   - group.go: the capacity-V resource pool whose occupancy is measured
//   - simulator.go: warm-up, statistics collection and the convergence rule
//   - metrics.go: raw per-occupancy accumulators and their finalized form
//
// # Architecture
//
// The sim package owns one simulation run. Collaborators live in sub-packages:
//   - sim/traffic/: stream fitting and the immutable TrafficClass
//   - sim/stats/: mean/standard-deviation aggregation across series
//   - sim/sweep/: parameter sweeps, batch worker pool and memoization
//   - sim/store/: persisted results (SQLite, in-memory, Redis)
//   - sim/report/: tab-separated report output
//   - sim/trace/: optional bounded transition trace
//
// A Simulator is single-goroutine: it owns its Scheduler, Group and random
// source. Only the TrafficClass is shared, read-only, between runs.
package sim
