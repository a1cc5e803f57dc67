// Package scheduler owns the run loop: a min-heap of next-fire deadlines,
// the per-iteration config poll that swaps in reloaded jobs, and the
// executor that spawns job instances through the host shell and relays
// their output.
//
// The loop is single-goroutine. The config cache and the heap are only
// touched from Run; spawned commands are never waited on by the loop.
package scheduler
