// Package liveness classifies process ids by querying the OS process table.
//
// A Checker answers whether a tracked job is still worth keeping. Tracked
// jobs are suspended shell jobs, so only stopped processes (and processes
// in an ambiguous state) count as alive; see State.Alive.
package liveness
