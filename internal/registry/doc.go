// Package registry provides the daemon's in-memory store of suspended jobs.
//
// Jobs are grouped into Sessions keyed by the directory they were suspended
// in. A Registry is guarded by a single mutex; every operation, including
// the liveness cleanup pass that precedes each list, holds it for its full
// duration.
//
// The Registry is volatile. Nothing is written to disk and all state is
// lost when the daemon exits.
package registry
