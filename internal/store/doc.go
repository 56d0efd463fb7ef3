// Package store provides SQLite-backed storage for harness revision rows,
// their append-only history and the reverse-edge index of the embedding graph.
//
// # Units of work
//
// Every engine operation runs inside RunInTx. The pool holds a single
// connection, so reads that belong to a unit of work must go through the
// *Tx handed to the callback; Read returns a handle for standalone reads.
//
// # Ordering
//
//   - History is ordered by a per-harness seq assigned on append, never by
//     timestamp. ReadHistory returns most-recent-first.
//   - Harness listings are ordered by name, then id (COLLATE BINARY).
//
// # Edge index
//
// harness_edges holds one row per (parent, child) pair derived from the
// parent's sub-harness references. ReplaceEdges rewrites a parent's rows in
// the same transaction as the document write that changed them.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
