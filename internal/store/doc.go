// Package store provides SQLite-backed persistence for stepwise.
//
// The store holds two independent data sets:
//   - Step cache: the last successful step list per test case, keyed by case
//     id and guarded by a content digest (see stepcache.Digest)
//   - Run history: one row per suite run with its case and step results
//
// # Critical Patterns
//
// Atomic cache writes
//   - A cache write replaces the whole entry inside one transaction
//   - Readers never observe a partially written step list
//
// Deterministic query results
//   - Step rows are always read ORDER BY position ASC
//   - Runs are listed ORDER BY started_at DESC, id ASC COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
