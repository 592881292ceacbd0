// Package store provides SQLite-backed durable storage for the mining job
// table.
//
// The store holds:
//   - Sequences: one row per catalog identifier, acting as a state machine
//   - Blacklist: identifiers excluded from normal runs (append-only)
//   - Xrefs: pairs of sequences sharing a formula
//   - Runs: one bookkeeping row per mining invocation
//   - Meta: initialisation marker and capacity
//
// # Invariants
//
// Monotonic state
//   - state only moves forward: Update writes MAX(old, new)
//   - rows are never deleted
//
// Bounded loss
//   - the miner writes through a Batch that commits every N rows in one
//     transaction, so a crash loses at most N rows and never half a row
//
// Single claim
//   - Cursor.Next is mutex-guarded and pages by id, so each pending id is
//     handed out once per pass
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
