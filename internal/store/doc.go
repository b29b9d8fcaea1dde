// Package store persists kernel sessions in SQLite.
//
// The kernel is an in-memory model; a host that wants durability saves a
// session's commit log and branch blobs here and replays them later.
//
//   - sessions: one row per kernel instance, with its public identity fields
//   - thoughts: the append-only commit log, keyed by (session_id, seq)
//   - branches: the current encrypted blob of each secret scope root
//
// Raw secrets are never stored. The log only carries redacted declarations
// and derived effective secrets, so a replayed session reads ciphertext as
// null until its secrets are declared again.
//
// # Ordering
//
// All log queries use ORDER BY seq ASC. Timestamps are informational and
// never used for ordering, so replay is deterministic regardless of wall
// time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Values are stored as canonical JSON (see ir.MarshalCanonical) so stored
// rows re-verify against their fingerprints.
package store
