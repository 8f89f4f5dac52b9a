// Package journal provides SQLite-backed durable storage for dispatched actions.
//
// A session records the state a store started from and every action
// performed on it, together with the state that action produced. Both are
// stored as RFC 8785 canonical JSON with domain-separated SHA-256 hashes
// (see internal/ir), so a session can later be replayed against the same
// (or a changed) reducer and compared entry by entry.
//
// # Critical Patterns
//
// Logical ordering:
//   - Entries are ordered by seq, the devtools entry ID, NEVER by timestamps
//   - UNIQUE(session_id, seq) makes writes idempotent
//
// Deterministic reads:
//   - All queries include ORDER BY seq ASC (entries) or id ASC (sessions)
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package journal
