// Package session provides conversation persistence with PostgreSQL.
//
// A session is a named conversation thread owned by exactly one
// principal, containing an append-only ordered log of turns. The [Store]
// handles persistence, the [Watcher] provides a live subscription that
// re-emits the full ordered turn sequence whenever it changes, and
// [DefaultSelection] implements the active-session policy.
//
// Key operations:
//
//   - Session lifecycle: [Store.CreateSession], [Store.Sessions], [Store.DeleteSession]
//   - Turn log: [Store.AppendTurn], [Store.Turns] (append-only, ordered by created_at)
//   - Live subscription: [Watcher.Watch]
//
// # Ordering
//
// Turns are ordered by a server-assigned created_at timestamp
// (clock_timestamp() at insert), with the row id as a tiebreaker. The
// database is the source of truth for this order once a snapshot has
// been observed from the watcher.
//
// # Concurrency
//
// Store is safe for concurrent use. All state lives in PostgreSQL; no
// shared Go-side state exists.
//
// # Local State
//
// [SaveCurrentSessionID] and [LoadCurrentSessionID] persist the active
// session id under the state directory using atomic writes (temp file +
// rename).
package session
