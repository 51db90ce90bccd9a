// Package engine glues the session store, the live turn subscription and
// the reasoning pipeline together under optimistic updates.
//
// The [Controller] keeps a local optimistic view of turns that have been
// submitted but not yet confirmed by the durable store, merges it with
// the snapshots the watcher emits, and rolls the speculative view back
// when the pipeline fails. Per session the submission state machine is
//
//	Idle -> Sending -> (Success | Failed) -> Idle
//
// with at most one submission in flight at a time.
//
// Merge rule: a subscription snapshot wins once it already includes the
// pending turn's timestamp or later; otherwise the optimistic turn is
// kept appended after the snapshot. The durable store is the source of
// truth for ordering once a snapshot has been observed.
//
// Failures that happen off the submit path (fire-and-forget durable
// writes) are never silently dropped; they are reported on the notices
// channel.
package engine
