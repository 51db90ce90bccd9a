package session

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// notifyChannel is the Postgres NOTIFY channel fired by the turn insert
// trigger. The payload is the session id.
const notifyChannel = "session_turns"

// Watcher provides a live subscription to a session's turn log, built on
// Postgres LISTEN/NOTIFY. Every emission is a full snapshot of the
// ordered turn sequence, so consumers never have to patch deltas.
type Watcher struct {
	pool   *pgxpool.Pool
	store  *Store
	logger *slog.Logger
}

// NewWatcher creates a Watcher. The pool provides the dedicated
// listening connection; reads go through the store.
func NewWatcher(pool *pgxpool.Pool, store *Store, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{pool: pool, store: store, logger: logger}
}

// Watch subscribes to a session's turn log. The returned channel first
// carries the current snapshot, then a fresh full snapshot after every
// change. Emissions are coalesced: a slow consumer sees the newest
// snapshot, not every intermediate one.
//
// Cancelling ctx stops the subscription; the channel is closed and the
// listening connection released, so no listeners leak. The channel also
// closes if the connection fails.
func (w *Watcher) Watch(ctx context.Context, sessionID uuid.UUID) (<-chan []Turn, error) {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		return nil, err
	}

	// Load the initial snapshot before returning so the first emission
	// reflects state at or after subscription time.
	initial, err := w.store.Turns(ctx, sessionID, 0)
	if err != nil {
		conn.Release()
		return nil, err
	}

	ch := make(chan []Turn, 1)
	go func() {
		defer close(ch)
		defer conn.Release()

		emit(ch, initial)

		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					w.logger.Warn("turn subscription lost", "session_id", sessionID, "error", err)
				}
				return
			}

			if notification.Channel != notifyChannel || notification.Payload != sessionID.String() {
				continue
			}

			snapshot, err := w.store.Turns(ctx, sessionID, 0)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				w.logger.Warn("reloading turns after notification", "session_id", sessionID, "error", err)
				continue
			}

			emit(ch, snapshot)
		}
	}()

	return ch, nil
}

// emit delivers a snapshot, replacing any stale undelivered one.
func emit(ch chan []Turn, snapshot []Turn) {
	for {
		select {
		case ch <- snapshot:
			return
		default:
			select {
			case <-ch: // drop stale snapshot
			default:
			}
		}
	}
}
