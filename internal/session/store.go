package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgx operations the Store needs. Defined by the
// consumer so tests and transactions can substitute the pool.
// *pgxpool.Pool satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store manages session and turn persistence with a PostgreSQL backend.
// Safe for concurrent use.
type Store struct {
	db     DB
	logger *slog.Logger
}

// NewStore creates a Store. A nil logger falls back to slog.Default().
func NewStore(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// CreateSession creates a new session owned by ownerID. An empty name
// defaults to a numbered placeholder derived from the owner's current
// session count. The returned Session carries the server-assigned id and
// start timestamp and is immediately usable as the active session.
func (s *Store) CreateSession(ctx context.Context, ownerID, name string) (*Session, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwner
	}

	if name == "" {
		var count int
		err := s.db.QueryRow(ctx,
			`SELECT count(*) FROM sessions WHERE owner_id = $1`, ownerID).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("counting sessions: %w", err)
		}
		name = fmt.Sprintf("New Chat %d", count+1)
	}

	sess := &Session{OwnerID: ownerID, Name: name}
	err := s.db.QueryRow(ctx,
		`INSERT INTO sessions (owner_id, name) VALUES ($1, $2)
		 RETURNING id, started_at`, ownerID, name).Scan(&sess.ID, &sess.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Debug("created session", "id", sess.ID, "name", sess.Name, "owner", ownerID)
	return sess, nil
}

// Session retrieves one session by id, scoped to its owner.
func (s *Store) Session(ctx context.Context, ownerID string, id uuid.UUID) (*Session, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwner
	}

	sess := &Session{}
	err := s.db.QueryRow(ctx,
		`SELECT id, owner_id, name, started_at FROM sessions
		 WHERE id = $1 AND owner_id = $2`, id, ownerID).
		Scan(&sess.ID, &sess.OwnerID, &sess.Name, &sess.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}

	return sess, nil
}

// Sessions lists the owner's sessions, most recently started first.
// An empty result is valid (new user).
func (s *Store) Sessions(ctx context.Context, ownerID string) ([]*Session, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwner
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, owner_id, name, started_at FROM sessions
		 WHERE owner_id = $1 ORDER BY started_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		if err := rows.Scan(&sess.ID, &sess.OwnerID, &sess.Name, &sess.StartedAt); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	s.logger.Debug("listed sessions", "owner", ownerID, "count", len(sessions))
	return sessions, nil
}

// DeleteSession deletes a session and all its turns (CASCADE). Deleting
// a session invalidates any active watch on its turn log.
func (s *Store) DeleteSession(ctx context.Context, ownerID string, id uuid.UUID) error {
	if ownerID == "" {
		return ErrEmptyOwner
	}

	tag, err := s.db.Exec(ctx,
		`DELETE FROM sessions WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}

	s.logger.Debug("deleted session", "id", id, "owner", ownerID)
	return nil
}

// AppendTurn appends one turn to a session's log. The database assigns
// id and created_at; within a session, created_at is monotonic in commit
// order, which preserves submission order for a single writer.
func (s *Store) AppendTurn(ctx context.Context, sessionID uuid.UUID, role, content string) (*Turn, error) {
	if role != RoleUser && role != RoleAssistant {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	turn := &Turn{SessionID: sessionID, Role: role, Content: content}
	err := s.db.QueryRow(ctx,
		`INSERT INTO turns (session_id, role, content) VALUES ($1, $2, $3)
		 RETURNING id, created_at`, sessionID, role, content).
		Scan(&turn.ID, &turn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("appending turn to session %s: %w", sessionID, err)
	}

	s.logger.Debug("appended turn",
		"session_id", sessionID, "role", role, "turn_id", turn.ID)
	return turn, nil
}

// Turns retrieves the full ordered turn sequence for a session,
// ascending by created_at. limit <= 0 applies no limit.
func (s *Store) Turns(ctx context.Context, sessionID uuid.UUID, limit int32) ([]Turn, error) {
	query := `SELECT id, session_id, role, content, created_at FROM turns
	          WHERE session_id = $1 ORDER BY created_at, id`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("getting turns for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn row: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("getting turns for session %s: %w", sessionID, err)
	}

	return turns, nil
}
