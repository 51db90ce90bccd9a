package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/lumenlabs/lumen/internal/log"
	"github.com/lumenlabs/lumen/internal/session"
)

// Session validation constants.
const (
	MaxNameLength     = 100
	DefaultTurnsLimit = 200
	MaxTurnsLimit     = 1000
)

// SessionHandler handles session-related HTTP endpoints. All
// operations are scoped to the server's principal.
type SessionHandler struct {
	store   *session.Store
	ownerID string
	logger  log.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(store *session.Store, ownerID string, logger log.Logger) *SessionHandler {
	return &SessionHandler{store: store, ownerID: ownerID, logger: logger}
}

// RegisterRoutes registers session routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.list)
	mux.HandleFunc("POST /api/sessions", h.create)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.delete)
	mux.HandleFunc("GET /api/sessions/{id}/turns", h.turns)
}

// list returns all of the principal's sessions, most recent first.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions(r.Context(), h.ownerID)
	if err != nil {
		h.logger.Error("failed to list sessions", "error", err)
		writeError(w, codeInternal, "failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

// CreateSessionRequest is the request body for creating a session.
type CreateSessionRequest struct {
	Name string `json:"name"`
}

// create creates a new session. An empty name gets the next default
// name assigned by the store.
func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, codeInvalidRequest, "invalid request body")
		return
	}

	if len(req.Name) > MaxNameLength {
		writeError(w, codeInvalidRequest, "name too long (max 100 characters)")
		return
	}

	sess, err := h.store.CreateSession(r.Context(), h.ownerID, req.Name)
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		writeError(w, codeInternal, "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, sess)
}

// delete removes a session and its turn log.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, codeInvalidRequest, "invalid session id")
		return
	}

	if err := h.store.DeleteSession(r.Context(), h.ownerID, id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, codeSessionNotFound, "session not found")
			return
		}
		h.logger.Error("failed to delete session", "error", err, "session_id", id)
		writeError(w, codeInternal, "failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// turns returns a session's turn log in chronological order.
// Query parameters:
//   - limit: maximum number of turns to return (default: 200, max: 1000)
func (h *SessionHandler) turns(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, codeInvalidRequest, "invalid session id")
		return
	}

	// Ownership check before reading the log.
	if _, err := h.store.Session(r.Context(), h.ownerID, id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, codeSessionNotFound, "session not found")
			return
		}
		h.logger.Error("failed to load session", "error", err, "session_id", id)
		writeError(w, codeInternal, "failed to load session")
		return
	}

	limit := parseIntParam(r, "limit", DefaultTurnsLimit, 1, MaxTurnsLimit)

	// #nosec G115 -- limit is bounded by MaxTurnsLimit (1000)
	turns, err := h.store.Turns(r.Context(), id, int32(limit))
	if err != nil {
		h.logger.Error("failed to load turns", "error", err, "session_id", id)
		writeError(w, codeInternal, "failed to load turns")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"turns": turns,
		"total": len(turns),
	})
}

// parseIntParam parses an integer query parameter with bounds checking.
func parseIntParam(r *http.Request, name string, defaultVal, min, max int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
