package session

import (
	"time"

	"github.com/google/uuid"
)

// Role constants define valid turn authors.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session represents a conversation thread owned by one principal.
type Session struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	StartedAt time.Time `json:"started_at"`
}

// Turn is one message in a session. Turns are append-only: never mutated
// or reordered after creation.
type Turn struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Role      string    `json:"role"` // RoleUser | RoleAssistant
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// IsUser reports whether the turn was authored by the user.
func (t Turn) IsUser() bool {
	return t.Role == RoleUser
}
