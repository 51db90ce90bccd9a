package session

import "github.com/google/uuid"

// DefaultSelection computes the active session given the current active
// id and the owner's session list (descending by start time). Pure
// function; re-evaluate whenever either input changes.
//
// Policy:
//   - a still-existing active session stays active
//   - otherwise the most recent session becomes active
//   - with no sessions, nothing is selected and session-dependent
//     operations are disabled
func DefaultSelection(active uuid.UUID, sessions []*Session) (uuid.UUID, bool) {
	if active != uuid.Nil {
		for _, s := range sessions {
			if s.ID == active {
				return active, true
			}
		}
	}

	if len(sessions) > 0 {
		return sessions[0].ID, true
	}

	return uuid.Nil, false
}
