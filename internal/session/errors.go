package session

import "errors"

// Sentinel errors for session operations. Part of the Store's public
// API; check with errors.Is().
var (
	// ErrSessionNotFound indicates the session does not exist or is not
	// owned by the given principal.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidRole indicates a turn carries an unknown author role.
	ErrInvalidRole = errors.New("invalid turn role")

	// ErrEmptyOwner indicates an operation was attempted without a
	// principal. Session operations are defined only for a present
	// principal.
	ErrEmptyOwner = errors.New("empty owner principal")
)
