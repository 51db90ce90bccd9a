package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const stateFile = "current_session"

// LoadCurrentSessionID loads the active session id from the state
// directory. Returns (nil, nil) when no state file exists — having no
// current session is not an error.
func LoadCurrentSessionID(dir string) (*uuid.UUID, error) {
	data, err := os.ReadFile(filepath.Join(dir, stateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session state file: %w", err)
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return nil, nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid session id in state file: %w", err)
	}

	return &id, nil
}

// SaveCurrentSessionID persists the active session id atomically
// (temp file + rename).
func SaveCurrentSessionID(dir string, id uuid.UUID) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, stateFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating session state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(id.String() + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing session state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing session state file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, stateFile)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("persisting session state file: %w", err)
	}

	return nil
}

// ClearCurrentSessionID removes the active-session state. Idempotent.
func ClearCurrentSessionID(dir string) error {
	err := os.Remove(filepath.Join(dir, stateFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session state file: %w", err)
	}
	return nil
}
