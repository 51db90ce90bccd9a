package identity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const principalFile = "principal"

// FileProvider persists an anonymous principal id under a state
// directory (~/.lumen by default). It plays the role of an identity
// provider for single-user deployments: the first run mints a principal,
// later runs resolve the same one.
//
// Writes go through a temp file + rename guarded by a flock, so
// concurrent lumen processes agree on a single principal.
type FileProvider struct {
	dir string
}

// NewFileProvider creates a provider rooted at dir, creating it if needed.
func NewFileProvider(dir string) (*FileProvider, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &FileProvider{dir: dir}, nil
}

// DefaultStateDir returns ~/.lumen.
func DefaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".lumen"), nil
}

// Current reads the persisted principal id, if any.
func (p *FileProvider) Current() (Principal, bool) {
	data, err := os.ReadFile(filepath.Join(p.dir, principalFile))
	if err != nil {
		return Principal{}, false
	}

	id := strings.TrimSpace(string(data))
	if id == "" {
		return Principal{}, false
	}

	return Principal{ID: id, Anonymous: true}, true
}

// CreateAnonymous mints a new principal id and persists it. If another
// process won the race, the already-persisted principal is returned
// instead, so exactly one principal exists per state directory.
func (p *FileProvider) CreateAnonymous(ctx context.Context) (Principal, error) {
	lock := flock.New(filepath.Join(p.dir, principalFile+".lock"))

	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return Principal{}, fmt.Errorf("locking principal file: %w", err)
	}
	if !locked {
		return Principal{}, fmt.Errorf("principal file is locked by another process")
	}
	defer func() { _ = lock.Unlock() }()

	// Re-check under the lock: a concurrent creator may have finished.
	if principal, ok := p.Current(); ok {
		return principal, nil
	}

	principal := Principal{ID: "anon-" + uuid.NewString(), Anonymous: true}

	target := filepath.Join(p.dir, principalFile)
	tmp, err := os.CreateTemp(p.dir, principalFile+".tmp-*")
	if err != nil {
		return Principal{}, fmt.Errorf("creating temp principal file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(principal.ID + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return Principal{}, fmt.Errorf("writing principal file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return Principal{}, fmt.Errorf("closing principal file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return Principal{}, fmt.Errorf("persisting principal file: %w", err)
	}

	return principal, nil
}
