package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestCurrentSessionIDRoundTrip(t *testing.T) {
	dir := t.TempDir()
	id := uuid.New()

	if err := SaveCurrentSessionID(dir, id); err != nil {
		t.Fatalf("SaveCurrentSessionID() error = %v", err)
	}

	loaded, err := LoadCurrentSessionID(dir)
	if err != nil {
		t.Fatalf("LoadCurrentSessionID() error = %v", err)
	}
	if loaded == nil || *loaded != id {
		t.Errorf("loaded = %v, want %v", loaded, id)
	}
}

func TestLoadCurrentSessionIDAbsent(t *testing.T) {
	loaded, err := LoadCurrentSessionID(t.TempDir())
	if err != nil {
		t.Fatalf("LoadCurrentSessionID() error = %v", err)
	}
	if loaded != nil {
		t.Errorf("loaded = %v, want nil for missing state", loaded)
	}
}

func TestLoadCurrentSessionIDCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, stateFile), []byte("not-a-uuid\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadCurrentSessionID(dir); err == nil {
		t.Error("LoadCurrentSessionID() succeeded on corrupt state, want error")
	}
}

func TestClearCurrentSessionID(t *testing.T) {
	dir := t.TempDir()
	if err := SaveCurrentSessionID(dir, uuid.New()); err != nil {
		t.Fatal(err)
	}

	if err := ClearCurrentSessionID(dir); err != nil {
		t.Fatalf("ClearCurrentSessionID() error = %v", err)
	}

	loaded, err := LoadCurrentSessionID(dir)
	if err != nil || loaded != nil {
		t.Errorf("after clear: loaded = %v, err = %v, want nil, nil", loaded, err)
	}

	// Clearing again is a no-op.
	if err := ClearCurrentSessionID(dir); err != nil {
		t.Errorf("second ClearCurrentSessionID() error = %v", err)
	}
}

func TestSaveCurrentSessionIDOverwrites(t *testing.T) {
	dir := t.TempDir()
	first := uuid.New()
	second := uuid.New()

	if err := SaveCurrentSessionID(dir, first); err != nil {
		t.Fatal(err)
	}
	if err := SaveCurrentSessionID(dir, second); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadCurrentSessionID(dir)
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil || *loaded != second {
		t.Errorf("loaded = %v, want %v", loaded, second)
	}
}
