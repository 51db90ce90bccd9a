package identity

import (
	"context"
	"strings"
	"testing"

	"github.com/lumenlabs/lumen/internal/log"
)

func TestFileProviderLifecycle(t *testing.T) {
	dir := t.TempDir()
	provider, err := NewFileProvider(dir)
	if err != nil {
		t.Fatalf("NewFileProvider() error = %v", err)
	}

	// Fresh directory: no principal yet.
	if _, ok := provider.Current(); ok {
		t.Fatal("Current() = true on fresh directory, want false")
	}

	minted, err := provider.CreateAnonymous(context.Background())
	if err != nil {
		t.Fatalf("CreateAnonymous() error = %v", err)
	}
	if !minted.Anonymous {
		t.Error("minted principal not marked anonymous")
	}
	if !strings.HasPrefix(minted.ID, "anon-") {
		t.Errorf("minted id = %q, want anon- prefix", minted.ID)
	}

	// The persisted principal resolves on subsequent reads.
	current, ok := provider.Current()
	if !ok {
		t.Fatal("Current() = false after creation, want true")
	}
	if current != minted {
		t.Errorf("Current() = %+v, want %+v", current, minted)
	}

	// A second provider over the same directory sees the same principal.
	second, err := NewFileProvider(dir)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := second.Current()
	if !ok || got.ID != minted.ID {
		t.Errorf("second provider Current() = %+v, %v, want %+v", got, ok, minted)
	}
}

func TestCreateAnonymousKeepsExistingPrincipal(t *testing.T) {
	dir := t.TempDir()
	provider, err := NewFileProvider(dir)
	if err != nil {
		t.Fatal(err)
	}

	first, err := provider.CreateAnonymous(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// The re-check under the lock returns the winner, never a second id.
	second, err := provider.CreateAnonymous(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("second CreateAnonymous() = %q, want existing %q", second.ID, first.ID)
	}
}

func TestEnsureWithFileProviderIsStable(t *testing.T) {
	dir := t.TempDir()
	provider, err := NewFileProvider(dir)
	if err != nil {
		t.Fatal(err)
	}

	logger := log.NewNop()
	first, err := Ensure(context.Background(), provider, logger)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	second, err := Ensure(context.Background(), provider, logger)
	if err != nil {
		t.Fatalf("second Ensure() error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("Ensure() minted a new principal: %q then %q", first.ID, second.ID)
	}
}
