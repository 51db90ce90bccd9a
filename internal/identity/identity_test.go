package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/lumenlabs/lumen/internal/log"
)

// fakeProvider is a scriptable Provider for bootstrap tests.
type fakeProvider struct {
	current     Principal
	hasCurrent  bool
	created     Principal
	createErr   error
	createCalls int
}

func (p *fakeProvider) Current() (Principal, bool) {
	return p.current, p.hasCurrent
}

func (p *fakeProvider) CreateAnonymous(_ context.Context) (Principal, error) {
	p.createCalls++
	if p.createErr != nil {
		return Principal{}, p.createErr
	}
	return p.created, nil
}

func TestEnsureWithExistingPrincipal(t *testing.T) {
	existing := Principal{ID: "anon-existing", Anonymous: true}
	provider := &fakeProvider{current: existing, hasCurrent: true}

	got, err := Ensure(context.Background(), provider, log.NewNop())
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if got != existing {
		t.Errorf("Ensure() = %+v, want %+v", got, existing)
	}
	// Idempotent: no creation request when a principal is present.
	if provider.createCalls != 0 {
		t.Errorf("CreateAnonymous called %d times, want 0", provider.createCalls)
	}
}

func TestEnsureCreatesAnonymous(t *testing.T) {
	minted := Principal{ID: "anon-fresh", Anonymous: true}
	provider := &fakeProvider{created: minted}

	got, err := Ensure(context.Background(), provider, log.NewNop())
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if got != minted {
		t.Errorf("Ensure() = %+v, want %+v", got, minted)
	}
	if provider.createCalls != 1 {
		t.Errorf("CreateAnonymous called %d times, want 1", provider.createCalls)
	}
}

func TestEnsureProviderUnavailable(t *testing.T) {
	provider := &fakeProvider{createErr: errors.New("network down")}

	_, err := Ensure(context.Background(), provider, log.NewNop())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Ensure() error = %v, want ErrUnavailable", err)
	}
}
