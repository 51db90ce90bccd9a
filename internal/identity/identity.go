// Package identity resolves the principal that owns sessions.
//
// A principal is an opaque stable identifier for the acting user. It may
// be anonymous: when no principal is resolvable, Ensure asks the provider
// to mint one. Session operations are defined only for a present
// principal, so callers must treat an Ensure failure as fatal for any
// session work.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnavailable indicates the identity provider could not be reached or
// refused to create a principal. Callers must not attempt session store
// operations after receiving it.
var ErrUnavailable = errors.New("identity provider unavailable")

// Principal is the stable identity of the acting user.
// Created once per device or authentication event; never mutated.
type Principal struct {
	ID        string
	Anonymous bool
}

// Provider supplies the current principal and can mint anonymous ones.
type Provider interface {
	// Current returns the resolved principal, or false when absent.
	// The check is synchronous and must not block on the network.
	Current() (Principal, bool)

	// CreateAnonymous mints and durably records a new anonymous principal.
	CreateAnonymous(ctx context.Context) (Principal, error)
}

// Ensure returns the current principal, creating an anonymous one if none
// is resolvable. Idempotent: with a principal already present it is a
// no-op and issues no creation request.
func Ensure(ctx context.Context, p Provider, logger *slog.Logger) (Principal, error) {
	if principal, ok := p.Current(); ok {
		return principal, nil
	}

	principal, err := p.CreateAnonymous(ctx)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	logger.Info("created anonymous principal", "principal_id", principal.ID)
	return principal, nil
}
