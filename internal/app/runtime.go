package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lumenlabs/lumen/internal/config"
	"github.com/lumenlabs/lumen/internal/identity"
	"github.com/lumenlabs/lumen/internal/pipeline"
)

// Runtime is a fully initialized application with all components ready
// to use. It encapsulates the common startup sequence shared by the
// CLI and the HTTP server: Setup, identity bootstrap, flow definition.
type Runtime struct {
	App       *App
	Flow      *pipeline.Flow
	Principal identity.Principal
	Shutdown  func() error
}

// NewRuntime creates a fully initialized runtime. This is the
// recommended way to start lumen from any entry point.
//
// Usage:
//
//	runtime, err := app.NewRuntime(ctx, cfg, logger)
//	if err != nil { ... }
//	defer runtime.Shutdown()
func NewRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	application, err := Setup(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing application: %w", err)
	}

	principal, err := identity.Ensure(ctx, application.Identity, logger)
	if err != nil {
		_ = application.Close()
		return nil, fmt.Errorf("bootstrapping identity: %w", err)
	}

	flow := pipeline.NewFlow(application.Genkit, application.Runner)

	return &Runtime{
		App:       application,
		Flow:      flow,
		Principal: principal,
		Shutdown:  application.Close,
	}, nil
}
