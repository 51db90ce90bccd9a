// Package app provides application initialization and dependency
// wiring.
//
// App is the container that holds the shared components every entry
// point needs: the Genkit instance, the database pool, the session
// store and watcher, and the reasoning pipeline. Setup builds it in
// dependency order; Close releases everything in reverse.
package app

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenlabs/lumen/internal/config"
	"github.com/lumenlabs/lumen/internal/engine"
	"github.com/lumenlabs/lumen/internal/identity"
	"github.com/lumenlabs/lumen/internal/pipeline"
	"github.com/lumenlabs/lumen/internal/session"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	DBPool   *pgxpool.Pool
	Store    *session.Store
	Watcher  *session.Watcher
	Runner   *pipeline.Runner
	Identity identity.Provider

	otelCleanup func()
	dbCleanup   func()
	cancel      context.CancelFunc
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	a.logger().Info("shutting down application")

	if a.cancel != nil {
		a.cancel()
	}

	if a.dbCleanup != nil {
		a.dbCleanup()
		a.logger().Info("database pool closed")
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// NewController creates an optimistic sync controller bound to the
// application's store, watcher and pipeline. Each UI surface gets its
// own controller; the underlying components are shared.
func (a *App) NewController() (*engine.Controller, error) {
	return engine.NewController(engine.Config{
		Store:   a.Store,
		Watcher: a.Watcher,
		Runner:  a.Runner,
		Logger:  a.logger(),
	})
}
