package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lumenlabs/lumen/api"
	"github.com/lumenlabs/lumen/internal/app"
	"github.com/lumenlabs/lumen/internal/config"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	var addr string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), addr)
		},
	}

	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return serveCmd
}

// runServe initializes and starts the HTTP API server.
func runServe(parent context.Context, addr string) error {
	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if addr == "" {
		addr = cfg.ListenAddr
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting HTTP API server", "version", AppVersion)

	runtime, err := app.NewRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := runtime.Shutdown(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	server := api.NewServer(
		runtime.App.DBPool,
		runtime.App.Store,
		runtime.Flow,
		runtime.Principal.ID,
		logger,
	)

	return server.Run(ctx, addr)
}
