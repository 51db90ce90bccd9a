package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lumenlabs/lumen/internal/app"
	"github.com/lumenlabs/lumen/internal/config"
)

// newSessionsCmd creates the sessions command group.
func newSessionsCmd() *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage conversation sessions",
	}

	sessionsCmd.AddCommand(newSessionsListCmd())
	sessionsCmd.AddCommand(newSessionsShowCmd())
	sessionsCmd.AddCommand(newSessionsDeleteCmd())

	return sessionsCmd
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), runSessionsList)
		},
	}
}

func newSessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's turn log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, runtime *app.Runtime) error {
				return runSessionsShow(ctx, runtime, args[0])
			})
		},
	}
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session and its turn log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, runtime *app.Runtime) error {
				return runSessionsDelete(ctx, runtime, args[0])
			})
		},
	}
}

// withRuntime initializes the application, runs fn, and shuts down.
func withRuntime(ctx context.Context, fn func(context.Context, *app.Runtime) error) error {
	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	runtime, err := app.NewRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := runtime.Shutdown(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	return fn(ctx, runtime)
}

func runSessionsList(ctx context.Context, runtime *app.Runtime) error {
	sessions, err := runtime.App.Store.Sessions(ctx, runtime.Principal.ID)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions yet. Run lumen to start one.")
		return nil
	}

	for _, s := range sessions {
		fmt.Printf("%s  %-20s  %s\n", s.ID, s.Name, formatTime(s.StartedAt))
	}
	return nil
}

func runSessionsShow(ctx context.Context, runtime *app.Runtime, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session id: %s", rawID)
	}

	store := runtime.App.Store
	sess, err := store.Session(ctx, runtime.Principal.ID, id)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	turns, err := store.Turns(ctx, id, runtime.App.Config.HistoryLimit)
	if err != nil {
		return fmt.Errorf("loading turns: %w", err)
	}

	fmt.Printf("Session: %s\n", sess.Name)
	fmt.Printf("Started: %s\n", formatTime(sess.StartedAt))
	fmt.Printf("Turns:   %d\n", len(turns))
	fmt.Println()

	for _, t := range turns {
		speaker := "You"
		if !t.IsUser() {
			speaker = "Lumen"
		}
		fmt.Printf("%s> %s\n\n", speaker, t.Content)
	}
	return nil
}

func runSessionsDelete(ctx context.Context, runtime *app.Runtime, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session id: %s", rawID)
	}

	if err := runtime.App.Store.DeleteSession(ctx, runtime.Principal.ID, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	fmt.Printf("Deleted session %s\n", id)
	return nil
}

// formatTime formats time in a human-readable format.
func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02 15:04")
	}
}
