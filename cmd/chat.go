package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lumenlabs/lumen/internal/app"
	"github.com/lumenlabs/lumen/internal/config"
	"github.com/lumenlabs/lumen/internal/engine"
	"github.com/lumenlabs/lumen/internal/identity"
	"github.com/lumenlabs/lumen/internal/pipeline"
	"github.com/lumenlabs/lumen/internal/session"
)

// runChat starts the interactive conversation loop.
func runChat(cmd *cobra.Command, _ []string) error {
	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runtime, err := app.NewRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := runtime.Shutdown(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	controller, err := runtime.App.NewController()
	if err != nil {
		return fmt.Errorf("creating sync controller: %w", err)
	}
	defer controller.Close()

	// Surface async failures (rejected durable writes, pipeline errors
	// already shown inline) without blocking the loop.
	go func() {
		for n := range controller.Notices() {
			if n.Kind == engine.NoticeSyncWriteFailed {
				fmt.Fprintf(os.Stderr, "warning: a message could not be saved: %v\n", n.Err)
			}
		}
	}()

	stateDir, err := identity.DefaultStateDir()
	if err != nil {
		return fmt.Errorf("resolving state directory: %w", err)
	}

	active, err := resolveActiveSession(ctx, runtime, stateDir)
	if err != nil {
		return err
	}
	if err := controller.SetActiveSession(ctx, active); err != nil {
		return err
	}

	fmt.Printf("Lumen v%s\n", AppVersion)
	fmt.Println("Type /help for commands, Ctrl+D to exit.")
	fmt.Println()

	loop := &chatLoop{
		runtime:    runtime,
		controller: controller,
		stateDir:   stateDir,
		mode:       pipeline.ModeGeneral,
	}
	return loop.run(ctx)
}

// resolveActiveSession restores the persisted selection, falls back to
// the most recent session, and creates a first session when the owner
// has none.
func resolveActiveSession(ctx context.Context, runtime *app.Runtime, stateDir string) (uuid.UUID, error) {
	ownerID := runtime.Principal.ID
	store := runtime.App.Store

	var active uuid.UUID
	if saved, err := session.LoadCurrentSessionID(stateDir); err == nil && saved != nil {
		active = *saved
	}

	sessions, err := store.Sessions(ctx, ownerID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("listing sessions: %w", err)
	}

	if id, ok := session.DefaultSelection(active, sessions); ok {
		if err := session.SaveCurrentSessionID(stateDir, id); err != nil {
			return uuid.Nil, err
		}
		return id, nil
	}

	created, err := store.CreateSession(ctx, ownerID, "")
	if err != nil {
		return uuid.Nil, fmt.Errorf("creating session: %w", err)
	}
	if err := session.SaveCurrentSessionID(stateDir, created.ID); err != nil {
		return uuid.Nil, err
	}
	return created.ID, nil
}

type chatLoop struct {
	runtime    *app.Runtime
	controller *engine.Controller
	stateDir   string
	mode       pipeline.Mode
}

func (l *chatLoop) run(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")

		if !scanner.Scan() {
			// EOF (Ctrl+D)
			fmt.Println("\nGoodbye!")
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			exit, err := l.handleCommand(ctx, input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			if exit {
				break
			}
			continue
		}

		resp, err := l.controller.Submit(ctx, input, l.mode)
		if err != nil {
			switch {
			case errors.Is(err, engine.ErrBusy):
				fmt.Fprintln(os.Stderr, "still working on the previous message")
			case errors.Is(err, engine.ErrSuperseded):
				// Session changed mid-flight; nothing to show.
			default:
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			continue
		}

		fmt.Println(resp.Text)
		fmt.Println()
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// handleCommand handles slash commands; returns true to exit the loop.
func (l *chatLoop) handleCommand(ctx context.Context, input string) (bool, error) {
	parts := strings.Fields(input)

	switch parts[0] {
	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /mode [name]     Show or set the reasoning mode")
		fmt.Println("                   (general, coding, cognitive, knowledge, task)")
		fmt.Println("  /session         Show the current session")
		fmt.Println("  /session list    List all sessions")
		fmt.Println("  /session new     Create and switch to a new session")
		fmt.Println("  /exit, /quit     Exit lumen")
		fmt.Println()

	case "/mode":
		if len(parts) < 2 {
			fmt.Printf("current mode: %s\n\n", l.mode)
			return false, nil
		}
		mode, err := pipeline.ParseMode(parts[1])
		if err != nil {
			return false, err
		}
		l.mode = mode
		fmt.Printf("mode set to %s\n\n", mode)

	case "/session":
		return false, l.handleSessionCommand(ctx, parts[1:])

	case "/exit", "/quit":
		fmt.Println("Goodbye!")
		return true, nil

	default:
		fmt.Printf("Unknown command: %s\n", parts[0])
		fmt.Println("Type /help to see available commands")
		fmt.Println()
	}

	return false, nil
}

func (l *chatLoop) handleSessionCommand(ctx context.Context, args []string) error {
	ownerID := l.runtime.Principal.ID
	store := l.runtime.App.Store

	if len(args) == 0 {
		fmt.Printf("current session: %s\n\n", l.controller.ActiveSession())
		return nil
	}

	switch args[0] {
	case "list":
		sessions, err := store.Sessions(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("no sessions")
			return nil
		}
		active := l.controller.ActiveSession()
		for _, s := range sessions {
			marker := " "
			if s.ID == active {
				marker = "*"
			}
			fmt.Printf("%s %s  %s  %s\n", marker, s.ID, s.Name, s.StartedAt.Format("2006-01-02 15:04"))
		}
		fmt.Println()
		return nil

	case "new":
		created, err := store.CreateSession(ctx, ownerID, "")
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		if err := l.controller.SetActiveSession(ctx, created.ID); err != nil {
			return err
		}
		if err := session.SaveCurrentSessionID(l.stateDir, created.ID); err != nil {
			return err
		}
		fmt.Printf("switched to %q\n\n", created.Name)
		return nil

	default:
		return fmt.Errorf("unknown session command: %s", args[0])
	}
}
