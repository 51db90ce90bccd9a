// Package cmd contains the lumen CLI.
//
// Following the pattern used by kubectl, hugo, and other standard Go
// CLI tools, all application logic lives here and main.go stays a
// minimal entry point.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumenlabs/lumen/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "lumen",
	Short: "Lumen - conversational AI assistant",
	Long: `Lumen is a conversational AI assistant with durable sessions.

Running lumen without arguments starts the interactive chat.`,
	SilenceUsage: true,
	RunE:         runChat,
}

// Execute runs the root command.
func Execute() error {
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd.Execute()
}

// initLogger initializes the structured logger.
//
// Log level is controlled by the DEBUG environment variable:
//   - DEBUG set (any value): debug level logging
//   - DEBUG not set: info level logging
//
// Logs go to stderr; stdout is reserved for conversation output.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}

	logger := log.NewWithWriter(os.Stderr, log.Config{Level: level})
	slog.SetDefault(logger)
	return logger
}
