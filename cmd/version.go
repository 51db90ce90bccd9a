package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Printf("Lumen v%s\n", AppVersion)
			fmt.Printf("Build: %s\n", BuildTime)
			fmt.Printf("Commit: %s\n", GitCommit)
			return nil
		},
	}
}
