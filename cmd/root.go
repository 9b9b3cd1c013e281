package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the famsyncd application
var rootCmd = &cobra.Command{
	Use:   "famsyncd",
	Short: "Household calendar aggregation service for wall-mounted displays",
	Long: `famsyncd aggregates calendars from the Google accounts of a household
into a single cached snapshot, attributes events to household members, and
serves the result to wall-mounted dashboard displays over a JSON HTTP API.

It can run as:
  - A long-running API server (serve)
  - A one-shot sync for a user (sync)
  - Administrative commands for users, displays, and accounts`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "famsyncd version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newAccountsCmd())
	rootCmd.AddCommand(newUsersCmd())
	rootCmd.AddCommand(newDisplaysCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// newLogger builds the process logger. Debug mode switches to verbose
// structured output on stderr.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
