package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Pulse - social sentiment trading pipeline",
	Long: `Pulse Unified CLI

Social media sentiment trading pipeline: ingests Reddit posts and
comments, resolves ticker mentions, scores sentiment and routes
qualifying signals to execution or human review.

Usage:
  go run ./cmd/pulse [command]

Examples:
  go run ./cmd/pulse start
  go run ./cmd/pulse start --mode manual
  go run ./cmd/pulse backfill
  go run ./cmd/pulse status`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
