// Package cli implements the backstop command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/LavishGent/backstop/internal/config"
)

var rootFlags struct {
	configFile string
	envFile    string
	verbose    bool
}

var rootCmd = &cobra.Command{
	Use:   "backstop",
	Short: "Resilient access layer for a remote key/value cache",
	Long: `backstop connects to a remote Redis-compatible cache through an ordered
failover chain (primary first, then an optional failover endpoint), funnels
every command through a bounded retry executor, and drives concurrent worker
traffic over the single established connection.

Configuration comes from a JSON file (--config), BACKSTOP_* environment
variables, or both; environment variables win. An optional .env file is
loaded first (--env-file, or a .env in the working directory).

Exit Codes:
  0  - Success
  1  - General error (run or check failed)
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration
  11 - No endpoint could be established`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootFlags.configFile, "config", "c", "",
		"Path to JSON config file (missing file falls back to defaults)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.envFile, "env-file", "",
		"Load environment variables from this file before reading config")
	rootCmd.PersistentFlags().BoolVarP(&rootFlags.verbose, "verbose", "v", false,
		"Enable debug logging")
}

// setup loads the env file and installs the default logger before any
// command runs.
func setup(cmd *cobra.Command, args []string) error {
	if rootFlags.envFile != "" {
		if err := godotenv.Load(rootFlags.envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", rootFlags.envFile, err)
		}
	} else {
		// A .env in the working directory is optional.
		_ = godotenv.Load()
	}

	level := slog.LevelInfo
	if rootFlags.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig resolves the effective configuration for a command.
func loadConfig() (*config.Config, error) {
	return config.LoadWithEnv(rootFlags.configFile)
}
