// Package cmd provides the CLI commands for MediStore.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/medistore/medistore/internal/config"
)

var (
	cfgFile     string
	storageFlag string
	traceFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "medistore",
	Short: "MediStore - pharmacy store client",
	Long: `MediStore is the command-line client for the MediStore pharmacy API.

It keeps a signed-in session on this machine, refreshes it transparently
when the server rejects an expired token, and caches catalog data locally.

Quick start:
  1. medistore login --email owner@example.com
  2. medistore catalog products

Configuration:
  Config is loaded from medistore.yaml in the current directory,
  $HOME/.medistore/, or /etc/medistore/.

  Environment variables can override config values with the MEDISTORE_ prefix.
  Example: MEDISTORE_API_BASE_URL=https://api.example.com/v1`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./medistore.yaml)")
	rootCmd.PersistentFlags().StringVar(&storageFlag, "storage", "", "storage backend: file, sqlite, redis or memory")
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false, "export spans and metrics to stderr")
}

func initConfig() {
	config.InitViper(cfgFile)
}
