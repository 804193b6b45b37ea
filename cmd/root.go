// Package cmd provides CLI commands for the dirsentry application.
package cmd

import (
	"github.com/spf13/cobra"
)

// =============================================================================
// Global Flags
// =============================================================================

var (
	configPath string
	storePath  string
	backend    string
	logPath    string
	noColor    bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "dirsentry",
	Short: "dirsentry - A directory integrity monitor",
	Long: `dirsentry watches directory trees for content changes.

Every interval it hashes every regular file under the monitored roots,
compares the result with the previous snapshot and reports files that were
added, modified or deleted.`,
	SilenceUsage: true,
}

func init() {
	pflags := rootCmd.PersistentFlags()
	pflags.StringVar(&configPath, "config", "", "Config file (default ./.dirsentry.yaml)")
	pflags.StringVar(&storePath, "store", "", "Snapshot store path")
	pflags.StringVar(&backend, "backend", "", "Snapshot backend (json, sqlite)")
	pflags.StringVar(&logPath, "log", "", "Change log path")
	pflags.BoolVar(&noColor, "no-color", false, "Disable colored output")
	pflags.BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
}

func Execute() error {
	return rootCmd.Execute()
}
