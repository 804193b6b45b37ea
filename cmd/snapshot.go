package cmd

import (
	"fmt"
	"io"

	"github.com/adalundhe/dirsentry/core/snapshot"
	"github.com/spf13/cobra"
)

// =============================================================================
// Snapshot Command
// =============================================================================

var snapshotJSON bool

// snapshotCmd prints the persisted snapshot.
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Show the stored snapshot",
	Long: `Show the digest of every file recorded by the last completed scan.

Examples:
  dirsentry snapshot
  dirsentry snapshot --backend sqlite --store /var/lib/dirsentry/snap.db
  dirsentry snapshot --json`,
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().BoolVar(&snapshotJSON, "json", false, "Output as a JSON object")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(globalOverrides())
	if err != nil {
		return err
	}
	settings, err := cfg.ValidateStorage()
	if err != nil {
		return err
	}
	return printSnapshot(cmd.OutOrStdout(), settings.Backend, settings.StorePath, snapshotJSON)
}

func printSnapshot(w io.Writer, backend snapshot.Backend, path string, asJSON bool) error {
	store, err := snapshot.Open(backend, path)
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := store.Load()
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(w, snap)
	}
	for _, p := range snap.Paths() {
		fmt.Fprintf(w, "%s  %s\n", snap[p], p)
	}
	return nil
}
