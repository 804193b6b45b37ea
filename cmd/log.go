package cmd

import (
	"fmt"
	"io"

	"github.com/adalundhe/dirsentry/core/sink"
	"github.com/spf13/cobra"
)

// =============================================================================
// Log Command
// =============================================================================

var (
	logJSON bool
	logTail int
)

// logCmd prints the change log.
var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the change log",
	Long: `Show the change log, one "<timestamp> - <message>" line per change.

Examples:
  dirsentry log
  dirsentry log --tail 20
  dirsentry log --json`,
	Args: cobra.NoArgs,
	RunE: runLog,
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().BoolVar(&logJSON, "json", false, "Output as a JSON array")
	logCmd.Flags().IntVarP(&logTail, "tail", "n", 0, "Show only the last N lines")
}

func runLog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(globalOverrides())
	if err != nil {
		return err
	}
	settings, err := cfg.ValidateStorage()
	if err != nil {
		return err
	}
	return printLog(cmd.OutOrStdout(), settings.LogPath, logTail, logJSON)
}

func printLog(w io.Writer, path string, tail int, asJSON bool) error {
	lines, err := sink.ReadLines(path)
	if err != nil {
		return fmt.Errorf("read change log: %w", err)
	}
	lines = sink.Tail(lines, tail)

	if asJSON {
		return writeJSON(w, lines)
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return nil
}
