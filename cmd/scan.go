package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/adalundhe/dirsentry/core/config"
	"github.com/adalundhe/dirsentry/core/monitor"
	"github.com/adalundhe/dirsentry/core/sink"
	"github.com/spf13/cobra"
)

// =============================================================================
// Scan Command
// =============================================================================

var (
	scanFlags monitorFlags
	scanJSON  bool
)

// scanCmd runs a single scan cycle.
var scanCmd = &cobra.Command{
	Use:   "scan [directories...]",
	Short: "Run a single scan cycle",
	Long: `Run one scan cycle against the stored snapshot and exit.

Changes are reported, appended to the change log and saved to the snapshot
store exactly as a cycle of the watch command would.

Examples:
  dirsentry scan /etc
  dirsentry scan --json /srv/www`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanFlags.register(scanCmd)
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Output the cycle report as JSON")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(scanFlags.overrides(args))
	if err != nil {
		return err
	}
	settings, err := cfg.Validate()
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), settings.Verbose)
	return scan(cmd.Context(), settings, cmd.OutOrStdout(), scanJSON, useColor(settings.Color, cmd.OutOrStdout()), logger)
}

// scan runs one cycle and writes either event lines or a JSON report.
func scan(ctx context.Context, settings *config.Settings, out io.Writer, asJSON, color bool, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := newPipeline(settings, pipelineHooks{}, logger)
	if err != nil {
		return err
	}

	report, err := p.scheduler.RunOnce(ctx)
	if closeErr := p.Close(); closeErr != nil {
		logger.Error("failed to close monitor", "error", closeErr)
	}
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(out, report)
	}
	return outputScanReport(out, report, color)
}

func outputScanReport(w io.Writer, report monitor.Report, color bool) error {
	if report.Interrupted != "" {
		return fmt.Errorf("scan interrupted: %s", report.Interrupted)
	}
	for _, ev := range report.Events {
		fmt.Fprintln(w, sink.ConsoleLine(ev))
	}
	for _, failure := range report.HashFailures {
		fmt.Fprintf(w, accessErrorText, failure.Path)
	}

	summary := fmt.Sprintf("%d files, %d added, %d modified, %d deleted in %s",
		report.Files, report.Added, report.Modified, report.Deleted, report.Duration.Round(time.Millisecond))
	fmt.Fprintln(w, paint(color, colorGray, summary))

	if report.StoreError != "" {
		return fmt.Errorf("snapshot not saved: %s", report.StoreError)
	}
	return nil
}
