package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/adalundhe/dirsentry/core/config"
	"github.com/adalundhe/dirsentry/core/dashboard"
	"github.com/adalundhe/dirsentry/core/signal"
	"github.com/adalundhe/dirsentry/core/sink"
	"github.com/adalundhe/dirsentry/core/tree"
	"github.com/spf13/cobra"
)

// =============================================================================
// Watch Command
// =============================================================================

var watchFlags monitorFlags

// watchCmd represents the watch command.
var watchCmd = &cobra.Command{
	Use:   "watch [directories...]",
	Short: "Monitor directories for changes",
	Long: `Monitor directories for added, modified and deleted files.

Directories come from the arguments, the config file, or an interactive
prompt when neither is given and stdin is a terminal. Monitoring runs until
SIGINT, SIGTERM, or a "stop" line on stdin.

Examples:
  dirsentry watch /etc /srv/www
  dirsentry watch --interval 10s --exclude '*.tmp' ~/projects
  dirsentry watch --listen 127.0.0.1:8080 /var/lib/app`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchFlags.register(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	out := &syncWriter{w: cmd.OutOrStdout()}
	in := bufio.NewReader(cmd.InOrStdin())

	cfg, err := loadConfig(watchFlags.overrides(nil))
	if err != nil {
		return err
	}

	roots, err := resolveRoots(args, cfg.Roots, in, isTerminal(cmd.InOrStdin()), out)
	if err != nil {
		return err
	}
	cfg.Roots = roots

	settings, err := cfg.Validate()
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), settings.Verbose)
	ctx, release := signal.WithSignals(context.Background(), func() {
		fmt.Fprintln(out, "Forced exit.")
		os.Exit(130)
	})
	defer release()

	return watch(ctx, settings, in, out, useColor(settings.Color, cmd.OutOrStdout()), logger)
}

// resolveRoots picks the directories to monitor: arguments first, then
// configured roots, then the interactive prompt.
func resolveRoots(args, configured []string, in *bufio.Reader, interactive bool, out io.Writer) ([]string, error) {
	var roots []string
	switch {
	case len(args) > 0:
		roots = filterDirectories(args, out)
	case len(configured) > 0:
		roots = filterDirectories(configured, out)
	case interactive:
		roots = promptDirectories(in, out)
	}

	if len(roots) == 0 {
		fmt.Fprintln(out, noRootsMessage)
		return nil, &config.ConfigError{Field: "roots", Err: tree.ErrNoRoots}
	}
	return roots, nil
}

// watch runs the scheduler until ctx is cancelled or a stop command is read
// from in.
func watch(ctx context.Context, settings *config.Settings, in io.Reader, out io.Writer, color bool, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p, err := newPipeline(settings, pipelineHooks{
		console: sink.NewConsole(out, color),
		onHashFailure: func(path string, _ error) {
			fmt.Fprintf(out, accessErrorText, path)
		},
	}, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, monitoringText, formatRoots(settings.Roots))
	fmt.Fprintln(out, stopHintMessage)

	go signal.NewStopReader(in, out, cancel).Run(ctx)

	var wg sync.WaitGroup
	if settings.Listen != "" {
		server := dashboard.New(dashboard.Config{
			Addr:     settings.Listen,
			Roots:    settings.Roots,
			Interval: settings.Interval,
			LogPath:  settings.LogPath,
			Status:   p.scheduler,
			Events:   p.ring,
			Metrics:  p.metrics.Handler(),
			Logger:   logger,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Start(ctx); err != nil {
				logger.Error("dashboard failed", "addr", settings.Listen, "error", err)
			}
		}()
	}

	runErr := p.scheduler.Run(ctx)
	cancel()
	wg.Wait()

	if err := p.Close(); err != nil {
		logger.Error("failed to close monitor", "error", err)
	}
	fmt.Fprintln(out, stoppedMessage)
	return runErr
}
