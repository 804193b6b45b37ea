package cmd

import (
	"time"

	"github.com/adalundhe/dirsentry/core/config"
	"github.com/adalundhe/dirsentry/core/storage"
	"github.com/spf13/cobra"
)

// monitorFlags are the flags that tune a monitoring run.
type monitorFlags struct {
	interval  time.Duration
	algorithm string
	workers   int
	onFailure string
	include   []string
	exclude   []string
	listen    string
}

func (f *monitorFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.DurationVarP(&f.interval, "interval", "i", 0, "Time between scans (default 60s)")
	flags.StringVar(&f.algorithm, "algorithm", "", "Hash algorithm (sha256, sha3-256, blake2b-256)")
	flags.IntVar(&f.workers, "workers", 0, "Concurrent hash workers (default 4)")
	flags.StringVar(&f.onFailure, "on-hash-failure", "", "Unreadable files: report-deleted or carry-forward")
	flags.StringSliceVarP(&f.include, "include", "I", nil, "Include patterns (e.g., '*.go,*.conf')")
	flags.StringSliceVarP(&f.exclude, "exclude", "E", nil, "Exclude patterns (e.g., '*.tmp')")
	flags.StringVar(&f.listen, "listen", "", "Dashboard address (e.g., 127.0.0.1:8080)")
}

// globalOverrides collects the persistent flags as a config overlay.
func globalOverrides() *config.Config {
	return &config.Config{
		Store:   config.StoreConfig{Backend: backend, Path: storePath},
		Log:     config.LogConfig{Path: logPath, Verbose: verbose},
		Console: config.ConsoleConfig{NoColor: noColor},
	}
}

func (f *monitorFlags) overrides(roots []string) *config.Config {
	o := globalOverrides()
	o.Roots = roots
	o.Interval = f.interval
	o.Hashing = config.HashingConfig{
		Algorithm: f.algorithm,
		Workers:   f.workers,
		OnFailure: f.onFailure,
	}
	o.Filter = config.FilterConfig{Include: f.include, Exclude: f.exclude}
	o.Dashboard = config.DashboardConfig{Listen: f.listen}
	return o
}

// loadConfig resolves defaults, config files and environment, then applies
// overrides.
func loadConfig(overrides *config.Config) (*config.Config, error) {
	manager := config.NewManager(storage.ResolveDirs())
	if err := manager.Load(configPath); err != nil {
		return nil, err
	}
	manager.Apply(overrides)
	return manager.Get(), nil
}
