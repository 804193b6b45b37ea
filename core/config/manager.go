// Package config loads monitor settings from defaults, YAML files,
// DIRSENTRY_* environment variables and command-line overrides, then
// validates them into a form the monitor can run with.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/adalundhe/dirsentry/core/fingerprint"
	"github.com/adalundhe/dirsentry/core/monitor"
	"github.com/adalundhe/dirsentry/core/sink"
	"github.com/adalundhe/dirsentry/core/snapshot"
	"github.com/adalundhe/dirsentry/core/storage"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DIRSENTRY_"

// Config is the complete monitor configuration.
type Config struct {
	Roots            []string        `yaml:"roots"`
	Interval         time.Duration   `yaml:"interval"`
	CheckGranularity time.Duration   `yaml:"check_granularity"`
	Store            StoreConfig     `yaml:"store"`
	Log              LogConfig       `yaml:"log"`
	Hashing          HashingConfig   `yaml:"hashing"`
	Filter           FilterConfig    `yaml:"filter"`
	Dashboard        DashboardConfig `yaml:"dashboard"`
	Console          ConsoleConfig   `yaml:"console"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type LogConfig struct {
	// Path is the change log file.
	Path    string `yaml:"path"`
	Verbose bool   `yaml:"verbose"`
}

type HashingConfig struct {
	Algorithm string `yaml:"algorithm"`
	Workers   int    `yaml:"workers"`
	OnFailure string `yaml:"on_failure"`
}

type FilterConfig struct {
	Include     []string `yaml:"include"`
	Exclude     []string `yaml:"exclude"`
	ExcludeDirs []string `yaml:"exclude_dirs"`
}

type DashboardConfig struct {
	// Listen is the dashboard address; empty disables it.
	Listen   string `yaml:"listen"`
	RingSize int    `yaml:"ring_size"`
}

type ConsoleConfig struct {
	NoColor bool `yaml:"no_color"`
}

// DefaultConfig returns the built-in defaults. Store and log paths are left
// empty and filled from the state directory by the Manager.
func DefaultConfig() *Config {
	return &Config{
		Interval:         monitor.DefaultInterval,
		CheckGranularity: monitor.DefaultCheckGranularity,
		Store: StoreConfig{
			Backend: string(snapshot.BackendJSON),
		},
		Hashing: HashingConfig{
			Algorithm: fingerprint.SHA256.String(),
			Workers:   fingerprint.DefaultWorkers,
			OnFailure: monitor.ReportDeleted.String(),
		},
		Dashboard: DashboardConfig{
			RingSize: sink.DefaultRingSize,
		},
	}
}

// =============================================================================
// Manager
// =============================================================================

// Manager resolves the layered configuration. Later layers win: defaults,
// user config file, project or explicit config file, environment.
type Manager struct {
	configPtr atomic.Pointer[Config]
	dirs      *storage.Dirs
	workDir   string
}

// NewManager returns a manager holding the defaults.
func NewManager(dirs *storage.Dirs) *Manager {
	m := &Manager{dirs: dirs, workDir: "."}
	cfg := DefaultConfig()
	m.applyPathDefaults(cfg)
	m.configPtr.Store(cfg)
	return m
}

// WithWorkDir changes where the project config file is looked up.
func (m *Manager) WithWorkDir(dir string) *Manager {
	m.workDir = dir
	return m
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	return m.configPtr.Load()
}

// Load rebuilds the configuration. A non-empty explicitPath replaces the
// project config lookup and must exist.
func (m *Manager) Load(explicitPath string) error {
	cfg := DefaultConfig()

	if err := m.loadYAMLFile(m.dirs.UserConfigPath(), cfg, false); err != nil {
		return fmt.Errorf("user config: %w", err)
	}

	if explicitPath != "" {
		if err := m.loadYAMLFile(explicitPath, cfg, true); err != nil {
			return fmt.Errorf("config %s: %w", explicitPath, err)
		}
	} else {
		projectPath := filepath.Join(m.workDir, storage.ProjectConfigFile)
		if err := m.loadYAMLFile(projectPath, cfg, false); err != nil {
			return fmt.Errorf("project config: %w", err)
		}
	}

	if err := applyEnvironment(cfg); err != nil {
		return err
	}
	m.applyPathDefaults(cfg)

	m.configPtr.Store(cfg)
	return nil
}

// Apply overlays overrides, typically from command-line flags, onto the
// current configuration.
func (m *Manager) Apply(overrides *Config) {
	cfg := *m.Get()
	cfg.Roots = append([]string(nil), cfg.Roots...)
	Overlay(&cfg, overrides)
	m.configPtr.Store(&cfg)
}

func (m *Manager) loadYAMLFile(path string, cfg *Config, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func (m *Manager) applyPathDefaults(cfg *Config) {
	if cfg.Store.Path == "" {
		cfg.Store.Path = m.dirs.SnapshotPath()
	}
	if cfg.Log.Path == "" {
		cfg.Log.Path = m.dirs.ChangeLogPath()
	}
}

// =============================================================================
// Environment
// =============================================================================

func applyEnvironment(cfg *Config) error {
	if v := getenv("ROOTS"); v != "" {
		cfg.Roots = filepath.SplitList(v)
	}
	if v := getenv("INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return envError("INTERVAL", err)
		}
		cfg.Interval = d
	}
	if v := getenv("STORE"); v != "" {
		cfg.Store.Path = v
	}
	if v := getenv("BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := getenv("LOG"); v != "" {
		cfg.Log.Path = v
	}
	if v := getenv("ALGORITHM"); v != "" {
		cfg.Hashing.Algorithm = v
	}
	if v := getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError("WORKERS", err)
		}
		cfg.Hashing.Workers = n
	}
	if v := getenv("ON_HASH_FAILURE"); v != "" {
		cfg.Hashing.OnFailure = v
	}
	if v := getenv("LISTEN"); v != "" {
		cfg.Dashboard.Listen = v
	}
	if v := getenv("NO_COLOR"); v != "" {
		cfg.Console.NoColor = strings.EqualFold(v, "true") || v == "1"
	}
	return nil
}

func getenv(name string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + name))
}

func envError(name string, err error) error {
	return &ConfigError{Field: EnvPrefix + name, Err: err}
}
