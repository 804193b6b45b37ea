package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/adalundhe/dirsentry/core/fingerprint"
	"github.com/adalundhe/dirsentry/core/monitor"
	"github.com/adalundhe/dirsentry/core/snapshot"
	"github.com/adalundhe/dirsentry/core/tree"
)

// ErrInvalidValue marks a setting outside its allowed range.
var ErrInvalidValue = errors.New("invalid value")

// ConfigError reports an unusable setting. It is fatal at startup.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Settings is a validated configuration with every value parsed.
type Settings struct {
	Roots            []string
	Interval         time.Duration
	CheckGranularity time.Duration
	Algorithm        fingerprint.Algorithm
	Workers          int
	Policy           monitor.FailurePolicy
	Backend          snapshot.Backend
	StorePath        string
	LogPath          string
	Include          []string
	Exclude          []string
	ExcludeDirs      []string
	Listen           string
	RingSize         int
	Color            bool
	Verbose          bool
}

// Validate checks every setting and resolves roots and file paths. Errors
// are *ConfigError.
func (c *Config) Validate() (*Settings, error) {
	roots, err := tree.NormalizeRoots(c.Roots)
	if err != nil {
		return nil, &ConfigError{Field: "roots", Err: err}
	}
	if c.Interval <= 0 {
		return nil, &ConfigError{Field: "interval", Err: fmt.Errorf("%w: %s", ErrInvalidValue, c.Interval)}
	}
	if c.CheckGranularity < 0 {
		return nil, &ConfigError{Field: "check_granularity", Err: fmt.Errorf("%w: %s", ErrInvalidValue, c.CheckGranularity)}
	}
	if c.Hashing.Workers < 0 {
		return nil, &ConfigError{Field: "hashing.workers", Err: fmt.Errorf("%w: %d", ErrInvalidValue, c.Hashing.Workers)}
	}
	if c.Dashboard.RingSize < 0 {
		return nil, &ConfigError{Field: "dashboard.ring_size", Err: fmt.Errorf("%w: %d", ErrInvalidValue, c.Dashboard.RingSize)}
	}

	algo, err := fingerprint.ParseAlgorithm(c.Hashing.Algorithm)
	if err != nil {
		return nil, &ConfigError{Field: "hashing.algorithm", Err: err}
	}
	policy, ok := monitor.ParseFailurePolicy(c.Hashing.OnFailure)
	if !ok {
		return nil, &ConfigError{Field: "hashing.on_failure", Err: fmt.Errorf("%w: %q", ErrInvalidValue, c.Hashing.OnFailure)}
	}
	paths, err := c.ValidateStorage()
	if err != nil {
		return nil, err
	}

	settings := &Settings{
		Roots:            roots,
		Interval:         c.Interval,
		CheckGranularity: c.CheckGranularity,
		Algorithm:        algo,
		Workers:          c.Hashing.Workers,
		Policy:           policy,
		Backend:          paths.Backend,
		StorePath:        paths.StorePath,
		LogPath:          paths.LogPath,
		Include:          c.Filter.Include,
		Exclude:          c.Filter.Exclude,
		ExcludeDirs:      c.Filter.ExcludeDirs,
		Listen:           c.Dashboard.Listen,
		RingSize:         c.Dashboard.RingSize,
		Color:            !c.Console.NoColor,
		Verbose:          c.Log.Verbose,
	}

	if _, err := tree.New(settings.TreeConfig()); err != nil {
		return nil, &ConfigError{Field: "filter", Err: err}
	}
	return settings, nil
}

// ValidateStorage checks only the snapshot and change log settings, for
// commands that read them without monitoring anything. Roots are ignored.
func (c *Config) ValidateStorage() (*Settings, error) {
	backend, err := snapshot.ParseBackend(c.Store.Backend)
	if err != nil {
		return nil, &ConfigError{Field: "store.backend", Err: err}
	}
	storePath, err := absPath("store.path", c.Store.Path)
	if err != nil {
		return nil, err
	}
	logPath, err := absPath("log.path", c.Log.Path)
	if err != nil {
		return nil, err
	}
	return &Settings{
		Backend:   backend,
		StorePath: storePath,
		LogPath:   logPath,
		Color:     !c.Console.NoColor,
		Verbose:   c.Log.Verbose,
	}, nil
}

// TreeConfig builds the enumerator configuration. The monitor's own files
// are always ignored so its writes never show up as changes.
func (s *Settings) TreeConfig() tree.Config {
	return tree.Config{
		Roots:       s.Roots,
		Include:     s.Include,
		Exclude:     s.Exclude,
		ExcludeDirs: s.ExcludeDirs,
		Ignore:      s.OwnFiles(),
	}
}

// OwnFiles lists every file the monitor itself writes.
func (s *Settings) OwnFiles() []string {
	files := []string{s.StorePath, s.StorePath + ".tmp", s.LogPath}
	if s.Backend == snapshot.BackendSQLite {
		files = append(files, s.StorePath+"-wal", s.StorePath+"-shm", s.StorePath+"-journal")
	}
	return files
}

func absPath(field, path string) (string, error) {
	if path == "" {
		return "", &ConfigError{Field: field, Err: fmt.Errorf("%w: empty path", ErrInvalidValue)}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &ConfigError{Field: field, Err: err}
	}
	return abs, nil
}
