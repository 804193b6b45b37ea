// Package storage resolves platform-native directories with XDG support.
package storage

import (
	"os"
	"path/filepath"
	"sync"
)

// AppName names the per-user subdirectories.
const AppName = "dirsentry"

const (
	// SnapshotFile is the default snapshot document name.
	SnapshotFile = "file_hashes.json"

	// ChangeLogFile is the default change log name.
	ChangeLogFile = "file_monitor.log"

	// ConfigFile is the name of the user config file.
	ConfigFile = "config.yaml"

	// ProjectConfigFile is looked up in the working directory.
	ProjectConfigFile = ".dirsentry.yaml"
)

// Dirs holds the per-user directories.
type Dirs struct {
	Config string // User configuration
	State  string // Snapshots and change logs
}

var (
	globalDirs     *Dirs
	globalDirsOnce sync.Once
)

// ResolveDirs returns platform-appropriate directories.
// Results are cached after first call.
func ResolveDirs() *Dirs {
	globalDirsOnce.Do(func() {
		globalDirs = resolveDirsImpl()
	})
	return globalDirs
}

func resolveDirsImpl() *Dirs {
	return &Dirs{
		Config: resolveDir("XDG_CONFIG_HOME", platformConfigDefault()),
		State:  resolveDir("XDG_STATE_HOME", platformStateDefault()),
	}
}

func resolveDir(envVar, fallback string) string {
	if dir := os.Getenv(envVar); dir != "" {
		return filepath.Join(dir, AppName)
	}
	return fallback
}

// ConfigDir returns a path under the config directory.
func (d *Dirs) ConfigDir(subpath ...string) string {
	return filepath.Join(append([]string{d.Config}, subpath...)...)
}

// StateDir returns a path under the state directory.
func (d *Dirs) StateDir(subpath ...string) string {
	return filepath.Join(append([]string{d.State}, subpath...)...)
}

// UserConfigPath is the user-level config file.
func (d *Dirs) UserConfigPath() string {
	return d.ConfigDir(ConfigFile)
}

// SnapshotPath is the default snapshot store location.
func (d *Dirs) SnapshotPath() string {
	return d.StateDir(SnapshotFile)
}

// ChangeLogPath is the default change log location.
func (d *Dirs) ChangeLogPath() string {
	return d.StateDir(ChangeLogFile)
}

// EnsureDir creates a directory with the specified permissions if it doesn't exist.
// Uses 0700 when perm is zero.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = 0700
	}
	return os.MkdirAll(path, perm)
}

// EnsureParent creates the directory that will hold file.
func EnsureParent(file string) error {
	return EnsureDir(filepath.Dir(file), 0755)
}
