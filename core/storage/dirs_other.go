//go:build !linux && !windows

package storage

import (
	"os"
	"path/filepath"
)

func platformConfigDefault() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".config", AppName)
}

func platformStateDefault() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".local", "state", AppName)
}
