// Package tree enumerates the regular files reachable under a set of root
// directories.
//
// Traversal policy: only regular files are listed. Symbolic links are never
// followed or listed, whether they point at files or directories, so a link
// cycle cannot make a walk unbounded. Devices, sockets and named pipes are
// skipped. Directories that cannot be read are skipped and reported.
package tree

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNoRoots indicates no root directory was supplied.
	ErrNoRoots = errors.New("no directories provided for monitoring")

	// ErrRootNotExist indicates a root path does not exist.
	ErrRootNotExist = errors.New("root path does not exist")

	// ErrRootNotDir indicates a root path is not a directory.
	ErrRootNotDir = errors.New("root path is not a directory")

	// ErrInvalidPattern indicates a glob pattern could not be compiled.
	ErrInvalidPattern = errors.New("invalid glob pattern")
)

// RootError wraps a root validation failure with the offending path.
type RootError struct {
	Root string
	Err  error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("%s: %v", e.Root, e.Err)
}

func (e *RootError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Root Normalization
// =============================================================================

// NormalizeRoots converts roots to absolute clean paths, drops duplicates and
// verifies each one is an existing directory. The result is sorted.
// Nested roots are kept; Enumerate deduplicates the files they share.
func NormalizeRoots(roots []string) ([]string, error) {
	if len(roots) == 0 {
		return nil, ErrNoRoots
	}

	seen := make(map[string]struct{}, len(roots))
	normalized := make([]string, 0, len(roots))

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, &RootError{Root: root, Err: err}
		}
		if err := ValidateRoot(abs); err != nil {
			return nil, err
		}
		// A root that is itself a link is resolved once; links below it are not.
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, &RootError{Root: root, Err: err}
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		normalized = append(normalized, resolved)
	}

	sort.Strings(normalized)
	return normalized, nil
}

// ValidateRoot checks that path exists and is a directory.
func ValidateRoot(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return &RootError{Root: path, Err: ErrRootNotExist}
	}
	if err != nil {
		return &RootError{Root: path, Err: err}
	}
	if !info.IsDir() {
		return &RootError{Root: path, Err: ErrRootNotDir}
	}
	return nil
}
