package tree

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"
)

// =============================================================================
// Configuration
// =============================================================================

// Config holds configuration for an Enumerator.
type Config struct {
	// Roots are the directories to walk. They should already be normalized
	// with NormalizeRoots.
	Roots []string

	// Include are glob patterns a file must match (relative path or base
	// name). Empty means every file is included.
	Include []string

	// Exclude are glob patterns that drop a file (relative path or base name).
	Exclude []string

	// ExcludeDirs are directory base names that are never descended into.
	ExcludeDirs []string

	// Ignore are absolute file paths never listed, such as the monitor's own
	// snapshot and change log.
	Ignore []string
}

// =============================================================================
// Listing
// =============================================================================

// WalkError records an entry that could not be visited.
type WalkError struct {
	Path string
	Err  error
}

func (e WalkError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

// Listing is the outcome of one enumeration.
type Listing struct {
	// Files are the unique regular file paths found, sorted.
	Files []string

	// Errors are entries that were skipped because they could not be read.
	Errors []WalkError
}

// =============================================================================
// Enumerator
// =============================================================================

// Enumerator walks root directories and lists regular files.
type Enumerator struct {
	config      Config
	include     []glob.Glob
	exclude     []glob.Glob
	excludeDirs map[string]struct{}
	ignore      map[string]struct{}
}

// New compiles the configured patterns and returns an Enumerator.
func New(config Config) (*Enumerator, error) {
	include, err := compileGlobs(config.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := compileGlobs(config.Exclude)
	if err != nil {
		return nil, err
	}

	e := &Enumerator{
		config:      config,
		include:     include,
		exclude:     exclude,
		excludeDirs: toSet(config.ExcludeDirs),
		ignore:      make(map[string]struct{}, len(config.Ignore)),
	}
	for _, p := range config.Ignore {
		for _, form := range ignoreForms(p) {
			e.ignore[form] = struct{}{}
		}
	}
	return e, nil
}

// ignoreForms returns the absolute path of p and, when it differs, the path
// with symlinks resolved. Roots are walked in resolved form, so an ignored
// file named through a symlinked directory must match that form too. The
// file itself may not exist yet, so only its directory is resolved then.
func ignoreForms(p string) []string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		dir, derr := filepath.EvalSymlinks(filepath.Dir(abs))
		if derr != nil {
			return []string{abs}
		}
		resolved = filepath.Join(dir, filepath.Base(abs))
	}
	if resolved == abs {
		return []string{abs}
	}
	return []string{abs, resolved}
}

// compileGlobs compiles a slice of glob pattern strings into matchers.
func compileGlobs(patterns []string) ([]glob.Glob, error) {
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		matcher, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Join(ErrInvalidPattern, err)
		}
		matchers = append(matchers, matcher)
	}
	return matchers, nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// =============================================================================
// Enumerate
// =============================================================================

// Enumerate walks every root and returns the deduplicated set of regular
// files. Unreadable entries are collected in Listing.Errors. The only
// returned error is ctx.Err() when the walk is cancelled.
func (e *Enumerator) Enumerate(ctx context.Context) (Listing, error) {
	seen := make(map[string]struct{})
	var walkErrs []WalkError

	for _, root := range e.config.Roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return fs.SkipAll
			}
			if err != nil {
				walkErrs = append(walkErrs, WalkError{Path: path, Err: err})
				if d != nil && d.IsDir() && path != root {
					return fs.SkipDir
				}
				return nil
			}
			return e.visit(root, path, d, seen)
		})
		if err != nil {
			walkErrs = append(walkErrs, WalkError{Path: root, Err: err})
		}
		if ctx.Err() != nil {
			return Listing{}, ctx.Err()
		}
	}

	files := make([]string, 0, len(seen))
	for path := range seen {
		files = append(files, path)
	}
	sort.Strings(files)

	return Listing{Files: files, Errors: walkErrs}, nil
}

// visit classifies a single walk entry.
func (e *Enumerator) visit(root, path string, d fs.DirEntry, seen map[string]struct{}) error {
	if d.IsDir() {
		if path != root {
			if _, skip := e.excludeDirs[d.Name()]; skip {
				return fs.SkipDir
			}
		}
		return nil
	}

	// WalkDir reports symlinks without following them; the type bits filter
	// links and special files alike.
	if !d.Type().IsRegular() {
		return nil
	}

	if _, ignored := e.ignore[path]; ignored {
		return nil
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil
	}
	if !e.shouldInclude(filepath.ToSlash(rel), d.Name()) {
		return nil
	}

	seen[path] = struct{}{}
	return nil
}

// shouldInclude applies exclude patterns first, then include patterns.
func (e *Enumerator) shouldInclude(relPath, name string) bool {
	for _, m := range e.exclude {
		if m.Match(relPath) || m.Match(name) {
			return false
		}
	}
	if len(e.include) == 0 {
		return true
	}
	for _, m := range e.include {
		if m.Match(relPath) || m.Match(name) {
			return true
		}
	}
	return false
}
