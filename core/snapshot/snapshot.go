// Package snapshot persists the mapping from file path to content digest that
// is carried between scan cycles.
package snapshot

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/adalundhe/dirsentry/core/fingerprint"
)

// Snapshot maps absolute file paths to their content digest as of the end of
// a completed scan cycle.
type Snapshot map[string]fingerprint.Digest

// Clone returns an independent copy. Cloning nil yields an empty snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for path, digest := range s {
		out[path] = digest
	}
	return out
}

// Equal reports whether both snapshots hold the same paths and digests.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for path, digest := range s {
		if d, ok := other[path]; !ok || d != digest {
			return false
		}
	}
	return true
}

// Paths returns the snapshot's paths in sorted order.
func (s Snapshot) Paths() []string {
	paths := make([]string, 0, len(s))
	for path := range s {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// =============================================================================
// Store
// =============================================================================

// Store loads and saves whole snapshots. Save replaces the previous snapshot
// atomically: a later Load sees either the old or the new snapshot in full.
type Store interface {
	// Load returns the persisted snapshot, or an empty one if none exists.
	// Unreadable or corrupt data yields an empty snapshot together with a
	// *MalformedStoreError.
	Load() (Snapshot, error)

	// Save replaces the persisted snapshot. Failures are *StoreError.
	Save(Snapshot) error

	// Close releases any resources held by the store.
	Close() error
}

// =============================================================================
// Errors
// =============================================================================

// StoreError reports that a snapshot could not be persisted or read from the
// backing storage.
type StoreError struct {
	Op   string
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("snapshot store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// MalformedStoreError reports that existing snapshot data could not be
// decoded. Callers treat the snapshot as empty and continue.
type MalformedStoreError struct {
	Path string
	Err  error
}

func (e *MalformedStoreError) Error() string {
	return fmt.Sprintf("malformed snapshot %s: %v", e.Path, e.Err)
}

func (e *MalformedStoreError) Unwrap() error {
	return e.Err
}

// IsMalformed reports whether err is or wraps a *MalformedStoreError.
func IsMalformed(err error) bool {
	var malformed *MalformedStoreError
	return errors.As(err, &malformed)
}

// errInvalidDigest flags a stored digest that is not lowercase hex.
var errInvalidDigest = errors.New("invalid digest")

// validateDigest checks that a stored value looks like a hex digest.
func validateDigest(path string, digest fingerprint.Digest) error {
	if digest == "" || len(digest)%2 != 0 {
		return fmt.Errorf("%w for %s", errInvalidDigest, path)
	}
	if strings.Trim(string(digest), "0123456789abcdef") != "" {
		return fmt.Errorf("%w for %s", errInvalidDigest, path)
	}
	return nil
}

// =============================================================================
// Backend
// =============================================================================

// Backend selects the storage format.
type Backend string

const (
	// BackendJSON stores the snapshot as a single JSON document.
	BackendJSON Backend = "json"

	// BackendSQLite stores the snapshot in a SQLite database.
	BackendSQLite Backend = "sqlite"
)

// ErrUnknownBackend is returned for unsupported backend names.
var ErrUnknownBackend = errors.New("unknown snapshot backend")

// ParseBackend resolves a backend name. The empty string selects BackendJSON.
func ParseBackend(name string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(name))) {
	case "", BackendJSON:
		return BackendJSON, nil
	case BackendSQLite:
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// Open returns a store for the backend at path.
func Open(backend Backend, path string) (Store, error) {
	switch backend {
	case BackendJSON, "":
		return NewFileStore(path), nil
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
