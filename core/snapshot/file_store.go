package snapshot

import (
	"os"
	"sync"

	"github.com/adalundhe/dirsentry/core/storage"
)

// FileStore persists a snapshot as one indented JSON object mapping path to
// hex digest. Paths that are not valid UTF-8 survive the round trip.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by the JSON document at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the snapshot document path.
func (s *FileStore) Path() string {
	return s.path
}

// TempPath returns the path used for in-progress writes.
func (s *FileStore) TempPath() string {
	return s.path + ".tmp"
}

// Load reads the snapshot document. A missing document yields an empty
// snapshot and no error.
func (s *FileStore) Load() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, &MalformedStoreError{Path: s.path, Err: err}
	}

	decoded, err := decodeDocument(data)
	if err != nil {
		return Snapshot{}, &MalformedStoreError{Path: s.path, Err: err}
	}
	for path, digest := range decoded {
		if err := validateDigest(path, digest); err != nil {
			return Snapshot{}, &MalformedStoreError{Path: s.path, Err: err}
		}
	}

	return decoded, nil
}

// Save writes the snapshot to a temporary file, syncs it and renames it over
// the document.
func (s *FileStore) Save(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap == nil {
		snap = Snapshot{}
	}

	data, err := encodeDocument(snap)
	if err != nil {
		return &StoreError{Op: "encode", Path: s.path, Err: err}
	}

	if err := storage.EnsureParent(s.path); err != nil {
		return &StoreError{Op: "mkdir", Path: s.path, Err: err}
	}

	tmpPath := s.TempPath()
	if err := writeSynced(tmpPath, data); err != nil {
		_ = os.Remove(tmpPath)
		return &StoreError{Op: "write", Path: tmpPath, Err: err}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return &StoreError{Op: "rename", Path: s.path, Err: err}
	}

	return nil
}

// Close is a no-op for file stores.
func (s *FileStore) Close() error {
	return nil
}

// writeSynced writes data and fsyncs before closing.
func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
