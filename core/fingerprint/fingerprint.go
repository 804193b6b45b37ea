// Package fingerprint computes content digests for monitored files. Files are
// streamed in fixed-size blocks so memory use does not depend on file size.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// =============================================================================
// Constants
// =============================================================================

// BlockSize is the read size used when streaming file content.
const BlockSize = 4 * 1024

// =============================================================================
// Digest
// =============================================================================

// Digest is the lowercase hex encoding of a content hash.
type Digest string

// String returns the hex form of the digest.
func (d Digest) String() string {
	return string(d)
}

// =============================================================================
// Algorithm
// =============================================================================

// Algorithm selects the hash function used for digests.
type Algorithm int

const (
	// SHA256 is the default algorithm.
	SHA256 Algorithm = iota

	// SHA3_256 is SHA3-256 from golang.org/x/crypto.
	SHA3_256

	// BLAKE2b256 is BLAKE2b with a 256-bit output.
	BLAKE2b256
)

var algorithmNames = map[Algorithm]string{
	SHA256:     "sha256",
	SHA3_256:   "sha3-256",
	BLAKE2b256: "blake2b-256",
}

// ErrUnknownAlgorithm is returned by ParseAlgorithm for unsupported names.
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

// String returns the canonical algorithm name.
func (a Algorithm) String() string {
	if name, ok := algorithmNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseAlgorithm resolves an algorithm by name. The empty string selects SHA256.
func ParseAlgorithm(name string) (Algorithm, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return SHA256, nil
	}
	for algo, n := range algorithmNames {
		if n == normalized {
			return algo, nil
		}
	}
	return SHA256, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// New returns a fresh hash accumulator for the algorithm.
func (a Algorithm) New() hash.Hash {
	switch a {
	case SHA3_256:
		return sha3.New256()
	case BLAKE2b256:
		// New256 only fails for keys longer than 64 bytes.
		h, _ := blake2b.New256(nil)
		return h
	default:
		return sha256.New()
	}
}

// =============================================================================
// AccessError
// =============================================================================

// AccessError reports that a file could not be opened or read to completion.
// It is recoverable: the file is skipped for the current cycle.
type AccessError struct {
	Path string
	Op   string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("could not access %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Hasher
// =============================================================================

// FileHasher digests a single file.
type FileHasher interface {
	Hash(path string) (Digest, error)
}

// Hasher streams files through a configured algorithm.
type Hasher struct {
	algo Algorithm
}

// NewHasher creates a hasher for the given algorithm.
func NewHasher(algo Algorithm) *Hasher {
	return &Hasher{algo: algo}
}

// Algorithm returns the configured algorithm.
func (h *Hasher) Algorithm() Algorithm {
	return h.algo
}

// Hash computes the digest of the file at path. Open and read failures are
// returned as *AccessError.
func (h *Hasher) Hash(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", &AccessError{Path: path, Op: "open", Err: err}
	}
	defer file.Close()

	digest, err := h.HashReader(file)
	if err != nil {
		return "", &AccessError{Path: path, Op: "read", Err: err}
	}
	return digest, nil
}

// HashReader computes the digest of everything r yields until EOF.
func (h *Hasher) HashReader(r io.Reader) (Digest, error) {
	acc := h.algo.New()
	buffer := make([]byte, BlockSize)

	// Wrap r so io.CopyBuffer cannot bypass the block buffer via WriterTo.
	if _, err := io.CopyBuffer(acc, struct{ io.Reader }{r}, buffer); err != nil {
		return "", err
	}

	return Digest(hex.EncodeToString(acc.Sum(nil))), nil
}

// HashBytes digests an in-memory byte slice.
func (h *Hasher) HashBytes(content []byte) Digest {
	acc := h.algo.New()
	acc.Write(content)
	return Digest(hex.EncodeToString(acc.Sum(nil)))
}
