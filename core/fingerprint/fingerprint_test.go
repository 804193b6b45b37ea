package fingerprint

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func sha256Hex(content string) Digest {
	sum := sha256.Sum256([]byte(content))
	return Digest(hex.EncodeToString(sum[:]))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// =============================================================================
// Algorithm Tests
// =============================================================================

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		name    string
		want    Algorithm
		wantErr bool
	}{
		{"", SHA256, false},
		{"sha256", SHA256, false},
		{"SHA3-256", SHA3_256, false},
		{" blake2b-256 ", BLAKE2b256, false},
		{"md5", SHA256, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownAlgorithm)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlgorithm_DigestLength(t *testing.T) {
	for _, algo := range []Algorithm{SHA256, SHA3_256, BLAKE2b256} {
		t.Run(algo.String(), func(t *testing.T) {
			d := NewHasher(algo).HashBytes([]byte("hello"))
			assert.Len(t, d.String(), 64)
		})
	}
}

func TestAlgorithm_DistinctOutputs(t *testing.T) {
	a := NewHasher(SHA256).HashBytes([]byte("hello"))
	b := NewHasher(SHA3_256).HashBytes([]byte("hello"))
	c := NewHasher(BLAKE2b256).HashBytes([]byte("hello"))

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, b, c)
	assert.NotEqual(t, a, c)
}

// =============================================================================
// Hash Tests
// =============================================================================

func TestHash_KnownContent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "hello")

	got, err := NewHasher(SHA256).Hash(path)
	require.NoError(t, err)
	assert.Equal(t, sha256Hex("hello"), got)
}

func TestHash_Deterministic(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "same bytes")
	h := NewHasher(SHA256)

	first, err := h.Hash(path)
	require.NoError(t, err)
	second, err := h.Hash(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestHash_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty", "")

	got, err := NewHasher(SHA256).Hash(path)
	require.NoError(t, err)
	assert.Equal(t, Digest("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"), got)
}

func TestHash_SpansManyBlocks(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte("0123456789abcdef"), BlockSize) // 16 blocks
	path := filepath.Join(dir, "large.bin")
	require.NoError(t, os.WriteFile(path, content, 0644))

	got, err := NewHasher(SHA256).Hash(path)
	require.NoError(t, err)

	sum := sha256.Sum256(content)
	assert.Equal(t, Digest(hex.EncodeToString(sum[:])), got)
}

func TestHash_MissingFileIsAccessError(t *testing.T) {
	_, err := NewHasher(SHA256).Hash(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	var accessErr *AccessError
	require.True(t, errors.As(err, &accessErr))
	assert.Equal(t, "open", accessErr.Op)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestHash_DirectoryIsAccessError(t *testing.T) {
	_, err := NewHasher(SHA256).Hash(t.TempDir())

	var accessErr *AccessError
	assert.True(t, errors.As(err, &accessErr))
}

func TestHashReader_MatchesHashBytes(t *testing.T) {
	h := NewHasher(BLAKE2b256)
	fromReader, err := h.HashReader(bytes.NewReader([]byte("payload")))
	require.NoError(t, err)
	assert.Equal(t, h.HashBytes([]byte("payload")), fromReader)
}

// =============================================================================
// HashAll Tests
// =============================================================================

type failingHasher struct {
	inner FileHasher
	fail  map[string]bool
}

func (f *failingHasher) Hash(path string) (Digest, error) {
	if f.fail[path] {
		return "", &AccessError{Path: path, Op: "read", Err: fs.ErrPermission}
	}
	return f.inner.Hash(path)
}

func TestHashAll_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		paths = append(paths, writeFile(t, dir, name, "content-"+name))
	}

	outcomes := HashAll(context.Background(), NewHasher(SHA256), paths, 3)
	require.Len(t, outcomes, len(paths))

	for i, out := range outcomes {
		assert.Equal(t, paths[i], out.Path)
		require.NoError(t, out.Err)
		assert.Equal(t, sha256Hex("content-"+filepath.Base(paths[i])), out.Digest)
	}
}

func TestHashAll_ReportsFailuresPerPath(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good", "ok")
	bad := writeFile(t, dir, "bad", "nope")

	hasher := &failingHasher{inner: NewHasher(SHA256), fail: map[string]bool{bad: true}}
	outcomes := HashAll(context.Background(), hasher, []string{good, bad}, 2)

	require.Len(t, outcomes, 2)
	assert.NoError(t, outcomes[0].Err)
	var accessErr *AccessError
	assert.True(t, errors.As(outcomes[1].Err, &accessErr))
}

func TestHashAll_Empty(t *testing.T) {
	assert.Nil(t, HashAll(context.Background(), NewHasher(SHA256), nil, 4))
}

func TestHashAll_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a", "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := HashAll(ctx, NewHasher(SHA256), []string{path}, 1)
	require.Len(t, outcomes, 1)
	assert.ErrorIs(t, outcomes[0].Err, context.Canceled)
}
