package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashKnownVector(t *testing.T) {
	h := DefaultHasher()
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		h.Hash(nil))
}

func TestHashFilesMatchesConcatenation(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("hello "), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("world"), 0o644))

	h := DefaultHasher()
	got, err := h.HashFiles(a, b)
	require.NoError(t, err)
	assert.Equal(t, h.Hash([]byte("hello world")), got)

	reversed, err := h.HashFiles(b, a)
	require.NoError(t, err)
	assert.NotEqual(t, got, reversed, "file order is part of the digest")
}

func TestHashFilesMissing(t *testing.T) {
	_, err := DefaultHasher().HashFiles(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestShort(t *testing.T) {
	assert.Equal(t, "abcd", Short("abcdef", 4))
	assert.Equal(t, "ab", Short("ab", 4))
}
