package safeio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeFSAllowsAbsoluteUnderRoot(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(p, []byte("hello"), 0o644))

	fsys, err := NewSafeFS(dir)
	require.NoError(t, err)

	got, err := fsys.ReadText(p)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	got, err = fsys.ReadText("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestSafeFSRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	fsys, err := NewSafeFS(dir)
	require.NoError(t, err)

	_, err = fsys.ReadFile("../etc/passwd")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestSafeFSRejectsSymlinkEscape(t *testing.T) {
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("s3cr3t"), 0o644))

	dir := t.TempDir()
	if err := os.Symlink(secret, filepath.Join(dir, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	fsys, err := NewSafeFS(dir)
	require.NoError(t, err)

	_, err = fsys.ReadText("link.txt")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestDecodeTextFallsBackToLatin1(t *testing.T) {
	assert.Equal(t, "héllo", DecodeText([]byte("héllo")))
	// 0xE9 alone is invalid UTF-8 but is 'é' in ISO-8859-1.
	assert.Equal(t, "café", DecodeText([]byte{'c', 'a', 'f', 0xE9}))
}

func TestReadFileRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	fsys, err := NewSafeFS(dir)
	require.NoError(t, err)
	_, err = fsys.ReadFile("sub")
	assert.ErrorIs(t, err, ErrIsDir)
}
