package dedup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	h1, n, err := HashFile(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed", h1)
	assert.Equal(t, int64(11), n)

	// Same content, same digest.
	path2 := filepath.Join(dir, "test2.txt")
	require.NoError(t, os.WriteFile(path2, []byte("hello world"), 0o644))
	h2, _, err := HashFile(context.Background(), path2, nil)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	path3 := filepath.Join(dir, "test3.txt")
	require.NoError(t, os.WriteFile(path3, []byte("different content"), 0o644))
	h3, _, err := HashFile(context.Background(), path3, nil)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestHashFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	h, n, err := HashFile(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", h)
	assert.Zero(t, n)
}

func TestHashFileLimited(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abc.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	h, _, err := HashFile(context.Background(), path, NewHashLimiter(1<<20))
	require.NoError(t, err)
	assert.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d", h)
}

func TestHashFileNotExist(t *testing.T) {
	_, _, err := HashFile(context.Background(), "/nonexistent/file", nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHashFileRejectsSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.txt")
	require.NoError(t, os.WriteFile(target, []byte("data"), 0o644))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(target, link))

	_, _, err := HashFile(context.Background(), link, nil)
	assert.Error(t, err)
}

func TestHashFileRejectsFIFO(t *testing.T) {
	fifo := filepath.Join(t.TempDir(), "pipe")
	require.NoError(t, unix.Mkfifo(fifo, 0o644))

	_, _, err := HashFile(context.Background(), fifo, nil)
	assert.Error(t, err)
}

func TestHashFileCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 64*1024), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := HashFile(ctx, path, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
