package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/fstk/internal/catalogue"
	"github.com/bamsammich/fstk/internal/event"
	"github.com/bamsammich/fstk/internal/filter"
)

func createTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("same"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("other"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "c.txt"), []byte("same"), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, "a.txt"), old, old))
	return root
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd.Execute()
}

func inode(t *testing.T, path string) uint64 {
	t.Helper()
	info, err := os.Lstat(path)
	require.NoError(t, err)
	st, ok := info.Sys().(*syscall.Stat_t)
	require.True(t, ok)
	return uint64(st.Ino) //nolint:unconvert // Ino width differs per platform
}

func TestCatListDedup(t *testing.T) {
	root := createTree(t)
	cat := filepath.Join(t.TempDir(), "tree.cat")
	store := t.TempDir()

	require.NoError(t, execute(t, "-q", "cat", "-o", cat, root))

	var out bytes.Buffer
	require.NoError(t, listCatalogue(context.Background(), &out, cat, nil, "", catalogue.ReadOptions{}))
	want := "0\tF\t" + filepath.Join(root, "a.txt") + "\n" +
		"1\tF\t" + filepath.Join(root, "b.txt") + "\n" +
		"2\tD\t" + filepath.Join(root, "sub") + "\n" +
		"3\tF\t" + filepath.Join(root, "sub", "c.txt") + "\n"
	assert.Equal(t, want, out.String())

	b := inode(t, filepath.Join(root, "b.txt"))
	require.NoError(t, execute(t, "-q", "dedup", "--store", store, cat))
	assert.Equal(t, inode(t, filepath.Join(root, "a.txt")), inode(t, filepath.Join(root, "sub", "c.txt")))
	assert.NotEqual(t, inode(t, filepath.Join(root, "a.txt")), inode(t, filepath.Join(root, "b.txt")))
	assert.Equal(t, b, inode(t, filepath.Join(root, "b.txt")))

	info, err := os.Stat(filepath.Join(root, "sub", "c.txt"))
	require.NoError(t, err)
	aInfo, err := os.Stat(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(aInfo.ModTime()))
}

func TestDedupDryRunLeavesFiles(t *testing.T) {
	root := createTree(t)
	cat := filepath.Join(t.TempDir(), "tree.cat")

	require.NoError(t, execute(t, "-q", "cat", "-o", cat, root))
	require.NoError(t, execute(t, "-q", "dedup", "--dry-run", "--store", t.TempDir(), cat))
	assert.NotEqual(t, inode(t, filepath.Join(root, "a.txt")), inode(t, filepath.Join(root, "sub", "c.txt")))
}

func TestListFiltered(t *testing.T) {
	root := createTree(t)
	cat := filepath.Join(t.TempDir(), "tree.cat")
	require.NoError(t, execute(t, "-q", "cat", "-o", cat, root))

	f := filter.New()
	require.NoError(t, f.AddKinds("dir"))

	var out bytes.Buffer
	require.NoError(t, listCatalogue(context.Background(), &out, cat, f, "", catalogue.ReadOptions{}))
	assert.Equal(t, "2\tD\t"+filepath.Join(root, "sub")+"\n", out.String())
}

func TestListResumeRequiresPosition(t *testing.T) {
	err := execute(t, "list", "--resume", "whatever.cat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--position")
}

func TestDedupInvalidHashRate(t *testing.T) {
	err := execute(t, "-q", "dedup", "--hash-rate", "fast", "whatever.cat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--hash-rate")
}

func TestDedupMissingCatalogueIsFatal(t *testing.T) {
	err := execute(t, "-q", "dedup", "--store", t.TempDir(), filepath.Join(t.TempDir(), "missing.cat"))
	var exitErr *exitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.code)
}

func TestDedupUnusableStoreWithLog(t *testing.T) {
	root := createTree(t)
	cat := filepath.Join(t.TempDir(), "tree.cat")
	require.NoError(t, execute(t, "-q", "cat", "-o", cat, root))

	store := filepath.Join(t.TempDir(), "store")
	require.NoError(t, os.WriteFile(store, nil, 0o644))
	logPath := filepath.Join(t.TempDir(), "run.log")

	err := execute(t, "-q", "--log", logPath, "dedup", "--store", store, cat)
	require.Error(t, err)
	assert.FileExists(t, logPath)
}

func TestLogEventsForwardsAndCloses(t *testing.T) {
	in := make(chan event.Event, 2)
	out := logEvents(in)

	in <- event.Event{Type: event.FileHashed, Path: "/data/a.txt"}
	in <- event.Event{Type: event.LinkCreated, Path: "/data/sub/c.txt"}
	close(in)

	var got []event.Type
	for ev := range out {
		got = append(got, ev.Type)
	}
	assert.Equal(t, []event.Type{event.FileHashed, event.LinkCreated}, got)
}
