package filter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/fstk/internal/entry"
)

func TestEmptyFilterIncludesAll(t *testing.T) {
	f := New()
	assert.True(t, f.Empty())
	assert.True(t, f.Match("/any/file.txt", entry.File))
	assert.True(t, f.Match("/any/dir", entry.Directory))
	assert.True(t, f.Match("/any/link", entry.Symlink))
}

func TestNilFilterIncludesAll(t *testing.T) {
	var f *Filter
	assert.True(t, f.Empty())
	assert.True(t, f.Match("/any/file.txt", entry.File))
}

func TestKindAllowList(t *testing.T) {
	f := New()
	require.NoError(t, f.AddKinds("file, symlink"))

	assert.True(t, f.Match("/a/b.txt", entry.File))
	assert.True(t, f.Match("/a/link", entry.Symlink))
	assert.False(t, f.Match("/a/dir", entry.Directory))
}

func TestKindFirstLetterOnly(t *testing.T) {
	f := New()
	require.NoError(t, f.AddKinds("Directories"))
	assert.True(t, f.Match("/a", entry.Directory))
	assert.False(t, f.Match("/a", entry.File))
}

func TestKindUnknown(t *testing.T) {
	f := New()
	assert.Error(t, f.AddKinds("xyz"))
	assert.Error(t, f.AddKinds("base"))
}

func TestNameAllowList(t *testing.T) {
	f := New()
	require.NoError(t, f.AddName("*.txt"))
	require.NoError(t, f.AddName("*.md"))

	assert.True(t, f.Match("/data/a.txt", entry.File))
	assert.True(t, f.Match("/data/README.md", entry.File))
	assert.False(t, f.Match("/data/a.bin", entry.File))
	// Only the base name is matched.
	assert.False(t, f.Match("/data.txt/a.bin", entry.File))
}

func TestKindAndName(t *testing.T) {
	f := New()
	f.AddKind(entry.File)
	require.NoError(t, f.AddName("*.txt"))

	assert.True(t, f.Match("/d/a.txt", entry.File))
	assert.False(t, f.Match("/d/a.txt", entry.Symlink))
	assert.False(t, f.Match("/d/a.log", entry.File))
}

func TestExcludeIsInert(t *testing.T) {
	f := New()
	require.NoError(t, f.AddExclude("*.tmp"))

	assert.True(t, f.Empty())
	assert.True(t, f.Match("/d/scratch.tmp", entry.File))
	assert.Equal(t, []string{"*.tmp"}, f.Excludes())
}

func TestMatchIsPure(t *testing.T) {
	f := New()
	f.AddKind(entry.File)
	require.NoError(t, f.AddName("a*"))

	inputs := []struct {
		path string
		kind entry.Kind
	}{
		{"/x/abc", entry.File},
		{"/x/abc", entry.Directory},
		{"/x/bcd", entry.File},
	}
	for _, in := range inputs {
		first := f.Match(in.path, in.kind)
		for range 10 {
			assert.Equal(t, first, f.Match(in.path, in.kind))
		}
	}
}

func TestKindOf(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(file, link))
	dirLink := filepath.Join(dir, "dirlink")
	require.NoError(t, os.Symlink(dir, dirLink))

	assert.Equal(t, entry.File, KindOf(file))
	assert.Equal(t, entry.Directory, KindOf(dir))
	assert.Equal(t, entry.Symlink, KindOf(link))
	assert.Equal(t, entry.Symlink, KindOf(dirLink))
	assert.Equal(t, entry.File, KindOf(filepath.Join(dir, "missing")))
}

func TestMatchPathProbesKind(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	f := New()
	f.AddKind(entry.Directory)
	assert.True(t, f.MatchPath(dir))
	assert.False(t, f.MatchPath(file))
}
