package filter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/fstk/internal/entry"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	filterFile := filepath.Join(dir, "filter.rules")

	content := `# This is a comment
+ *.jpg
- *.tmp

type: file,symlink
*.png
`
	require.NoError(t, os.WriteFile(filterFile, []byte(content), 0o644))

	f := New()
	require.NoError(t, f.LoadFile(filterFile))

	assert.Len(t, f.names, 2)
	assert.Len(t, f.excludes, 1)
	assert.Equal(t, []entry.Kind{entry.File, entry.Symlink}, f.kinds)

	assert.True(t, f.Match("/p/a.jpg", entry.File))
	assert.True(t, f.Match("/p/a.png", entry.Symlink))
	assert.False(t, f.Match("/p/a.jpg", entry.Directory))
	assert.False(t, f.Match("/p/a.tmp", entry.File))
}

func TestLoadFileEmpty(t *testing.T) {
	dir := t.TempDir()
	filterFile := filepath.Join(dir, "empty.rules")
	require.NoError(t, os.WriteFile(filterFile, []byte("# only comments\n\n"), 0o644))

	f := New()
	require.NoError(t, f.LoadFile(filterFile))
	assert.True(t, f.Empty())
}

func TestLoadFileNotExists(t *testing.T) {
	f := New()
	assert.Error(t, f.LoadFile("/nonexistent/path"))
}

func TestLoadFileBadKind(t *testing.T) {
	dir := t.TempDir()
	filterFile := filepath.Join(dir, "bad.rules")
	require.NoError(t, os.WriteFile(filterFile, []byte("type: widget\n"), 0o644))

	f := New()
	err := f.LoadFile(filterFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}
