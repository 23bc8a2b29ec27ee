package filter

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bamsammich/fstk/internal/entry"
)

// Filter decides which (path, kind) pairs are included in a catalogue.
//
// A configured kind list restricts entries to those kinds. A configured name
// list restricts entries to base names matching at least one glob. With both
// lists empty every entry matches.
//
// Exclusion globs are parsed and kept but never consulted by Match. Their
// intended precedence relative to the include lists was never settled, so
// they stay inert.
type Filter struct {
	kinds    []entry.Kind
	names    []*compiledPattern
	excludes []*compiledPattern
}

// New creates an empty filter that matches everything.
func New() *Filter {
	return &Filter{}
}

// AddKind adds a kind to the kind allow-list.
func (f *Filter) AddKind(k entry.Kind) {
	if !slices.Contains(f.kinds, k) {
		f.kinds = append(f.kinds, k)
	}
}

// AddKinds parses a comma-separated kind list such as "file,symlink". Only
// the first letter of each item counts, case-insensitively, so "f", "File"
// and "files" are equivalent.
func (f *Filter) AddKinds(list string) error {
	for item := range strings.SplitSeq(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		k := entry.Kind(strings.ToUpper(item[:1])[0])
		switch k {
		case entry.Directory, entry.File, entry.Symlink:
			f.AddKind(k)
		default:
			return fmt.Errorf("unknown entry kind %q", item)
		}
	}
	return nil
}

// AddName adds a glob to the name allow-list.
func (f *Filter) AddName(glob string) error {
	cp, err := compilePattern(glob)
	if err != nil {
		return err
	}
	f.names = append(f.names, cp)
	return nil
}

// AddExclude records a name exclusion glob. See the Filter doc: exclusions
// do not affect matching.
func (f *Filter) AddExclude(glob string) error {
	cp, err := compilePattern(glob)
	if err != nil {
		return err
	}
	f.excludes = append(f.excludes, cp)
	return nil
}

// Empty reports whether the filter has no kind and no name constraints.
func (f *Filter) Empty() bool {
	return f == nil || (len(f.kinds) == 0 && len(f.names) == 0)
}

// Excludes returns the recorded exclusion globs.
func (f *Filter) Excludes() []string {
	out := make([]string, 0, len(f.excludes))
	for _, cp := range f.excludes {
		out = append(out, cp.original)
	}
	return out
}

// Match reports whether the entry at path with the given kind is included.
// A nil filter matches everything.
func (f *Filter) Match(path string, kind entry.Kind) bool {
	if f == nil {
		return true
	}
	if len(f.kinds) > 0 && !slices.Contains(f.kinds, kind) {
		return false
	}
	if len(f.names) == 0 {
		return true
	}
	name := filepath.Base(path)
	for _, cp := range f.names {
		if cp.match(name) {
			return true
		}
	}
	return false
}

// MatchPath is Match with the kind probed from the filesystem.
func (f *Filter) MatchPath(path string) bool {
	return f.Match(path, KindOf(path))
}

// KindOf probes the filesystem: a symlink is Symlink, a directory is
// Directory and anything else, including a missing path, is File.
func KindOf(path string) entry.Kind {
	info, err := os.Lstat(path)
	if err != nil {
		return entry.File
	}
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return entry.Symlink
	case info.IsDir():
		return entry.Directory
	default:
		return entry.File
	}
}
