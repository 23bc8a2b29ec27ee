package catalogue

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio"

	"github.com/bamsammich/fstk/internal/entry"
	"github.com/bamsammich/fstk/internal/filter"
)

// Record separators. The field separator is ASCII 31 (unit separator) so
// that it never collides with characters found in paths.
const (
	FieldSeparator = "\x1f"
	LineSeparator  = "\n"
)

// Options configures a Catalogue.
type Options struct {
	Filter *filter.Filter
	Logger *slog.Logger
	// Base overrides the common ancestor computed from the paths.
	Base string
}

// Catalogue walks a set of paths and produces the flat, indexed entry
// stream that the Reader consumes.
type Catalogue struct {
	filter *filter.Filter
	log    *slog.Logger
	base   string
	paths  []string
}

// New creates a catalogue for the given paths. Paths are made absolute and
// must all live under the base.
func New(paths []string, opts Options) (*Catalogue, error) {
	if len(paths) == 0 {
		return nil, errors.New("catalogue: no paths given")
	}

	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("catalogue: absolute path for %s: %w", p, err)
		}
		abs = append(abs, a)
	}

	base := opts.Base
	if base == "" {
		base = commonAncestor(abs)
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("catalogue: absolute base: %w", err)
	}
	if info, err := os.Stat(base); err != nil || !info.IsDir() {
		base = filepath.Dir(base)
	}
	if !recordable(base) {
		return nil, fmt.Errorf("catalogue: base %s contains a newline", entry.Printable(base))
	}

	for _, p := range abs {
		if !isUnder(base, p) {
			return nil, fmt.Errorf("catalogue: path %s is not under base %s", p, base)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Catalogue{
		filter: opts.Filter,
		log:    logger,
		base:   base,
		paths:  abs,
	}, nil
}

// Base returns the common ancestor directory of every catalogued path.
func (c *Catalogue) Base() string {
	return c.base
}

// Paths returns the absolute requested paths.
func (c *Catalogue) Paths() []string {
	return c.paths
}

// Walk returns the entry sequence. The walk happens lazily while the
// sequence is ranged over; every range performs a fresh walk. A non-nil
// error is always the last value yielded.
func (c *Catalogue) Walk(ctx context.Context) iter.Seq2[entry.Entry, error] {
	return func(yield func(entry.Entry, error) bool) {
		w := &walker{cat: c, ctx: ctx, yield: yield}
		w.run()
	}
}

// Write serializes the catalogue to out, walking the filesystem as it goes.
func (c *Catalogue) Write(ctx context.Context, out io.Writer) error {
	bw := bufio.NewWriterSize(out, 64*1024)
	buf := make([]byte, 0, 512)
	for e, err := range c.Walk(ctx) {
		if err != nil {
			return err
		}
		buf = AppendRecord(buf[:0], e)
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("write catalogue: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write catalogue: %w", err)
	}
	return nil
}

// Save writes the catalogue to path, creating the parent directory when
// missing. The file is replaced atomically once the walk has completed.
func (c *Catalogue) Save(ctx context.Context, path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		c.log.Info("creating catalogue directory", "dir", entry.Printable(dir))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create catalogue dir: %w", err)
		}
	}

	t, err := renameio.TempFile("", path)
	if err != nil {
		return fmt.Errorf("create catalogue %s: %w", path, err)
	}
	defer t.Cleanup() //nolint:errcheck // no-op once the file has been replaced

	if err := c.Write(ctx, t); err != nil {
		return err
	}
	if err := t.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod catalogue: %w", err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("save catalogue %s: %w", path, err)
	}
	return nil
}

// AppendRecord appends the serialized form of e to buf.
func AppendRecord(buf []byte, e entry.Entry) []byte {
	buf = strconv.AppendInt(buf, e.Index, 10)
	buf = append(buf, FieldSeparator...)
	buf = append(buf, byte(e.Kind))
	buf = append(buf, FieldSeparator...)
	buf = append(buf, e.Payload...)
	return append(buf, LineSeparator...)
}

// walker carries the traversal state of a single Walk: the index cursor and
// whether the consumer has stopped the sequence.
type walker struct {
	cat     *Catalogue
	ctx     context.Context
	yield   func(entry.Entry, error) bool
	next    int64
	stopped bool
}

func (w *walker) emit(kind entry.Kind, payload string) bool {
	if w.stopped {
		return false
	}
	if !w.yield(entry.Entry{Index: w.next, Kind: kind, Payload: payload}, nil) {
		w.stopped = true
	}
	return !w.stopped
}

func (w *walker) fail(err error) {
	if !w.stopped {
		w.stopped = true
		w.yield(entry.Entry{}, err)
	}
}

func (w *walker) match(path string, kind entry.Kind) bool {
	return w.cat.filter.Match(path, kind)
}

func (w *walker) run() {
	if !w.emit(entry.Base, w.cat.base) {
		return
	}

	for _, p := range w.cat.paths {
		if err := w.ctx.Err(); err != nil {
			w.fail(err)
			return
		}

		if !recordable(p) {
			w.cat.log.Warn("skipping path containing a newline", "path", entry.Printable(p))
			continue
		}

		info, err := os.Lstat(p)
		if err != nil {
			w.fail(fmt.Errorf("lstat %s: %w", p, err))
			return
		}
		mode := info.Mode()

		switch {
		case isSpecial(mode):
			w.cat.log.Info("skipping special file", "path", entry.Printable(p), "type", specialName(mode))
		case mode.IsRegular() && w.match(p, entry.File):
			if !w.emitSingle(p, entry.File) {
				return
			}
		case mode&os.ModeSymlink != 0 && w.match(p, entry.Symlink):
			if !w.emitSingle(p, entry.Symlink) {
				return
			}
		case mode.IsDir() && w.match(p, entry.Directory):
			if !w.walkDir(p) {
				return
			}
		default:
			w.cat.log.Info("filtered out path", "path", entry.Printable(p))
		}
	}
}

// emitSingle emits a requested file or symlink under its parent directory.
func (w *walker) emitSingle(p string, kind entry.Kind) bool {
	if !w.emit(entry.Root, filepath.Dir(p)) {
		return false
	}
	if !w.emit(kind, filepath.Base(p)) {
		return false
	}
	w.next++
	return true
}

// walkDir emits dir as a root, then its matching files and symlinks, then
// its matching subdirectories, then descends into every subdirectory.
func (w *walker) walkDir(dir string) bool {
	if err := w.ctx.Err(); err != nil {
		w.fail(err)
		return false
	}

	children, err := os.ReadDir(dir)
	if err != nil {
		w.cat.log.Warn("skipping unreadable directory", "dir", entry.Printable(dir), "error", err)
		return true
	}

	var files, dirs []os.DirEntry
	for _, d := range children {
		switch t := d.Type(); {
		case !recordable(d.Name()):
			w.cat.log.Warn("skipping name containing a newline",
				"path", entry.Printable(filepath.Join(dir, d.Name())))
		case t.IsDir():
			dirs = append(dirs, d)
		case isSpecial(t):
			w.cat.log.Info("skipping special file",
				"path", entry.Printable(filepath.Join(dir, d.Name())), "type", specialName(t))
		default:
			files = append(files, d)
		}
	}

	w.cat.log.Debug("catalogue root",
		"index", w.next, "files", len(files), "dirs", len(dirs), "root", entry.Printable(dir))

	if !w.emit(entry.Root, dir) {
		return false
	}

	for _, d := range files {
		kind := entry.File
		if d.Type()&os.ModeSymlink != 0 {
			kind = entry.Symlink
		}
		if w.match(filepath.Join(dir, d.Name()), kind) {
			if !w.emit(kind, d.Name()) {
				return false
			}
			w.next++
		}
	}

	for _, d := range dirs {
		if w.match(filepath.Join(dir, d.Name()), entry.Directory) {
			if !w.emit(entry.Directory, d.Name()) {
				return false
			}
			w.next++
		}
	}

	for _, d := range dirs {
		if !w.walkDir(filepath.Join(dir, d.Name())) {
			return false
		}
	}
	return true
}

// recordable reports whether s can be stored in a single catalogue line.
func recordable(s string) bool {
	return !strings.Contains(s, LineSeparator)
}

func isSpecial(mode os.FileMode) bool {
	return mode&(os.ModeDevice|os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0
}

func specialName(mode os.FileMode) string {
	switch {
	case mode&os.ModeCharDevice != 0:
		return "char device"
	case mode&os.ModeDevice != 0:
		return "block device"
	case mode&os.ModeNamedPipe != 0:
		return "fifo"
	case mode&os.ModeSocket != 0:
		return "socket"
	default:
		return "unknown"
	}
}

// commonAncestor returns the longest common leading run of path components
// shared by all of paths. Paths must be absolute and clean.
func commonAncestor(paths []string) string {
	sep := string(filepath.Separator)
	common := strings.Split(paths[0], sep)
	for _, p := range paths[1:] {
		parts := strings.Split(p, sep)
		n := 0
		for n < len(common) && n < len(parts) && common[n] == parts[n] {
			n++
		}
		common = common[:n]
	}
	joined := strings.Join(common, sep)
	if joined == "" {
		return sep
	}
	return joined
}

// isUnder reports whether p equals base or lies inside it, comparing whole
// path components after cleaning.
func isUnder(base, p string) bool {
	base = filepath.Clean(base)
	p = filepath.Clean(p)
	if base == p || base == string(filepath.Separator) {
		return true
	}
	return strings.HasPrefix(p, base+string(filepath.Separator))
}
