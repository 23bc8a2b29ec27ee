package catalogue

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bamsammich/fstk/internal/entry"
)

// Structural violations. Any of these ends the read: the file is corrupt or
// was not produced by a Catalogue.
var (
	ErrNoBase          = errors.New("catalogue root appears before any base")
	ErrRootEscapesBase = errors.New("catalogue root is not under the base")
	ErrDuplicateBase   = errors.New("catalogue has more than one base")
	ErrNoRoot          = errors.New("catalogue entry appears before any root")
)

// syncEvery is the checkpoint interval in entry indices.
const syncEvery = 1000

// Consumer receives catalogue entries from a Reader. Hooks are called
// synchronously in catalogue order and must not call back into the Reader.
// A hook error ends the read.
type Consumer interface {
	// OnBase is called with the catalogue base.
	OnBase(path string, index int64) error
	// OnRoot is called whenever the current root changes.
	OnRoot(path string, index int64) error
	// OnFile is called with the full path of every entry that passed
	// MatchFile.
	OnFile(path string, kind entry.Kind, index int64) error
	// OnSync is called at every checkpoint, before the position is saved.
	OnSync(index int64) error
	// MatchFile filters entries by their bare name.
	MatchFile(name string, kind entry.Kind, index int64) bool
}

// NopConsumer implements every Consumer hook as a no-op that accepts all
// entries. Embed it to override a subset of hooks.
type NopConsumer struct{}

func (NopConsumer) OnBase(string, int64) error               { return nil }
func (NopConsumer) OnRoot(string, int64) error               { return nil }
func (NopConsumer) OnFile(string, entry.Kind, int64) error   { return nil }
func (NopConsumer) OnSync(int64) error                       { return nil }
func (NopConsumer) MatchFile(string, entry.Kind, int64) bool { return true }

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	Logger *slog.Logger
	// PositionPath is where checkpoints are persisted. Empty disables
	// checkpointing and resume.
	PositionPath string
}

// ReadOptions controls a single read.
type ReadOptions struct {
	// Range restricts dispatched entries. It takes precedence over Resume.
	Range *Range
	// Resume starts from the last saved checkpoint when Range is nil.
	Resume bool
}

// Reader streams a catalogue file into a Consumer.
type Reader struct {
	consumer     Consumer
	log          *slog.Logger
	positionPath string
	base         string
	root         string
	last         int64
}

// NewReader creates a reader dispatching to c.
func NewReader(c Consumer, opts ReaderOptions) *Reader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reader{
		consumer:     c,
		log:          logger,
		positionPath: opts.PositionPath,
	}
}

// Base returns the base seen by the current or last read.
func (r *Reader) Base() string { return r.base }

// Root returns the current root.
func (r *Reader) Root() string { return r.root }

// Last returns the index of the last well-formed line read.
func (r *Reader) Last() int64 { return r.last }

// LastPosition returns the persisted checkpoint, if any.
func (r *Reader) LastPosition() (int64, bool) {
	return LoadPosition(r.positionPath)
}

// Read opens the catalogue at path and streams it into the consumer.
func (r *Reader) Read(ctx context.Context, path string, opts ReadOptions) error {
	r.log.Info("opening catalogue", "path", entry.Printable(path))
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open catalogue: %w", err)
	}
	defer f.Close()
	return r.ReadFrom(ctx, f, opts)
}

// readState is the per-read state machine.
type readState struct {
	rng        *Range
	lineNum    int
	lastSynced int64
	haveBase   bool
	haveRoot   bool
}

// ReadFrom streams catalogue records from src into the consumer.
func (r *Reader) ReadFrom(ctx context.Context, src io.Reader, opts ReadOptions) error {
	r.base, r.root, r.last = "", "", 0

	st := &readState{rng: opts.Range, lastSynced: -1}
	if st.rng == nil && opts.Resume {
		if i, ok := r.LastPosition(); ok && i > 0 {
			st.rng = From(i)
			r.log.Info("resuming catalogue", "from", i)
		}
	}

	br := bufio.NewReaderSize(src, 64*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, readErr := br.ReadString('\n')
		if len(line) > 0 {
			st.lineNum++
			stop, err := r.processLine(st, strings.TrimSuffix(line, LineSeparator))
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read catalogue: %w", readErr)
		}
	}
}

//nolint:gocyclo // one branch per record kind plus range and sync handling
func (r *Reader) processLine(st *readState, line string) (bool, error) {
	fields := strings.SplitN(line, FieldSeparator, 3)
	if len(fields) != 3 {
		r.log.Warn("malformed catalogue line, expecting 3 separated fields",
			"line", st.lineNum, "content", entry.Printable(line))
		return false, nil
	}
	i, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || i < 0 {
		r.log.Warn("malformed catalogue line, bad index",
			"line", st.lineNum, "index", entry.Printable(fields[0]))
		return false, nil
	}
	kind, ok := entry.ParseKind(fields[1])
	if !ok {
		r.log.Warn("malformed catalogue line, unknown kind",
			"line", st.lineNum, "kind", entry.Printable(fields[1]))
		return false, nil
	}
	payload := fields[2]
	r.last = i

	switch kind {
	case entry.Base:
		if st.haveBase {
			return false, fmt.Errorf("line %d: %w", st.lineNum, ErrDuplicateBase)
		}
		st.haveBase = true
		r.base = payload
		if err := r.consumer.OnBase(payload, i); err != nil {
			return false, err
		}

	case entry.Root:
		if !st.haveBase {
			return false, fmt.Errorf("line %d: %w", st.lineNum, ErrNoBase)
		}
		if !isUnder(r.base, payload) {
			return false, fmt.Errorf("line %d: base=%s root=%s: %w",
				st.lineNum, entry.Printable(r.base), entry.Printable(payload), ErrRootEscapesBase)
		}
		st.haveRoot = true
		r.root = payload
		if err := r.consumer.OnRoot(payload, i); err != nil {
			return false, err
		}

	default:
		if !st.haveRoot {
			return false, fmt.Errorf("line %d: %w", st.lineNum, ErrNoRoot)
		}
		if st.rng != nil {
			if i < st.rng.Start {
				return false, nil
			}
			if st.rng.End >= 0 && i > st.rng.End {
				r.log.Info("reached end of range", "index", i, "end", st.rng.End)
				return true, nil
			}
		}
		if r.consumer.MatchFile(payload, kind, i) {
			if err := r.consumer.OnFile(filepath.Join(r.root, payload), kind, i); err != nil {
				return false, err
			}
		}
	}

	if i > 0 && i%syncEvery == 0 && i != st.lastSynced && (st.rng == nil || i >= st.rng.Start) {
		st.lastSynced = i
		r.log.Info("items processed, syncing", "index", i)
		if err := r.consumer.OnSync(i); err != nil {
			return false, err
		}
		if err := SavePosition(r.positionPath, i); err != nil {
			return false, err
		}
	}
	return false, nil
}
