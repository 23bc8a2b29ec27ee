package dedup

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/time/rate"

	"github.com/bamsammich/fstk/internal/bucket"
	"github.com/bamsammich/fstk/internal/catalogue"
	"github.com/bamsammich/fstk/internal/entry"
	"github.com/bamsammich/fstk/internal/event"
	"github.com/bamsammich/fstk/internal/filter"
	"github.com/bamsammich/fstk/internal/stats"
)

const (
	storePrefix  = "fstk-dedup-"
	positionFile = "last.pos"
	idLen        = 32
)

// Config describes a dedup run over one catalogue.
type Config struct {
	// CataloguePath is the catalogue to scan. Its absolute path names the
	// bucket store, so repeated runs over the same catalogue share state.
	CataloguePath string
	// StoreRoot is the directory holding bucket stores. Defaults to the
	// working directory.
	StoreRoot string
	// Workers is the number of concurrent hashers. Values below 2 hash
	// sequentially.
	Workers int
	// HashRate caps aggregate hashing reads in bytes per second. Zero means
	// unlimited.
	HashRate int64
	// SafeLink links to a temporary name and renames it over the target
	// instead of unlinking the target first.
	SafeLink bool
	// DryRun reports link plans without touching the filesystem.
	DryRun bool
	// Filter, when set, restricts which catalogue entries are hashed.
	Filter *filter.Filter
	Logger *slog.Logger
	Events chan<- event.Event
	Stats  stats.Writer
}

// RunOptions controls a single Run.
type RunOptions struct {
	// Resume continues the scan from the last checkpoint.
	Resume bool
	// SkipScan goes straight to linking the buckets already in the store.
	SkipScan bool
}

// Engine hashes catalogued files into a bucket store and hard-links
// duplicates.
type Engine struct {
	cfg     Config
	id      string
	dir     string
	store   *bucket.Store
	log     *slog.Logger
	stats   stats.Writer
	limiter *rate.Limiter
	tmps    tmpRegistry
}

// New prepares an engine and creates its bucket store.
func New(cfg Config) (*Engine, error) {
	if cfg.CataloguePath == "" {
		return nil, errors.New("dedup: catalogue path is required")
	}
	abs, err := filepath.Abs(cfg.CataloguePath)
	if err != nil {
		return nil, fmt.Errorf("resolve catalogue path: %w", err)
	}
	cfg.CataloguePath = abs

	root := cfg.StoreRoot
	if root == "" {
		root = "."
	}
	if root, err = filepath.Abs(root); err != nil {
		return nil, fmt.Errorf("resolve store root: %w", err)
	}
	cfg.StoreRoot = root

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	collector := cfg.Stats
	if collector == nil {
		collector = stats.Discard
	}

	id := StoreID(abs)
	dir := filepath.Join(root, storePrefix+id)
	store, err := bucket.Open(dir)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:     cfg,
		id:      id,
		dir:     dir,
		store:   store,
		log:     logger.With("store", id),
		stats:   collector,
		limiter: NewHashLimiter(cfg.HashRate),
	}, nil
}

// StoreID derives the bucket store name for a catalogue path.
func StoreID(cataloguePath string) string {
	sum := blake3.Sum256([]byte(cataloguePath))
	return hex.EncodeToString(sum[:])[:idLen]
}

// ID returns the store identifier.
func (e *Engine) ID() string { return e.id }

// Dir returns the bucket store directory.
func (e *Engine) Dir() string { return e.dir }

// PositionPath returns the scan checkpoint file.
func (e *Engine) PositionPath() string {
	return filepath.Join(e.dir, positionFile)
}

// Run scans the catalogue into the bucket store, unless SkipScan is set,
// then links duplicates in every bucket.
func (e *Engine) Run(ctx context.Context, opts RunOptions) error {
	defer e.tmps.cleanup()

	if !opts.SkipScan {
		if err := e.Scan(ctx, opts.Resume); err != nil {
			return err
		}
	}
	err := e.Link(ctx)
	e.emit(ctx, event.Event{Type: event.DedupComplete, Error: err})
	return err
}

// Scan reads the catalogue, hashing every file entry into its bucket.
func (e *Engine) Scan(ctx context.Context, resume bool) error {
	e.log.Info("scanning catalogue", "catalogue", e.cfg.CataloguePath, "workers", max(e.cfg.Workers, 1))
	e.emit(ctx, event.Event{Type: event.ScanStarted, Path: e.cfg.CataloguePath})

	s := &scanner{engine: e, ctx: ctx}
	if e.cfg.Workers > 1 {
		s.pool = newHashPool(ctx, e.cfg.Workers, e.hashOne)
	}

	reader := catalogue.NewReader(s, catalogue.ReaderOptions{
		Logger:       e.log,
		PositionPath: e.PositionPath(),
	})
	err := reader.Read(ctx, e.cfg.CataloguePath, catalogue.ReadOptions{Resume: resume})
	if s.pool != nil {
		if poolErr := s.pool.close(); err == nil {
			err = poolErr
		}
	}
	if err == nil {
		err = ctx.Err()
	}

	e.emit(ctx, event.Event{Type: event.ScanComplete, Index: reader.Last(), Error: err})
	if err != nil {
		return fmt.Errorf("scan %s: %w", e.cfg.CataloguePath, err)
	}
	return nil
}

// Link processes every bucket holding more than one path. Per-path failures
// are reported and counted without stopping the pass; the returned error
// summarizes them.
func (e *Engine) Link(ctx context.Context) error {
	lists, err := e.store.Lists(ctx)
	if err != nil {
		return err
	}
	e.log.Info("linking duplicates", "buckets", len(lists), "dry_run", e.cfg.DryRun, "safe_link", e.cfg.SafeLink)

	var (
		firstErr error
		errCount int
	)
	record := func(err error) {
		errCount++
		if firstErr == nil {
			firstErr = err
		}
	}

	for _, list := range lists {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.stats.AddBucketsSeen(1)

		paths, err := bucket.ReadList(list)
		if err != nil {
			e.log.Error("cannot read bucket", "bucket", list, "error", err)
			record(err)
			continue
		}
		if len(paths) <= 1 {
			continue
		}
		digest, err := e.store.Digest(list)
		if err != nil {
			e.log.Error("cannot read bucket", "bucket", list, "error", err)
			record(err)
			continue
		}
		e.linkBucket(ctx, digest, paths, record)
	}

	if errCount > 1 {
		firstErr = fmt.Errorf("%w (and %d more errors)", firstErr, errCount-1)
	}
	return firstErr
}

func (e *Engine) linkBucket(ctx context.Context, digest string, paths []string, record func(error)) {
	plan := SelectCanonical(paths)
	if plan.Empty() {
		return
	}
	// A stale source makes every target unsafe to replace.
	srcErr := e.verify(ctx, plan.Source, digest)
	if ctx.Err() != nil {
		return
	}

	e.stats.AddBucketsDuplicate(1)
	e.log.Info("dedup",
		"first", printable(plan.First),
		"source", printable(plan.Source),
		"targets", len(plan.Targets),
		"others", plan.Others(),
	)
	e.emit(ctx, event.Event{
		Type:    event.BucketPlanned,
		Path:    plan.First,
		Source:  plan.Source,
		Digest:  digest,
		Targets: len(plan.Targets),
		Others:  plan.Others(),
	})

	for _, target := range plan.Targets {
		err := srcErr
		if err == nil {
			err = e.verify(ctx, target, digest)
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			e.log.Warn("skipping stale target", "target", printable(target), "source", printable(plan.Source), "error", err)
			e.stats.AddLinksSkipped(1)
			e.emit(ctx, event.Event{Type: event.LinkSkipped, Path: target, Source: plan.Source, Digest: digest, Error: err})
			continue
		}

		if e.cfg.DryRun {
			e.stats.AddLinksSkipped(1)
			e.emit(ctx, event.Event{Type: event.LinkSkipped, Path: target, Source: plan.Source, Digest: digest, Error: ErrDryRun})
			continue
		}

		res, err := e.relink(plan.Source, &plan.source, target, e.cfg.SafeLink)
		switch {
		case errors.Is(err, ErrCrossDevice):
			e.log.Warn("skipping cross-device target", "target", printable(target), "source", printable(plan.Source))
			e.stats.AddLinksSkipped(1)
			e.emit(ctx, event.Event{Type: event.LinkSkipped, Path: target, Source: plan.Source, Digest: digest, Error: err})
		case err != nil:
			e.log.Error("link failed", "target", printable(target), "source", printable(plan.Source), "error", err)
			e.stats.AddLinksFailed(1)
			e.emit(ctx, event.Event{Type: event.LinkFailed, Path: target, Source: plan.Source, Digest: digest, Error: err})
			record(err)
		default:
			e.log.Debug("linked", "target", printable(target), "source", printable(plan.Source))
			e.stats.AddLinksCreated(1)
			e.stats.AddBytesReclaimed(res.reclaimed)
			e.emit(ctx, event.Event{Type: event.LinkCreated, Path: target, Source: plan.Source, Digest: digest, Size: res.reclaimed})
		}
	}
}

// hashOne hashes a single file into its bucket. Unreadable files are
// reported and skipped; only store failures are returned.
func (e *Engine) hashOne(ctx context.Context, job hashJob, worker int) error {
	digest, n, err := HashFile(ctx, job.path, e.limiter)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		e.log.Warn("cannot hash file, skipping", "path", printable(job.path), "error", err)
		e.stats.AddHashFailed(1)
		e.emit(ctx, event.Event{Type: event.HashFailed, Path: job.path, Index: job.index, Error: err, WorkerID: worker})
		return nil
	}
	if err := e.store.Append(digest, job.path); err != nil {
		return err
	}
	e.stats.AddFilesHashed(1)
	e.stats.AddBytesHashed(n)
	e.emit(ctx, event.Event{
		Type:     event.FileHashed,
		Path:     job.path,
		Digest:   digest,
		Size:     n,
		Index:    job.index,
		WorkerID: worker,
	})
	return nil
}

func (e *Engine) emit(ctx context.Context, ev event.Event) {
	if e.cfg.Events == nil {
		return
	}
	ev.Timestamp = time.Now()
	select {
	case e.cfg.Events <- ev:
	case <-ctx.Done():
	}
}

func printable(p string) string {
	return entry.Printable(p)
}
