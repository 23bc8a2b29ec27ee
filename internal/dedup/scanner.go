package dedup

import (
	"context"

	"github.com/bamsammich/fstk/internal/catalogue"
	"github.com/bamsammich/fstk/internal/entry"
	"github.com/bamsammich/fstk/internal/event"
)

// scanner is the catalogue consumer for one Scan.
type scanner struct {
	catalogue.NopConsumer

	engine *Engine
	ctx    context.Context
	pool   *hashPool
}

func (s *scanner) MatchFile(name string, kind entry.Kind, _ int64) bool {
	return s.engine.cfg.Filter.Match(name, kind)
}

// OnFile hashes regular files. Directories and symlinks have no content to
// share and are ignored.
func (s *scanner) OnFile(path string, kind entry.Kind, index int64) error {
	if kind != entry.File {
		return nil
	}
	job := hashJob{path: path, index: index}
	if s.pool != nil {
		return s.pool.submit(s.ctx, job)
	}
	return s.engine.hashOne(s.ctx, job, 0)
}

// OnSync waits for in-flight hashes so the checkpoint never runs ahead of
// the bucket store.
func (s *scanner) OnSync(index int64) error {
	if s.pool != nil {
		if err := s.pool.drain(); err != nil {
			return err
		}
	}
	s.engine.emit(s.ctx, event.Event{Type: event.Checkpoint, Index: index})
	return nil
}
