package dedup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bamsammich/fstk/internal/catalogue"
	"github.com/bamsammich/fstk/internal/event"
	"github.com/bamsammich/fstk/internal/stats"
)

var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// writeFile creates path with content and sets its mtime to epoch+age.
func writeFile(t *testing.T, path, content string, age time.Duration) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	mt := epoch.Add(age)
	require.NoError(t, os.Chtimes(path, mt, mt))
}

// saveCatalogue catalogues paths into dir/cat.fstk and returns its path.
func saveCatalogue(t *testing.T, dir string, paths ...string) string {
	t.Helper()
	c, err := catalogue.New(paths, catalogue.Options{})
	require.NoError(t, err)
	out := filepath.Join(dir, "cat.fstk")
	require.NoError(t, c.Save(context.Background(), out))
	return out
}

// eventSink collects engine events on a background goroutine.
type eventSink struct {
	ch     chan event.Event
	wg     sync.WaitGroup
	events []event.Event
}

func newEventSink() *eventSink {
	s := &eventSink{ch: make(chan event.Event, 16)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for ev := range s.ch {
			s.events = append(s.events, ev)
		}
	}()
	return s
}

// close stops collection and returns every event received.
func (s *eventSink) close() []event.Event {
	close(s.ch)
	s.wg.Wait()
	return s.events
}

func ofType(events []event.Event, typ event.Type) []event.Event {
	var out []event.Event
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type testEnv struct {
	data      string
	store     string
	catalogue string
	collector *stats.Collector
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	return &testEnv{
		data:      filepath.Join(root, "data"),
		store:     filepath.Join(root, "store"),
		catalogue: filepath.Join(root, "cat.fstk"),
		collector: stats.NewCollector(),
	}
}

func (env *testEnv) path(rel string) string {
	return filepath.Join(env.data, rel)
}

// engine catalogues env.data and returns an engine over it.
func (env *testEnv) engine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	saveCatalogue(t, filepath.Dir(env.catalogue), env.data)
	cfg := Config{
		CataloguePath: env.catalogue,
		StoreRoot:     env.store,
		Stats:         env.collector,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func sameFile(t *testing.T, a, b string) bool {
	t.Helper()
	fa, err := os.Lstat(a)
	require.NoError(t, err)
	fb, err := os.Lstat(b)
	require.NoError(t, err)
	return os.SameFile(fa, fb)
}

// ownerOf returns the uid and gid of path without following symlinks.
func ownerOf(t *testing.T, path string) (uint32, uint32) {
	t.Helper()
	info, err := os.Lstat(path)
	require.NoError(t, err)
	st, ok := info.Sys().(*syscall.Stat_t)
	require.True(t, ok)
	return st.Uid, st.Gid
}
