package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/fstk/internal/entry"
	"github.com/bamsammich/fstk/internal/stats"
)

// plainPresenter writes the dedup report to stdout and, when progress is
// enabled, periodic progress lines to stderr.
type plainPresenter struct {
	w        io.Writer
	errW     io.Writer
	stats    stats.ReadTicker
	verbose  bool
	progress bool
}

func (p *plainPresenter) Run(events <-chan Event) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-ticker.C:
			p.stats.Tick()
			ticks++
			if p.progress && ticks%5 == 0 {
				p.printProgress()
			}
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	if line, ok := reportLine(ev); ok {
		fmt.Fprintln(p.w, line)
		return
	}
	switch ev.Type {
	case HashFailed:
		fmt.Fprintln(p.errW, hashFailedLine(ev))
	case FileHashed:
		if p.verbose {
			fmt.Fprintf(p.w, "%s  %s  %s\n", ev.Digest, entry.Printable(ev.Path), FormatBytes(ev.Size))
		}
	case Checkpoint:
		if p.verbose {
			fmt.Fprintf(p.errW, "checkpoint: %d\n", ev.Index)
		}
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	fmt.Fprintf(p.errW, "progress: hashed %s files %s %s  linked %s\n",
		FormatCount(snap.FilesHashed),
		FormatBytes(snap.BytesHashed),
		FormatRate(p.stats.RollingSpeed(10)),
		FormatCount(snap.LinksCreated),
	)
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}
