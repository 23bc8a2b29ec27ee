package ui

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/bamsammich/fstk/internal/entry"
	"github.com/bamsammich/fstk/internal/stats"
)

const (
	ansiDim   = "\033[2m"
	ansiReset = "\033[0m"
	ansiClear = "\r\033[K"

	sparklineWidth = 16
	statusInterval = 100 * time.Millisecond
)

// statusPresenter prints the dedup report as a scrolling feed on the
// writer and keeps a one-line status redrawn in place on the terminal.
type statusPresenter struct {
	w       io.Writer
	errW    io.Writer
	stats   stats.ReadTicker
	verbose bool
	width   int

	phase    string
	drawn    bool
	lastDraw time.Time
}

func (p *statusPresenter) Run(events <-chan Event) error {
	p.phase = "starting"

	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()
	redrawTicker := time.NewTicker(statusInterval)
	defer redrawTicker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.clear()
				return nil
			}
			p.handleEvent(ev)
			if time.Since(p.lastDraw) >= statusInterval {
				p.draw()
			}
		case <-redrawTicker.C:
			p.draw()
		case <-secTicker.C:
			p.stats.Tick()
		}
	}
}

func (p *statusPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case ScanStarted:
		p.phase = "hashing"
	case ScanComplete:
		p.phase = "linking"
	case DedupComplete:
		p.phase = "done"
	case HashFailed:
		p.println(p.errW, hashFailedLine(ev))
	case FileHashed:
		if p.verbose {
			digest := ev.Digest
			if len(digest) > 8 {
				digest = digest[:8]
			}
			p.println(p.w, fmt.Sprintf("%s%s%s  %s", ansiDim, digest, ansiReset, entry.Printable(ev.Path)))
		}
	default:
		if line, ok := reportLine(ev); ok {
			p.println(p.w, line)
		}
	}
}

// println writes a full line above the status line.
func (p *statusPresenter) println(w io.Writer, line string) {
	p.clear()
	fmt.Fprintln(w, line)
}

func (p *statusPresenter) draw() {
	snap := p.stats.Snapshot()
	spark := Sparkline(p.stats.SparklineData(sparklineWidth), sparklineWidth)
	line := fmt.Sprintf("%-8s %s  %s  %s files  %s  linked %s",
		p.phase,
		spark,
		FormatRate(p.stats.RollingSpeed(5)),
		FormatCount(snap.FilesHashed),
		FormatBytes(snap.BytesHashed),
		FormatCount(snap.LinksCreated),
	)
	if p.width > 0 {
		line = truncate(line, p.width-1)
	}
	fmt.Fprint(p.errW, ansiClear+line)
	p.drawn = true
	p.lastDraw = time.Now()
}

func (p *statusPresenter) clear() {
	if !p.drawn {
		return
	}
	fmt.Fprint(p.errW, ansiClear)
	p.drawn = false
}

func (p *statusPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}

// Sparkline renders data as exactly width Unicode block characters,
// normalized to the largest value. Short input is padded on the left.
func Sparkline(data []float64, width int) string {
	if width <= 0 {
		return ""
	}
	blocks := []rune("▁▂▃▄▅▆▇█")

	samples := make([]float64, width)
	if len(data) >= width {
		copy(samples, data[len(data)-width:])
	} else {
		copy(samples[width-len(data):], data)
	}

	peak := slices.Max(samples)
	out := make([]rune, width)
	for i, v := range samples {
		if peak <= 0 || v <= 0 {
			out[i] = blocks[0]
			continue
		}
		out[i] = blocks[min(int(v/peak*float64(len(blocks)-1)), len(blocks)-1)]
	}
	return string(out)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:max(n, 0)])
	}
	return string(r[:n-3]) + "..."
}
