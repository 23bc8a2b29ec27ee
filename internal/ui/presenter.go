package ui

import (
	"io"

	"github.com/bamsammich/fstk/internal/stats"
)

// Presenter consumes events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan Event) error
	// Summary returns the final summary line.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	Writer     io.Writer // dedup report
	ErrWriter  io.Writer // progress and per-file failures
	Stats      stats.ReadTicker
	Width      int
	IsTTY      bool
	Quiet      bool
	Verbose    bool
	NoProgress bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // factory function returns interface by design
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return &quietPresenter{stats: cfg.Stats}
	}
	if !cfg.IsTTY || cfg.NoProgress {
		return &plainPresenter{
			w:        cfg.Writer,
			errW:     cfg.ErrWriter,
			stats:    cfg.Stats,
			verbose:  cfg.Verbose,
			progress: !cfg.NoProgress,
		}
	}
	return &statusPresenter{
		w:       cfg.Writer,
		errW:    cfg.ErrWriter,
		stats:   cfg.Stats,
		verbose: cfg.Verbose,
		width:   cfg.Width,
	}
}
