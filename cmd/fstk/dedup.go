package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bamsammich/fstk/internal/config"
	"github.com/bamsammich/fstk/internal/dedup"
	"github.com/bamsammich/fstk/internal/event"
	"github.com/bamsammich/fstk/internal/stats"
	"github.com/bamsammich/fstk/internal/ui"
)

type dedupFlags struct {
	store      string
	workers    int
	hashRate   string
	resume     bool
	skipScan   bool
	safeLink   bool
	dryRun     bool
	noProgress bool
	filter     *filterFlags
}

func newDedupCmd() *cobra.Command {
	var df dedupFlags

	cmd := &cobra.Command{
		Use:   "dedup [flags] CATALOGUE",
		Short: "Hard-link files with identical contents",
		Long: `Hash every file listed in CATALOGUE into a bucket store keyed by SHA-1,
then replace each duplicate with a hard link to the oldest copy. Owner,
permissions and timestamps of the oldest copy are applied to the links.

The bucket store lives in a fstk-dedup-<id> directory under --store, where
<id> is derived from the catalogue path, so later runs over the same
catalogue reuse it. The scan checkpoints every 1000 entries and --resume
continues an interrupted scan; --skip-scan links the buckets already stored.

By default each duplicate is unlinked before the link is created. --safe-link
creates the link under a temporary name and renames it into place instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDedup(cmd, args[0], &df)
		},
	}

	cmd.Flags().StringVar(&df.store, "store", "", "directory holding bucket stores (default: working directory)")
	cmd.Flags().IntVarP(&df.workers, "workers", "n", 1, "number of concurrent hashers")
	cmd.Flags().StringVar(&df.hashRate, "hash-rate", "", "limit hashing reads to SIZE per second (e.g. 50M)")
	cmd.Flags().BoolVar(&df.resume, "resume", false, "continue the scan from the last checkpoint")
	cmd.Flags().BoolVar(&df.skipScan, "skip-scan", false, "skip hashing and link the stored buckets")
	cmd.Flags().BoolVar(&df.safeLink, "safe-link", false, "link to a temporary name, then rename over the duplicate")
	cmd.Flags().BoolVar(&df.dryRun, "dry-run", false, "report what would be linked without changing anything")
	cmd.Flags().BoolVar(&df.noProgress, "no-progress", false, "disable progress display")
	df.filter = addFilterFlags(cmd.Flags())
	return cmd
}

//nolint:gocyclo,revive // flag and config resolution plus presenter orchestration
func runDedup(cmd *cobra.Command, cataloguePath string, df *dedupFlags) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config", "path", config.Path(), "error", err)
	}
	applyConfigDefaults(cmd, cfg.Defaults, df)

	var hashRate int64
	if df.hashRate != "" {
		if hashRate, err = config.ParseSize(df.hashRate); err != nil {
			return fmt.Errorf("invalid --hash-rate: %w", err)
		}
	}
	if df.workers < 1 {
		return fmt.Errorf("invalid --workers %d: must be at least 1", df.workers)
	}
	f, err := df.filter.build()
	if err != nil {
		return err
	}

	if df.dryRun {
		slog.Info("dry run mode")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()
	events := make(chan event.Event, 256)

	isTTY := ui.IsTTY(os.Stderr.Fd())
	presenter := ui.NewPresenter(ui.Config{
		Writer:     os.Stdout,
		ErrWriter:  os.Stderr,
		Stats:      collector,
		Width:      ui.TermWidth(os.Stderr.Fd()),
		IsTTY:      isTTY,
		Quiet:      quiet,
		Verbose:    verbose,
		NoProgress: df.noProgress,
	})

	engine, err := dedup.New(dedup.Config{
		CataloguePath: cataloguePath,
		StoreRoot:     df.store,
		Workers:       df.workers,
		HashRate:      hashRate,
		SafeLink:      df.safeLink,
		DryRun:        df.dryRun,
		Filter:        f,
		Logger:        slog.Default(),
		Events:        events,
		Stats:         collector,
	})
	if err != nil {
		return err
	}

	slog.Debug("starting dedup",
		"catalogue", cataloguePath,
		"store", engine.Dir(),
		"workers", df.workers,
		"hash_rate", hashRate,
		"safe_link", df.safeLink,
	)

	presenterEvents := (<-chan event.Event)(events)
	if logFile != "" {
		presenterEvents = logEvents(events)
	}

	var presenterErr error
	var presenterWg sync.WaitGroup
	presenterWg.Add(1)
	go func() {
		defer presenterWg.Done()
		presenterErr = presenter.Run(presenterEvents)
	}()

	runErr := engine.Run(ctx, dedup.RunOptions{Resume: df.resume, SkipScan: df.skipScan})
	stop()
	close(events)
	presenterWg.Wait()
	if presenterErr != nil {
		fmt.Fprintf(os.Stderr, "presenter: %v\n", presenterErr)
	}

	if !quiet {
		if summary := presenter.Summary(); summary != "" {
			fmt.Fprintln(os.Stderr, summary)
		}
	}

	if runErr != nil {
		slog.Error("dedup failed", "error", runErr)
		if !errors.Is(runErr, context.Canceled) && collector.Snapshot().LinksFailed > 0 {
			return &exitError{code: 1} // partial failure
		}
		return &exitError{code: 2}
	}
	return nil
}

// logEvents logs every event at debug level and forwards it. The returned
// channel is closed once in is closed and drained.
func logEvents(in <-chan event.Event) <-chan event.Event {
	out := make(chan event.Event, 256)
	go func() {
		defer close(out)
		for ev := range in {
			attrs := []slog.Attr{
				slog.String("type", ev.Type.String()),
				slog.String("path", printable(ev.Path)),
			}
			if ev.Source != "" {
				attrs = append(attrs, slog.String("source", printable(ev.Source)))
			}
			if ev.Digest != "" {
				attrs = append(attrs, slog.String("digest", ev.Digest))
			}
			attrs = append(attrs, slog.Int64("size", ev.Size), slog.Int64("index", ev.Index))
			if ev.Error != nil {
				attrs = append(attrs, slog.String("error", ev.Error.Error()))
			}
			slog.LogAttrs(context.Background(), slog.LevelDebug, "fstk.event", attrs...)
			out <- ev
		}
	}()
	return out
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, df *dedupFlags) {
	if !cmd.Flags().Changed("store") && defaults.Store != nil {
		df.store = *defaults.Store
	}
	if !cmd.Flags().Changed("workers") && defaults.Workers != nil {
		df.workers = *defaults.Workers
	}
	if !cmd.Flags().Changed("hash-rate") && defaults.HashRate != nil {
		df.hashRate = *defaults.HashRate
	}
	if !cmd.Flags().Changed("safe-link") && defaults.SafeLink != nil {
		df.safeLink = *defaults.SafeLink
	}
}
