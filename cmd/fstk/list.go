package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bamsammich/fstk/internal/catalogue"
	"github.com/bamsammich/fstk/internal/entry"
	"github.com/bamsammich/fstk/internal/filter"
)

// listPrinter prints every matching catalogue entry with its full path.
type listPrinter struct {
	catalogue.NopConsumer

	w      *bufio.Writer
	filter *filter.Filter
}

func (p *listPrinter) MatchFile(name string, kind entry.Kind, _ int64) bool {
	return p.filter.Match(name, kind)
}

func (p *listPrinter) OnFile(path string, kind entry.Kind, index int64) error {
	_, err := fmt.Fprintf(p.w, "%d\t%c\t%s\n", index, kind, printable(path))
	return err
}

func (p *listPrinter) OnSync(int64) error {
	return p.w.Flush()
}

func newListCmd() *cobra.Command {
	var (
		rangeStr string
		position string
		resume   bool
		ff       *filterFlags
	)

	cmd := &cobra.Command{
		Use:   "list [flags] CATALOGUE",
		Short: "Print the entries of a catalogue with their full paths",
		Long: `Read CATALOGUE and print one line per directory, file and symlink entry:
its index, kind letter and full path.

--range START:END restricts output to entry indices in [START, END]; either
bound may be omitted. With --position, progress is checkpointed to FILE every
1000 entries and --resume continues from the last checkpoint.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if resume && position == "" {
				return errors.New("--resume requires --position")
			}
			var rng *catalogue.Range
			if rangeStr != "" {
				var err error
				if rng, err = catalogue.ParseRange(rangeStr); err != nil {
					return fmt.Errorf("invalid --range: %w", err)
				}
			}
			f, err := ff.build()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return listCatalogue(ctx, os.Stdout, args[0], f, position,
				catalogue.ReadOptions{Range: rng, Resume: resume})
		},
	}

	cmd.Flags().StringVar(&rangeStr, "range", "", "only list entry indices in START:END")
	cmd.Flags().StringVar(&position, "position", "", "checkpoint FILE for --resume")
	cmd.Flags().BoolVar(&resume, "resume", false, "continue from the last checkpoint")
	ff = addFilterFlags(cmd.Flags())
	return cmd
}

func listCatalogue(
	ctx context.Context,
	out io.Writer,
	path string,
	f *filter.Filter,
	position string,
	opts catalogue.ReadOptions,
) error {
	p := &listPrinter{w: bufio.NewWriter(out), filter: f}
	r := catalogue.NewReader(p, catalogue.ReaderOptions{
		Logger:       slog.Default(),
		PositionPath: position,
	})
	err := r.Read(ctx, path, opts)
	if flushErr := p.w.Flush(); err == nil {
		err = flushErr
	}
	return err
}
