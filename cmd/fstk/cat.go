package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bamsammich/fstk/internal/catalogue"
)

func newCatCmd() *cobra.Command {
	var (
		base   string
		output string
		ff     *filterFlags
	)

	cmd := &cobra.Command{
		Use:   "cat [flags] PATH...",
		Short: "Write the catalogue of one or more paths",
		Long: `Walk every PATH and write its catalogue: one record per line, holding the
entry index, its kind (B base, R root, D directory, F file, S symlink) and
its path, separated by the 0x1F unit separator.

Paths are catalogued relative to their common ancestor unless --base is
given. Device files, FIFOs and sockets are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			f, err := ff.build()
			if err != nil {
				return err
			}

			c, err := catalogue.New(args, catalogue.Options{
				Base:   base,
				Filter: f,
				Logger: slog.Default(),
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if output != "" {
				return c.Save(ctx, output)
			}
			return c.Write(ctx, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "base directory (default: common ancestor of PATHs)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "save the catalogue to FILE instead of stdout")
	ff = addFilterFlags(cmd.Flags())
	return cmd
}
