package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/fstk/internal/entry"
	"github.com/bamsammich/fstk/internal/filter"
	"github.com/bamsammich/fstk/internal/ui"
)

var version = "dev"

// Global flags, shared by every subcommand.
var (
	verbose bool
	quiet   bool
	logFile string

	closeLog = func() {}
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd()

	err := rootCmd.Execute()
	closeLog()
	if err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fstk",
		Short: "Catalogue filesystem trees and hard-link duplicate files",
		Long: `fstk records a filesystem subtree as a compact, resumable catalogue and
uses it to drive content-addressed deduplication: files with identical
SHA-1 contents are replaced by hard links to the oldest copy.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return setupLogging() },
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().StringVar(&logFile, "log", "", "write structured JSON log to FILE")

	rootCmd.AddCommand(newCatCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newDedupCmd())
	rootCmd.AddCommand(docsCmd)
	return rootCmd
}

// setupLogging installs the default logger: text on stderr, teed to a JSON
// file when --log is set.
func setupLogging() error {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	} else if !quiet {
		logLevel = slog.LevelInfo
	}
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	var logHandler slog.Handler = textHandler
	if logFile != "" {
		lf, err := os.Create(logFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		closeLog = func() { lf.Close() }
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
	}
	slog.SetDefault(slog.New(logHandler))
	return nil
}

// filterFlags wires the entry filter flags shared by cat and dedup.
type filterFlags struct {
	f          *filter.Filter
	kinds      string
	filterFile string
}

func addFilterFlags(flags *pflag.FlagSet) *filterFlags {
	ff := &filterFlags{f: filter.New()}
	flags.StringVarP(&ff.kinds, "type", "t", "", "only match these kinds (comma separated: dir,file,symlink)")
	flags.Var(&nameFlag{f: ff.f}, "name", "only match base names matching GLOB (repeatable)")
	flags.Var(&nameFlag{f: ff.f, exclude: true}, "exclude", "record an exclusion GLOB (repeatable; not applied)")
	flags.StringVar(&ff.filterFile, "filter", "", "read filter rules from FILE")
	return ff
}

// build returns the configured filter, or nil when no rule was given.
func (ff *filterFlags) build() (*filter.Filter, error) {
	if ff.kinds != "" {
		if err := ff.f.AddKinds(ff.kinds); err != nil {
			return nil, fmt.Errorf("invalid --type: %w", err)
		}
	}
	if ff.filterFile != "" {
		if err := ff.f.LoadFile(ff.filterFile); err != nil {
			return nil, fmt.Errorf("load filter file: %w", err)
		}
	}
	if excl := ff.f.Excludes(); len(excl) > 0 {
		slog.Warn("exclusion patterns are recorded but not applied", "patterns", excl)
	}
	if ff.f.Empty() {
		return nil, nil
	}
	return ff.f, nil
}

// nameFlag is a repeatable pflag.Value appending globs to a filter in CLI
// order.
type nameFlag struct {
	f       *filter.Filter
	exclude bool
}

func (*nameFlag) String() string { return "" }
func (*nameFlag) Type() string   { return "glob" }

func (n *nameFlag) Set(val string) error {
	if n.exclude {
		return n.f.AddExclude(val)
	}
	return n.f.AddName(val)
}

// printable sanitizes a path for terminal output.
func printable(p string) string {
	return entry.Printable(p)
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
