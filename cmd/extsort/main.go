package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/bamsammich/extsort/internal/config"
	"github.com/bamsammich/extsort/internal/engine"
	"github.com/bamsammich/extsort/internal/event"
	"github.com/bamsammich/extsort/internal/stats"
	"github.com/bamsammich/extsort/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// sizeFlag is a pflag.Value accepting human-readable sizes like 10M.
type sizeFlag struct {
	raw   string
	bytes int64
}

func (s *sizeFlag) String() string { return s.raw }
func (*sizeFlag) Type() string     { return "size" }

func (s *sizeFlag) Set(val string) error {
	n, err := config.ParseSize(val)
	if err != nil {
		return err
	}
	s.raw = val
	s.bytes = n
	return nil
}

type options struct {
	workers     int
	strict      bool
	foldCase    bool
	dryRun      bool
	bwLimit     sizeFlag
	logFile     string
	verbose     bool
	quiet       bool
	noProgress  bool
	showVersion bool
}

func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdout, stderr)
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	rootCmd := &cobra.Command{
		Use:   "extsort [flags] <source> <output>",
		Short: "Copy a directory tree into folders named by file extension",
		Long: `extsort walks <source> recursively and copies every regular file into
<output>/<ext>/<name>, where <ext> is the file's extension ("unknown" when it
has none). The source structure is flattened; files sharing a name within a
bucket overwrite each other. Directories and files are processed concurrently.

Failures on individual files or directories are logged and do not stop the
run; the exit code is 0 unless --strict is set, in which case it is 1. If
<source> is missing or not a directory nothing is copied and extsort exits
with code 2 rather than returning normally.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				return nil
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				fmt.Fprintf(stdout, "extsort %s\n", version)
				return nil
			}
			return runSort(cmd, &opts, args[0], args[1], stderr)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.Flags().BoolVar(&opts.showVersion, "version", false, "print version and exit")
	rootCmd.Flags().
		IntVarP(&opts.workers, "workers", "n", 0, "concurrent blocking I/O operations (default: min(NumCPU*2, 32))")
	rootCmd.Flags().
		BoolVar(&opts.strict, "strict", false, "exit 1 if any file or directory failed")
	rootCmd.Flags().
		BoolVar(&opts.foldCase, "fold-case", false, "lower-case extensions so .JPG and .jpg share a bucket")
	rootCmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "show what would be copied without writing")
	rootCmd.Flags().Var(&opts.bwLimit, "bwlimit", "bandwidth limit across all copies (e.g. 100M, 1G)")
	rootCmd.Flags().StringVar(&opts.logFile, "log", "", "write structured JSON log to FILE")
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "disable periodic progress lines")

	rootCmd.AddCommand(newDocsCmd())

	return rootCmd
}

//nolint:revive // cognitive-complexity: CLI entry point wires config, logging and presenter
func runSort(cmd *cobra.Command, opts *options, rawSrc, rawDst string, stderr io.Writer) error {
	logger, closeLog, err := newLogger(opts, stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("failed to load config", "path", config.Path(), "error", err)
	}
	if err := applyConfigDefaults(cmd, cfg.Defaults, opts); err != nil {
		return err
	}
	if opts.workers < 0 {
		return fmt.Errorf("invalid --workers %d: must be positive", opts.workers)
	}

	src, err := filepath.Abs(rawSrc)
	if err != nil {
		logger.Error("cannot resolve source", "path", rawSrc, "error", err)
		return &exitError{code: 2}
	}
	dst, err := filepath.Abs(rawDst)
	if err != nil {
		logger.Error("cannot resolve output", "path", rawDst, "error", err)
		return &exitError{code: 2}
	}

	fsys := afero.NewOsFs()
	if err := engine.CheckSource(fsys, src); err != nil {
		logger.Error("source must be an existing directory", "src", src, "error", err)
		return &exitError{code: 2}
	}
	if insideTree(src, dst) {
		logger.Warn("output directory is inside the source tree", "src", src, "dst", dst)
	}
	if opts.dryRun {
		logger.Info("dry run mode")
	}

	workers := opts.workers
	if workers == 0 {
		workers = engine.DefaultWorkers()
	}
	logger.Info("starting sort", "src", src, "dst", dst)
	logger.Debug("run settings",
		"workers", workers,
		"fold_case", opts.foldCase,
		"bwlimit", opts.bwLimit.bytes,
	)

	collector := stats.NewCollector()
	events := make(chan event.Event, 256)

	isTTY := false
	if f, ok := stderr.(*os.File); ok {
		isTTY = ui.IsTTY(f.Fd())
	}
	color.NoColor = !isTTY
	presenter := ui.NewPresenter(ui.Config{
		ErrWriter:  stderr,
		Stats:      collector,
		SrcRoot:    src,
		IsTTY:      isTTY,
		Quiet:      opts.quiet,
		NoProgress: opts.noProgress,
	})

	var presenterErr error
	var presenterWg sync.WaitGroup
	presenterWg.Add(1)
	go func() {
		defer presenterWg.Done()
		presenterErr = presenter.Run(events)
	}()

	result := engine.Run(context.Background(), engine.Config{
		Src:      src,
		Dst:      dst,
		Workers:  workers,
		BWLimit:  opts.bwLimit.bytes,
		FoldCase: opts.foldCase,
		DryRun:   opts.dryRun,
		FS:       fsys,
		Logger:   logger,
		Events:   events,
		Stats:    collector,
	})
	close(events)
	presenterWg.Wait()
	if presenterErr != nil {
		fmt.Fprintf(stderr, "presenter: %v\n", presenterErr)
	}

	if summary := presenter.Summary(); summary != "" {
		fmt.Fprintln(stderr, summary)
	}

	if errors.Is(result.Err, engine.ErrInvalidSource) {
		logger.Error("source must be an existing directory", "src", src, "error", result.Err)
		return &exitError{code: 2}
	}
	logger.Info("sort completed",
		"files", result.Stats.FilesCopied,
		"bytes", result.Stats.BytesCopied,
		"buckets", result.Stats.BucketsCreated,
		"errors", result.Stats.Errors(),
		"elapsed", result.Stats.Elapsed,
	)

	if result.Err != nil {
		logger.Warn("completed with errors", "errors", result.Stats.Errors(), "first", result.Err)
		if opts.strict {
			return &exitError{code: 1}
		}
	}
	return nil
}

// newLogger builds the run logger: text records on stderr, plus a JSON tee
// when --log is set. The returned func closes the log file.
func newLogger(opts *options, stderr io.Writer) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	switch {
	case opts.verbose:
		level = slog.LevelDebug
	case opts.quiet:
		level = slog.LevelWarn
	}

	var handler slog.Handler = slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
	closeLog := func() {}
	if opts.logFile != "" {
		lf, err := os.Create(opts.logFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		closeLog = func() { _ = lf.Close() }
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{Level: slog.LevelDebug})
		handler = ui.NewMultiHandler(handler, jsonHandler)
	}

	return slog.New(handler).With("run", uuid.NewString()), closeLog, nil
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, opts *options) error {
	if !cmd.Flags().Changed("workers") && defaults.Workers != nil {
		opts.workers = *defaults.Workers
	}
	if !cmd.Flags().Changed("strict") && defaults.Strict != nil {
		opts.strict = *defaults.Strict
	}
	if !cmd.Flags().Changed("fold-case") && defaults.FoldCase != nil {
		opts.foldCase = *defaults.FoldCase
	}
	if !cmd.Flags().Changed("bwlimit") && defaults.BWLimit != nil {
		if err := opts.bwLimit.Set(*defaults.BWLimit); err != nil {
			return fmt.Errorf("config bwlimit: %w", err)
		}
	}
	return nil
}

// insideTree reports whether path is root or lies beneath it.
func insideTree(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
