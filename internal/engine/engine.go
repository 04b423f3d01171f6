package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/time/rate"

	"github.com/bamsammich/extsort/internal/event"
	"github.com/bamsammich/extsort/internal/stats"
)

// ErrInvalidSource marks a run that never started because the source root
// is missing or not a directory.
var ErrInvalidSource = errors.New("invalid source")

// Config describes a sort-by-extension run.
type Config struct {
	Src      string
	Dst      string
	Workers  int   // slots in the blocking I/O pool
	BWLimit  int64 // bytes/sec across all copies, 0 = unlimited
	FoldCase bool
	DryRun   bool

	FS     afero.Fs // defaults to the OS filesystem
	Logger *slog.Logger
	Events chan<- event.Event
	Stats  *stats.Collector
}

// Result is the outcome of a run.
type Result struct {
	Stats stats.Snapshot
	Err   error
}

// DefaultWorkers is the blocking I/O pool size used when Config.Workers is unset.
func DefaultWorkers() int {
	return min(runtime.NumCPU()*2, 32)
}

// CheckSource verifies that src exists and is a directory.
func CheckSource(fsys afero.Fs, src string) error {
	info, err := fsys.Stat(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidSource, src)
	}
	return nil
}

// Run traverses cfg.Src and copies every regular file into its extension
// bucket under cfg.Dst, blocking until the whole tree has been processed.
// Per-file and per-directory failures are logged and counted but never stop
// the run; Result.Err summarizes them.
func Run(ctx context.Context, cfg Config) Result {
	e := newEngine(cfg)

	if err := CheckSource(e.fs, cfg.Src); err != nil {
		return Result{Stats: e.stats.Snapshot(), Err: err}
	}

	e.traverse(ctx, cfg.Src)

	return Result{
		Stats: e.stats.Snapshot(),
		Err:   e.errs.err(),
	}
}

type engine struct {
	cfg     Config
	fs      afero.Fs
	log     *slog.Logger
	pool    *blockingPool
	limiter *rate.Limiter
	stats   *stats.Collector
	buckets sync.Map // bucket dir -> struct{}, buckets this run created
	errs    errorSink
}

func newEngine(cfg Config) *engine {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers()
	}
	if cfg.FS == nil {
		cfg.FS = afero.NewOsFs()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}

	e := &engine{
		cfg:   cfg,
		fs:    cfg.FS,
		log:   cfg.Logger,
		pool:  newBlockingPool(cfg.Workers),
		stats: cfg.Stats,
	}
	if cfg.BWLimit > 0 {
		e.limiter = NewBWLimiter(cfg.BWLimit)
	}
	return e
}

func (e *engine) emit(ev event.Event) {
	if e.cfg.Events == nil {
		return
	}
	ev.Timestamp = time.Now()
	e.cfg.Events <- ev
}

// errorSink keeps the first swallowed error and a count of the rest.
type errorSink struct {
	mu    sync.Mutex
	first error
	count int
}

func (s *errorSink) add(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.first == nil {
		s.first = err
	}
	s.count++
}

func (s *errorSink) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count > 1 {
		return fmt.Errorf("%w (and %d more errors)", s.first, s.count-1)
	}
	return s.first
}
