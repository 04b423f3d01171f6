package ui

import (
	"io"
	"time"

	"github.com/bamsammich/extsort/internal/stats"
)

// Presenter consumes events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan Event) error
	// Summary returns the final summary, empty when nothing should be printed.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	ErrWriter  io.Writer
	Stats      stats.ReadTicker
	SrcRoot    string
	IsTTY      bool
	Quiet      bool
	NoProgress bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // returns one of several presenters
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return &quietPresenter{}
	}
	interval := 5 * time.Second
	if cfg.IsTTY {
		interval = time.Second
	}
	if cfg.NoProgress {
		interval = 0
	}
	return &plainPresenter{
		errW:     cfg.ErrWriter,
		stats:    cfg.Stats,
		srcRoot:  cfg.SrcRoot,
		interval: interval,
	}
}
