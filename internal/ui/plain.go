package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/extsort/internal/stats"
)

// maxListedFailures caps how many failed paths the summary names.
const maxListedFailures = 5

// plainPresenter prints periodic progress lines to stderr and remembers
// failed paths for the summary. Per-file records go through slog.
type plainPresenter struct {
	errW     io.Writer
	stats    stats.ReadTicker
	srcRoot  string
	interval time.Duration // 0 disables progress lines

	failed []string
}

func (p *plainPresenter) Run(events <-chan Event) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	lastPrint := time.Now()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case now := <-ticker.C:
			p.stats.Tick()
			if p.interval > 0 && now.Sub(lastPrint) >= p.interval {
				p.printProgress()
				lastPrint = now
			}
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case FileFailed, DirFailed:
		p.failed = append(p.failed, StripRoot(p.srcRoot, ev.Path))
	default:
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	fmt.Fprintf(p.errW, "progress: %s/%s files  %s  %s  buckets %d  errors %d\n",
		FormatCount(snap.FilesCopied), FormatCount(snap.FilesFound),
		FormatBytes(snap.BytesCopied),
		FormatRate(p.stats.RollingSpeed(5)),
		snap.BucketsCreated,
		snap.Errors(),
	)
}

func (p *plainPresenter) Summary() string {
	return completionSummary(p.stats.Snapshot(), p.failed)
}
