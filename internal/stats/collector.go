package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Reader is the read side of a Collector.
type Reader interface {
	Snapshot() Snapshot
	RollingSpeed(seconds int) float64
	RollingFilesPerSec(seconds int) float64
}

// ReadTicker is a Reader that the presenter also drives once per second.
type ReadTicker interface {
	Reader
	Tick()
}

// Collector tracks run statistics using lock-free atomic counters.
type Collector struct {
	filesFound     atomic.Int64
	filesCopied    atomic.Int64
	filesFailed    atomic.Int64
	bytesCopied    atomic.Int64
	dirsListed     atomic.Int64
	dirsFailed     atomic.Int64
	entriesSkipped atomic.Int64
	bucketsCreated atomic.Int64
	startTime      time.Time

	// Ring buffer, written only by the presenter's Tick().
	mu          sync.Mutex
	throughput  [ringSize]int64 // bytes delta per second
	filesPerSec [ringSize]int64 // files delta per second
	ringIdx     int
	ringCount   int // samples written, capped at ringSize
	lastBytes   int64
	lastFiles   int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesFound     int64
	FilesCopied    int64
	FilesFailed    int64
	BytesCopied    int64
	DirsListed     int64
	DirsFailed     int64
	EntriesSkipped int64
	BucketsCreated int64
	Elapsed        time.Duration
}

func (c *Collector) AddFilesFound(n int64)     { c.filesFound.Add(n) }
func (c *Collector) AddFilesCopied(n int64)    { c.filesCopied.Add(n) }
func (c *Collector) AddFilesFailed(n int64)    { c.filesFailed.Add(n) }
func (c *Collector) AddBytesCopied(n int64)    { c.bytesCopied.Add(n) }
func (c *Collector) AddDirsListed(n int64)     { c.dirsListed.Add(n) }
func (c *Collector) AddDirsFailed(n int64)     { c.dirsFailed.Add(n) }
func (c *Collector) AddEntriesSkipped(n int64) { c.entriesSkipped.Add(n) }
func (c *Collector) AddBucketsCreated(n int64) { c.bucketsCreated.Add(n) }

// Snapshot returns a point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesFound:     c.filesFound.Load(),
		FilesCopied:    c.filesCopied.Load(),
		FilesFailed:    c.filesFailed.Load(),
		BytesCopied:    c.bytesCopied.Load(),
		DirsListed:     c.dirsListed.Load(),
		DirsFailed:     c.dirsFailed.Load(),
		EntriesSkipped: c.entriesSkipped.Load(),
		BucketsCreated: c.bucketsCreated.Load(),
		Elapsed:        c.Elapsed(),
	}
}

// Errors is the number of swallowed failures (files and directories).
func (s Snapshot) Errors() int64 {
	return s.FilesFailed + s.DirsFailed
}

// Tick snapshots byte/file deltas into the ring buffer. Called 1/sec by the presenter.
func (c *Collector) Tick() {
	currentBytes := c.bytesCopied.Load()
	currentFiles := c.filesCopied.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	bytesDelta := currentBytes - c.lastBytes
	filesDelta := currentFiles - c.lastFiles
	c.lastBytes = currentBytes
	c.lastFiles = currentFiles

	c.throughput[c.ringIdx] = bytesDelta
	c.filesPerSec[c.ringIdx] = filesDelta
	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average bytes/sec over the last n seconds of samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingAvg(c.throughput[:], seconds)
}

// RollingFilesPerSec returns average files/sec over the last n seconds.
func (c *Collector) RollingFilesPerSec(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingAvg(c.filesPerSec[:], seconds)
}

func (c *Collector) rollingAvg(buf []int64, n int) float64 {
	count := min(n, c.ringCount)
	if count <= 0 {
		return 0
	}
	var sum int64
	for i := range count {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += buf[idx]
	}
	return float64(sum) / float64(count)
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"found=%d copied=%d failed=%d bytes=%d dirs=%d dirs_failed=%d skipped=%d buckets=%d",
		s.FilesFound, s.FilesCopied, s.FilesFailed, s.BytesCopied,
		s.DirsListed, s.DirsFailed, s.EntriesSkipped, s.BucketsCreated,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
