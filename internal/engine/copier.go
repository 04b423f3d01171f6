package engine

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/bamsammich/extsort/internal/event"
	"github.com/bamsammich/extsort/internal/platform"
)

// runCopy copies one file into its bucket. Failures are logged, counted and
// recorded, never returned: one bad file cannot stop its siblings.
func (e *engine) runCopy(ctx context.Context, task CopyTask) {
	target := task.TargetPath()

	if e.cfg.DryRun {
		e.log.Info("would copy", "src", task.SrcPath, "dst", target)
		return
	}

	e.emit(event.Event{Type: event.FileStarted, Path: task.SrcPath, Target: target, Bucket: task.Bucket})

	n, err := e.copyFile(ctx, task)
	if err != nil {
		e.stats.AddFilesFailed(1)
		e.errs.add(err)
		e.log.Error("error copying file", "path", task.SrcPath, "error", err)
		e.emit(event.Event{
			Type:   event.FileFailed,
			Path:   task.SrcPath,
			Target: target,
			Bucket: task.Bucket,
			Size:   n,
			Error:  err,
		})
		return
	}

	e.stats.AddFilesCopied(1)
	e.stats.AddBytesCopied(n)
	e.log.Info("copied", "src", task.SrcPath, "dst", target, "bytes", n)
	e.emit(event.Event{
		Type:   event.FileCompleted,
		Path:   task.SrcPath,
		Target: target,
		Bucket: task.Bucket,
		Size:   n,
	})
}

// copyFile holds one blocking-pool slot for the whole copy, since it keeps
// two descriptors open throughout.
func (e *engine) copyFile(ctx context.Context, task CopyTask) (int64, error) {
	var written int64
	err := e.pool.do(ctx, func() error {
		var err error
		written, err = e.copyInto(ctx, task)
		return err
	})
	return written, err
}

func (e *engine) copyInto(ctx context.Context, task CopyTask) (int64, error) {
	if err := e.ensureBucket(task); err != nil {
		return 0, err
	}

	src, err := e.fs.Open(task.SrcPath)
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	target := task.TargetPath()
	dst, err := e.fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return 0, fmt.Errorf("open target: %w", err)
	}

	if f, ok := src.(*os.File); ok {
		platform.AdviseSequential(f)
	}
	if f, ok := dst.(*os.File); ok {
		if info, statErr := src.Stat(); statErr == nil {
			platform.Preallocate(f, info.Size())
		}
	}

	var w io.Writer = dst
	if e.limiter != nil {
		w = newRateLimitedWriter(ctx, dst, e.limiter)
	}

	res, err := platform.Stream(w, src)
	if err != nil {
		_ = dst.Close()
		return res.BytesWritten, fmt.Errorf("copy %s -> %s: %w", task.SrcPath, target, err)
	}
	if err := dst.Close(); err != nil {
		return res.BytesWritten, fmt.Errorf("close %s: %w", target, err)
	}
	return res.BytesWritten, nil
}

// ensureBucket creates the bucket directory if it is missing. Concurrent
// creators of the same bucket all succeed; only the first to finish counts
// it as created.
func (e *engine) ensureBucket(task CopyTask) error {
	dir := task.TargetDir()
	if _, err := e.fs.Stat(dir); err == nil {
		return nil
	}
	if err := e.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bucket %s: %w", dir, err)
	}
	if _, loaded := e.buckets.LoadOrStore(dir, struct{}{}); !loaded {
		e.stats.AddBucketsCreated(1)
		e.log.Debug("created bucket", "bucket", task.Bucket, "dir", dir)
		e.emit(event.Event{Type: event.BucketCreated, Target: dir, Bucket: task.Bucket})
	}
	return nil
}
