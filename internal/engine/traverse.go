package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/bamsammich/extsort/internal/event"
)

// traverse lists dir and fans out one goroutine per file copy and per
// subdirectory, returning once all of them have finished. A listing
// failure is logged and the subtree contributes nothing; it never reaches
// the caller.
func (e *engine) traverse(ctx context.Context, dir string) {
	entries, err := e.listDir(ctx, dir)
	if err != nil {
		e.stats.AddDirsFailed(1)
		e.errs.add(err)
		e.log.Error("error reading folder", "dir", dir, "error", err)
		e.emit(event.Event{Type: event.DirFailed, Path: dir, Error: err})
		return
	}
	e.stats.AddDirsListed(1)
	e.emit(event.Event{Type: event.DirListed, Path: dir, Size: int64(len(entries))})

	var wg sync.WaitGroup
	for _, entry := range entries {
		switch entry.Kind {
		case KindFile:
			e.stats.AddFilesFound(1)
			wg.Add(1)
			go func() {
				defer wg.Done()
				e.runCopy(ctx, newCopyTask(entry.Path, e.cfg.Dst, e.cfg.FoldCase))
			}()
		case KindDir:
			wg.Add(1)
			go func() {
				defer wg.Done()
				e.traverse(ctx, entry.Path)
			}()
		default:
			e.stats.AddEntriesSkipped(1)
			e.log.Debug("skipping entry", "path", entry.Path, "kind", entry.Kind)
			e.emit(event.Event{Type: event.EntrySkipped, Path: entry.Path})
		}
	}
	wg.Wait()
}

// listDir reads the immediate entries of dir on a blocking-pool slot. The
// slot is released before any child work is launched.
func (e *engine) listDir(ctx context.Context, dir string) ([]FileEntry, error) {
	var infos []os.FileInfo
	err := e.pool.do(ctx, func() error {
		var err error
		infos, err = afero.ReadDir(e.fs, dir)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	entries := make([]FileEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, FileEntry{
			Path: filepath.Join(dir, info.Name()),
			Kind: kindOf(info.Mode()),
		})
	}
	return entries, nil
}
