package engine

import (
	"io/fs"
	"path/filepath"
)

// EntryKind classifies a directory entry.
type EntryKind int

const (
	KindOther EntryKind = iota // symlink, socket, device, pipe
	KindFile
	KindDir
)

func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "directory"
	default:
		return "other"
	}
}

// kindOf classifies by lstat mode; symlinks are never followed.
func kindOf(mode fs.FileMode) EntryKind {
	switch {
	case mode.IsRegular():
		return KindFile
	case mode.IsDir():
		return KindDir
	default:
		return KindOther
	}
}

// FileEntry is one listed directory entry. It is consumed as soon as the
// listing is classified and never retained.
type FileEntry struct {
	Path string
	Kind EntryKind
}

// CopyTask is the unit of copy work: one source file and the output root
// its bucket lives under.
type CopyTask struct {
	SrcPath    string
	OutputRoot string
	Bucket     string
}

func newCopyTask(srcPath, outputRoot string, foldCase bool) CopyTask {
	return CopyTask{
		SrcPath:    srcPath,
		OutputRoot: outputRoot,
		Bucket:     ExtensionKey(filepath.Base(srcPath), foldCase),
	}
}

// TargetDir is <output_root>/<bucket>.
func (t CopyTask) TargetDir() string {
	return filepath.Join(t.OutputRoot, t.Bucket)
}

// TargetPath is <output_root>/<bucket>/<original name>.
func (t CopyTask) TargetPath() string {
	return filepath.Join(t.TargetDir(), filepath.Base(t.SrcPath))
}
