package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	DirListed Type = iota + 1
	DirFailed
	FileStarted
	FileCompleted
	FileFailed
	EntrySkipped
	BucketCreated
)

var typeNames = [...]string{
	DirListed:     "DirListed",
	DirFailed:     "DirFailed",
	FileStarted:   "FileStarted",
	FileCompleted: "FileCompleted",
	FileFailed:    "FileFailed",
	EntrySkipped:  "EntrySkipped",
	BucketCreated: "BucketCreated",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // source path
	Target    string // target path (file events) or bucket dir (BucketCreated)
	Bucket    string // extension key
	Size      int64  // bytes copied (FileCompleted) or entry count (DirListed)
	Error     error
}
