package ui

import "github.com/bamsammich/extsort/internal/event"

// Event is the engine event consumed by presenters.
type Event = event.Event

// Re-export event types for convenience.
const (
	DirListed     = event.DirListed
	DirFailed     = event.DirFailed
	FileStarted   = event.FileStarted
	FileCompleted = event.FileCompleted
	FileFailed    = event.FileFailed
	EntrySkipped  = event.EntrySkipped
	BucketCreated = event.BucketCreated
)
