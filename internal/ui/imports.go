package ui

import "github.com/bamsammich/fstk/internal/event"

// Event is the engine event consumed by presenters.
type Event = event.Event

// Re-export event types for convenience.
const (
	ScanStarted   = event.ScanStarted
	ScanComplete  = event.ScanComplete
	FileHashed    = event.FileHashed
	HashFailed    = event.HashFailed
	Checkpoint    = event.Checkpoint
	BucketPlanned = event.BucketPlanned
	LinkCreated   = event.LinkCreated
	LinkSkipped   = event.LinkSkipped
	LinkFailed    = event.LinkFailed
	DedupComplete = event.DedupComplete
)
