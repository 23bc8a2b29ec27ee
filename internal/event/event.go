package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	ScanStarted Type = iota + 1
	ScanComplete
	FileHashed
	HashFailed
	Checkpoint
	BucketPlanned
	LinkCreated
	LinkSkipped
	LinkFailed
	DedupComplete
)

var typeNames = [...]string{
	ScanStarted:   "ScanStarted",
	ScanComplete:  "ScanComplete",
	FileHashed:    "FileHashed",
	HashFailed:    "HashFailed",
	Checkpoint:    "Checkpoint",
	BucketPlanned: "BucketPlanned",
	LinkCreated:   "LinkCreated",
	LinkSkipped:   "LinkSkipped",
	LinkFailed:    "LinkFailed",
	DedupComplete: "DedupComplete",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the dedup engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // hashed file, link target, or bucket's first path
	Source    string // canonical file (link events)
	Digest    string // bucket key
	Size      int64  // bytes hashed or reclaimed
	Index     int64  // catalogue index (FileHashed, Checkpoint)
	Targets   int    // paths to relink (BucketPlanned)
	Others    int    // recorded paths besides the first (BucketPlanned)
	Error     error
	WorkerID  int
}
