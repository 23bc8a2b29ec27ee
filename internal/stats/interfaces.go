package stats

// Writer is the write side of a Collector, used by the dedup engine.
type Writer interface {
	AddFilesHashed(n int64)
	AddBytesHashed(n int64)
	AddHashFailed(n int64)
	AddBucketsSeen(n int64)
	AddBucketsDuplicate(n int64)
	AddLinksCreated(n int64)
	AddLinksSkipped(n int64)
	AddLinksFailed(n int64)
	AddBytesReclaimed(n int64)
}

// Reader is the read side of a Collector.
type Reader interface {
	Snapshot() Snapshot
}

// ReadTicker is a Reader that presenters also drive once per second.
type ReadTicker interface {
	Reader
	Tick()
	RollingSpeed(seconds int) float64
	RollingFilesPerSec(seconds int) float64
	SparklineData(n int) []float64
}

// Discard is a Writer that drops every update.
var Discard Writer = discard{}

type discard struct{}

func (discard) AddFilesHashed(int64)      {}
func (discard) AddBytesHashed(int64)      {}
func (discard) AddHashFailed(int64)       {}
func (discard) AddBucketsSeen(int64)      {}
func (discard) AddBucketsDuplicate(int64) {}
func (discard) AddLinksCreated(int64)     {}
func (discard) AddLinksSkipped(int64)     {}
func (discard) AddLinksFailed(int64)      {}
func (discard) AddBytesReclaimed(int64)   {}

var (
	_ Writer     = (*Collector)(nil)
	_ ReadTicker = (*Collector)(nil)
)
