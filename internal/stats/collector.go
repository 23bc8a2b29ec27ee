package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Collector tracks dedup statistics using lock-free atomic counters.
type Collector struct {
	filesHashed      atomic.Int64
	bytesHashed      atomic.Int64
	hashFailed       atomic.Int64
	bucketsSeen      atomic.Int64
	bucketsDuplicate atomic.Int64
	linksCreated     atomic.Int64
	linksSkipped     atomic.Int64
	linksFailed      atomic.Int64
	bytesReclaimed   atomic.Int64
	startTime        time.Time

	// Ring buffer, written only by the presenter's Tick().
	mu          sync.Mutex
	throughput  [ringSize]int64 // bytes hashed per second
	filesPerSec [ringSize]int64
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
	FilesHashed      int64
	BytesHashed      int64
	HashFailed       int64
	BucketsSeen      int64
	BucketsDuplicate int64
	LinksCreated     int64
	LinksSkipped     int64
	LinksFailed      int64
	BytesReclaimed   int64
	Elapsed          time.Duration
}

func (c *Collector) AddFilesHashed(n int64)      { c.filesHashed.Add(n) }
func (c *Collector) AddBytesHashed(n int64)      { c.bytesHashed.Add(n) }
func (c *Collector) AddHashFailed(n int64)       { c.hashFailed.Add(n) }
func (c *Collector) AddBucketsSeen(n int64)      { c.bucketsSeen.Add(n) }
func (c *Collector) AddBucketsDuplicate(n int64) { c.bucketsDuplicate.Add(n) }
func (c *Collector) AddLinksCreated(n int64)     { c.linksCreated.Add(n) }
func (c *Collector) AddLinksSkipped(n int64)     { c.linksSkipped.Add(n) }
func (c *Collector) AddLinksFailed(n int64)      { c.linksFailed.Add(n) }
func (c *Collector) AddBytesReclaimed(n int64)   { c.bytesReclaimed.Add(n) }

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesHashed:      c.filesHashed.Load(),
		BytesHashed:      c.bytesHashed.Load(),
		HashFailed:       c.hashFailed.Load(),
		BucketsSeen:      c.bucketsSeen.Load(),
		BucketsDuplicate: c.bucketsDuplicate.Load(),
		LinksCreated:     c.linksCreated.Load(),
		LinksSkipped:     c.linksSkipped.Load(),
		LinksFailed:      c.linksFailed.Load(),
		BytesReclaimed:   c.bytesReclaimed.Load(),
		Elapsed:          c.Elapsed(),
	}
}

// Tick snapshots byte/file deltas into the ring buffer. Called 1/sec by the presenter.
func (c *Collector) Tick() {
	currentBytes := c.bytesHashed.Load()
	currentFiles := c.filesHashed.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.throughput[c.ringIdx] = currentBytes - c.lastBytes
	c.filesPerSec[c.ringIdx] = currentFiles - c.lastFiles
	c.lastBytes = currentBytes
	c.lastFiles = currentFiles

	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average hashed bytes/sec over the last n seconds of samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingAvg(c.throughput[:], seconds)
}

// RollingFilesPerSec returns average hashed files/sec over the last n seconds.
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

// SparklineData returns the last n hashed bytes/sec samples, oldest first.
func (c *Collector) SparklineData(n int) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := min(n, c.ringCount)
	if count <= 0 {
		return nil
	}
	data := make([]float64, count)
	for i := range count {
		idx := (c.ringIdx - count + i + ringSize) % ringSize
		data[i] = float64(c.throughput[idx])
	}
	return data
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

// Errors returns the number of per-path failures.
func (s Snapshot) Errors() int64 {
	return s.HashFailed + s.LinksFailed
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"hashed=%d bytes=%d hash_failed=%d buckets=%d duplicates=%d links=%d skipped=%d link_failed=%d reclaimed=%d",
		s.FilesHashed, s.BytesHashed, s.HashFailed, s.BucketsSeen, s.BucketsDuplicate,
		s.LinksCreated, s.LinksSkipped, s.LinksFailed, s.BytesReclaimed,
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
