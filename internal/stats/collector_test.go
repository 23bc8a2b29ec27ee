package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	const goroutines = 100
	const opsPerGoroutine = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range opsPerGoroutine {
				c.AddFilesHashed(1)
				c.AddBytesHashed(256)
				c.AddHashFailed(1)
				c.AddBucketsSeen(1)
				c.AddBucketsDuplicate(1)
				c.AddLinksCreated(1)
				c.AddLinksSkipped(1)
				c.AddLinksFailed(1)
				c.AddBytesReclaimed(64)
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	expected := int64(goroutines * opsPerGoroutine)
	assert.Equal(t, expected, s.FilesHashed)
	assert.Equal(t, expected*256, s.BytesHashed)
	assert.Equal(t, expected, s.HashFailed)
	assert.Equal(t, expected, s.BucketsSeen)
	assert.Equal(t, expected, s.BucketsDuplicate)
	assert.Equal(t, expected, s.LinksCreated)
	assert.Equal(t, expected, s.LinksSkipped)
	assert.Equal(t, expected, s.LinksFailed)
	assert.Equal(t, expected*64, s.BytesReclaimed)
	assert.Equal(t, 2*expected, s.Errors())
}

func TestSnapshotString(t *testing.T) {
	s := Snapshot{
		FilesHashed:      10,
		BytesHashed:      4096,
		HashFailed:       1,
		BucketsSeen:      7,
		BucketsDuplicate: 2,
		LinksCreated:     3,
		LinksSkipped:     1,
		LinksFailed:      0,
		BytesReclaimed:   2048,
	}
	expected := "hashed=10 bytes=4096 hash_failed=1 buckets=7 duplicates=2 links=3 skipped=1 link_failed=0 reclaimed=2048"
	assert.Equal(t, expected, s.String())
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
		{1073741824, "1.0 GiB"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			require.Equal(t, tt.expected, FormatBytes(tt.input))
		})
	}
}

func TestNewCollector(t *testing.T) {
	c := NewCollector()
	assert.False(t, c.startTime.IsZero())
	assert.InDelta(t, 0, c.Elapsed().Seconds(), 1)
}

func TestTickAndRollingSpeed(t *testing.T) {
	c := NewCollector()

	// Simulate 5 seconds of 1000 bytes/sec.
	for range 5 {
		c.AddBytesHashed(1000)
		c.AddFilesHashed(10)
		c.Tick()
	}

	assert.InDelta(t, 1000.0, c.RollingSpeed(5), 0.01)
	assert.InDelta(t, 10.0, c.RollingFilesPerSec(5), 0.01)
}

func TestRollingSpeedPartialWindow(t *testing.T) {
	c := NewCollector()

	c.AddBytesHashed(500)
	c.Tick()
	c.AddBytesHashed(500)
	c.Tick()

	// Ask for 10 but only have 2.
	assert.InDelta(t, 500.0, c.RollingSpeed(10), 0.01)
}

func TestRollingSpeedNoSamples(t *testing.T) {
	c := NewCollector()
	assert.Equal(t, 0.0, c.RollingSpeed(5))
}

func TestSparklineData(t *testing.T) {
	c := NewCollector()

	for i := range 5 {
		c.AddBytesHashed(int64((i + 1) * 100))
		c.Tick()
	}

	data := c.SparklineData(5)
	require.Len(t, data, 5)
	assert.InDelta(t, 100, data[0], 0.01)
	assert.InDelta(t, 500, data[4], 0.01)
}

func TestSparklineDataNoSamples(t *testing.T) {
	c := NewCollector()
	assert.Nil(t, c.SparklineData(5))
}

func TestRingWraparound(t *testing.T) {
	c := NewCollector()

	for range ringSize + 10 {
		c.AddBytesHashed(100)
		c.Tick()
	}

	assert.Equal(t, ringSize, c.ringCount)
	assert.InDelta(t, 100.0, c.RollingSpeed(ringSize), 0.01)
	assert.Len(t, c.SparklineData(ringSize+5), ringSize)
}

func TestSnapshotIncludesElapsed(t *testing.T) {
	c := NewCollector()
	time.Sleep(10 * time.Millisecond)
	s := c.Snapshot()
	assert.Greater(t, s.Elapsed, time.Duration(0))
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard.AddFilesHashed(1)
		Discard.AddLinksFailed(1)
	})
}
