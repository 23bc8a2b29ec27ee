package ui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/fstk/internal/event"
)

func TestBucketLine(t *testing.T) {
	ev := Event{Type: event.BucketPlanned, Path: "/data/a.txt", Targets: 1, Others: 2}
	assert.Equal(t, "Dedup: /data/a.txt [1+1/2]", BucketLine(ev))
}

func TestBucketLineSanitizesPath(t *testing.T) {
	ev := Event{Type: event.BucketPlanned, Path: "/data/\xff.txt", Targets: 1, Others: 1}
	assert.Equal(t, "Dedup: /data/�.txt [1+1/1]", BucketLine(ev))
}

func TestTargetLine(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{"created", Event{Type: event.LinkCreated, Path: "/b"}, " - /b"},
		{"skipped", Event{Type: event.LinkSkipped, Path: "/b", Error: errors.New("dry run")}, " - /b (skipped: dry run)"},
		{"failed", Event{Type: event.LinkFailed, Path: "/b", Error: errors.New("boom")}, " - /b (failed: boom)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TargetLine(tt.ev))
		})
	}
}

func TestReportLineIgnoresProgress(t *testing.T) {
	_, ok := reportLine(Event{Type: event.FileHashed})
	assert.False(t, ok)
	_, ok = reportLine(Event{Type: event.Checkpoint})
	assert.False(t, ok)
}
