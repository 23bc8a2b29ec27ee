package ui

import (
	"fmt"

	"github.com/bamsammich/fstk/internal/entry"
)

// BucketLine is the report header for a bucket about to be linked:
// its first recorded path, the number of targets and of other paths.
func BucketLine(ev Event) string {
	return fmt.Sprintf("Dedup: %s [1+%d/%d]", entry.Printable(ev.Path), ev.Targets, ev.Others)
}

// TargetLine reports one link target. Skipped and failed targets carry the
// reason.
func TargetLine(ev Event) string {
	path := entry.Printable(ev.Path)
	switch ev.Type {
	case LinkSkipped:
		return fmt.Sprintf(" - %s (skipped: %v)", path, ev.Error)
	case LinkFailed:
		return fmt.Sprintf(" - %s (failed: %v)", path, ev.Error)
	default:
		return " - " + path
	}
}

// reportLine returns the report line for ev, if it has one.
func reportLine(ev Event) (string, bool) {
	switch ev.Type {
	case BucketPlanned:
		return BucketLine(ev), true
	case LinkCreated, LinkSkipped, LinkFailed:
		return TargetLine(ev), true
	}
	return "", false
}

func hashFailedLine(ev Event) string {
	errMsg := "error"
	if ev.Error != nil {
		errMsg = ev.Error.Error()
	}
	return fmt.Sprintf("hash failed: %s  %s", entry.Printable(ev.Path), errMsg)
}
