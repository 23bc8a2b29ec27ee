package ui

import (
	"fmt"

	"github.com/bamsammich/fstk/internal/stats"
)

// CompletionSummary builds a final summary line from a snapshot.
// Format: done ✓  hashed 48,917  size 2.1 GiB  avg 641 MB/s  linked 1,204  reclaimed 3.0 GiB  time 3m 17s  errors 0
func CompletionSummary(snap stats.Snapshot) string {
	avgSpeed := 0.0
	if snap.Elapsed.Seconds() > 0 {
		avgSpeed = float64(snap.BytesHashed) / snap.Elapsed.Seconds()
	}

	icon := "✓"
	if snap.Errors() > 0 {
		icon = "✗"
	}

	base := fmt.Sprintf("done %s  hashed %s  size %s  avg %s  linked %s  reclaimed %s  time %s",
		icon,
		FormatCount(snap.FilesHashed),
		FormatBytes(snap.BytesHashed),
		FormatRate(avgSpeed),
		FormatCount(snap.LinksCreated),
		FormatBytes(snap.BytesReclaimed),
		FormatDuration(snap.Elapsed),
	)

	if snap.LinksSkipped > 0 {
		base += fmt.Sprintf("  skipped %s", FormatCount(snap.LinksSkipped))
	}

	return base + fmt.Sprintf("  errors %d", snap.Errors())
}
