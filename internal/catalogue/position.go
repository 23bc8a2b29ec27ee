package catalogue

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/renameio"
)

// LoadPosition reads a checkpoint file. A missing path, a missing file and
// a non-numeric file all report no checkpoint.
func LoadPosition(path string) (int64, bool) {
	if path == "" {
		return 0, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	i, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

// SavePosition atomically replaces the checkpoint file with index. An empty
// path disables checkpointing.
func SavePosition(path string, index int64) error {
	if path == "" {
		return nil
	}
	if err := renameio.WriteFile(path, []byte(strconv.FormatInt(index, 10)), 0o644); err != nil {
		return fmt.Errorf("save position %s: %w", path, err)
	}
	return nil
}

// Range restricts which entry indices the Reader dispatches. Entries below
// Start are skipped; the read stops at the first index above End. A negative
// End leaves the range open.
type Range struct {
	Start int64
	End   int64
}

// From returns the open range [start, ∞).
func From(start int64) *Range {
	return &Range{Start: start, End: -1}
}

// ParseRange parses "START:END", "START:" or "START".
func ParseRange(s string) (*Range, error) {
	startStr, endStr, hasEnd := strings.Cut(s, ":")
	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil || start < 0 {
		return nil, fmt.Errorf("invalid range start in %q", s)
	}
	r := From(start)
	if hasEnd && strings.TrimSpace(endStr) != "" {
		end, err := strconv.ParseInt(strings.TrimSpace(endStr), 10, 64)
		if err != nil || end < start {
			return nil, fmt.Errorf("invalid range end in %q", s)
		}
		r.End = end
	}
	return r, nil
}

func (r *Range) String() string {
	if r.End < 0 {
		return fmt.Sprintf("[%d, ∞)", r.Start)
	}
	return fmt.Sprintf("[%d, %d]", r.Start, r.End)
}
