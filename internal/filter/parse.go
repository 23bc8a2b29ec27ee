package filter

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadFile reads filter rules from a file and adds them to the filter.
// Lines prefixed "+ " add a name glob and lines prefixed "- " record an
// inert exclusion. "type: file,symlink" adds kinds. Blank lines and lines
// starting with '#' are skipped. Anything else is a name glob.
func (f *Filter) LoadFile(path string) error {
	fd, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open filter file: %w", err)
	}
	defer fd.Close()

	scanner := bufio.NewScanner(fd)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var addErr error
		switch {
		case strings.HasPrefix(line, "type:"):
			addErr = f.AddKinds(strings.TrimPrefix(line, "type:"))
		case strings.HasPrefix(line, "- "):
			addErr = f.AddExclude(strings.TrimSpace(line[2:]))
		case strings.HasPrefix(line, "+ "):
			addErr = f.AddName(strings.TrimSpace(line[2:]))
		default:
			addErr = f.AddName(line)
		}
		if addErr != nil {
			return fmt.Errorf("filter file %s line %d: %w", path, lineNum, addErr)
		}
	}

	return scanner.Err()
}
