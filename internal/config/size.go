package config

import (
	"fmt"
	"strconv"
	"strings"
)

var sizeUnits = map[byte]int64{
	'B': 1,
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
	'T': 1 << 40,
}

// ParseSize parses a human-readable size into bytes: a number with an
// optional K, M, G or T suffix (powers of 1024, case-insensitive), which may
// be followed by "B" or "iB". A trailing "/s" is ignored so rates read
// naturally on the command line.
func ParseSize(s string) (int64, error) {
	orig := s
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}
	s = strings.TrimSuffix(strings.TrimSuffix(s, "/S"), "IB")
	if s == "" {
		return 0, fmt.Errorf("invalid size: %q", orig)
	}

	multiplier := int64(1)
	if u, ok := sizeUnits[s[len(s)-1]]; ok {
		multiplier = u
		s = s[:len(s)-1]
		if u == 1 && s != "" {
			// "MB" and friends: the B was a unit marker, look again.
			if u2, ok := sizeUnits[s[len(s)-1]]; ok && u2 > 1 {
				multiplier = u2
				s = s[:len(s)-1]
			}
		}
	}
	if s == "" {
		return 0, fmt.Errorf("invalid size: %q", orig)
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative size: %q", orig)
		}
		return n * multiplier, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid size: %q", orig)
	}
	return int64(f * float64(multiplier)), nil
}
