//go:build darwin

package dedup

import (
	"time"

	"golang.org/x/sys/unix"
)

func mtimeOf(st *unix.Stat_t) time.Time {
	return time.Unix(st.Mtim.Sec, st.Mtim.Nsec)
}

func atimeOf(st *unix.Stat_t) time.Time {
	return time.Unix(st.Atim.Sec, st.Atim.Nsec)
}

func devOf(st *unix.Stat_t) uint64 {
	return uint64(st.Dev) //nolint:gosec // G115: device numbers are non-negative
}
