package dedup

import (
	"time"

	"golang.org/x/sys/unix"
)

// Plan is the outcome of canonical selection over one bucket.
type Plan struct {
	// First is the first path recorded in the bucket.
	First string
	// Source is the canonical file every target is linked to.
	Source string
	// Targets are existing paths whose inode differs from the canonical one.
	Targets []string
	// Total is the number of paths recorded in the bucket.
	Total int

	source unix.Stat_t
}

// Others is the number of recorded paths besides the first.
func (p Plan) Others() int {
	return max(p.Total-1, 0)
}

// Empty reports whether the plan has nothing to link.
func (p Plan) Empty() bool {
	return len(p.Targets) == 0
}

type inodeKey struct {
	dev uint64
	ino uint64
}

type inodeGroup struct {
	mtime time.Time
	path  string
	stat  unix.Stat_t
	order int
}

// SelectCanonical picks the canonical file among paths holding the same
// content. Paths that no longer exist are dropped. Paths are grouped by
// (device, inode); the group with the oldest modification time is canonical,
// with ties going to the group seen first, and its first path is the link
// source. Every other distinct path on a different inode becomes a target.
func SelectCanonical(paths []string) Plan {
	plan := Plan{Total: len(paths)}
	if len(paths) > 0 {
		plan.First = paths[0]
	}

	groups := make(map[inodeKey]*inodeGroup)
	keys := make(map[string]inodeKey, len(paths))
	for _, p := range paths {
		if _, seen := keys[p]; seen {
			continue
		}
		var st unix.Stat_t
		if err := unix.Lstat(p, &st); err != nil {
			continue
		}
		k := inodeKey{dev: devOf(&st), ino: st.Ino}
		keys[p] = k
		m := mtimeOf(&st)
		if g, ok := groups[k]; ok {
			if m.Before(g.mtime) {
				g.mtime = m
			}
			continue
		}
		groups[k] = &inodeGroup{mtime: m, path: p, stat: st, order: len(groups)}
	}
	if len(groups) == 0 {
		return plan
	}

	var canonical *inodeGroup
	var canonicalKey inodeKey
	for k, g := range groups {
		if canonical == nil || g.mtime.Before(canonical.mtime) ||
			(g.mtime.Equal(canonical.mtime) && g.order < canonical.order) {
			canonical, canonicalKey = g, k
		}
	}
	plan.Source = canonical.path
	plan.source = canonical.stat

	targeted := make(map[string]bool)
	for _, p := range paths {
		k, ok := keys[p]
		if !ok || k == canonicalKey || targeted[p] {
			continue
		}
		targeted[p] = true
		plan.Targets = append(plan.Targets, p)
	}
	return plan
}
