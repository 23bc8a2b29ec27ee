package dedup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// ErrCrossDevice is returned for targets on another filesystem than their
// canonical source. Hard links cannot span devices.
var ErrCrossDevice = errors.New("target is on a different device than the source")

// ErrDryRun marks targets left untouched because of DryRun.
var ErrDryRun = errors.New("dry run")

const tmpSuffix = ".fstk-tmp"

// linkResult describes one completed relink.
type linkResult struct {
	// reclaimed is the size of the replaced inode when this was its last link.
	reclaimed int64
}

// relink replaces target with a hard link to source and copies source's
// owner, mode and times onto it. Unless safe is set the target is unlinked
// first, so a failed link leaves it missing. In safe mode the link is made at
// a temporary sibling name and renamed over the target.
func (e *Engine) relink(source string, src *unix.Stat_t, target string, safe bool) (linkResult, error) {
	var tst unix.Stat_t
	if err := unix.Lstat(target, &tst); err != nil {
		return linkResult{}, fmt.Errorf("stat %s: %w", target, err)
	}
	if devOf(&tst) != devOf(src) {
		return linkResult{}, fmt.Errorf("%s: %w", target, ErrCrossDevice)
	}

	var res linkResult
	if tst.Nlink <= 1 {
		res.reclaimed = tst.Size
	}

	if safe {
		if err := e.linkViaTemp(source, target); err != nil {
			return linkResult{}, err
		}
	} else {
		if err := unix.Unlink(target); err != nil {
			return linkResult{}, fmt.Errorf("unlink %s: %w", target, err)
		}
		if err := unix.Linkat(unix.AT_FDCWD, source, unix.AT_FDCWD, target, 0); err != nil {
			return linkResult{}, fmt.Errorf("link %s -> %s: %w", target, source, err)
		}
	}

	if err := copyAttrs(target, src); err != nil {
		return res, err
	}
	return res, nil
}

func (e *Engine) linkViaTemp(source, target string) error {
	tmp := filepath.Join(filepath.Dir(target),
		"."+filepath.Base(target)+"."+uuid.NewString()[:8]+tmpSuffix)
	e.tmps.register(tmp)
	defer e.tmps.deregister(tmp)

	if err := unix.Linkat(unix.AT_FDCWD, source, unix.AT_FDCWD, tmp, 0); err != nil {
		return fmt.Errorf("link %s -> %s: %w", tmp, source, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s -> %s: %w", tmp, target, err)
	}
	return nil
}

// copyAttrs applies the ownership, permission bits and timestamps recorded in
// st to path without following symlinks.
func copyAttrs(path string, st *unix.Stat_t) error {
	if err := unix.Fchownat(unix.AT_FDCWD, path, int(st.Uid), int(st.Gid), unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return fmt.Errorf("chown %s: %w", path, err)
	}
	if uint32(st.Mode)&unix.S_IFMT != unix.S_IFLNK {
		if err := unix.Fchmodat(unix.AT_FDCWD, path, uint32(st.Mode)&0o7777, 0); err != nil {
			return fmt.Errorf("chmod %s: %w", path, err)
		}
	}
	times := []unix.Timespec{
		unix.NsecToTimespec(atimeOf(st).UnixNano()),
		unix.NsecToTimespec(mtimeOf(st).UnixNano()),
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, path, times, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return fmt.Errorf("utimensat %s: %w", path, err)
	}
	return nil
}
