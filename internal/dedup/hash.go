package dedup

import (
	"context"
	"crypto/sha1" //nolint:gosec // G505: SHA-1 is the bucket key format, not a security boundary
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

// HashFile computes the SHA-1 of the regular file at path, returning the
// hex-encoded digest and the number of bytes read. Reads are throttled by
// limiter when it is non-nil. Symlinks and non-regular files are rejected
// rather than followed or blocked on.
func HashFile(ctx context.Context, path string, limiter *rate.Limiter) (string, int64, error) {
	f, err := os.OpenFile(path, os.O_RDONLY|unix.O_NOFOLLOW|unix.O_NONBLOCK, 0)
	if err != nil {
		return "", 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", 0, fmt.Errorf("hash %s: not a regular file", path)
	}

	var r io.Reader = &ctxReader{ctx: ctx, r: f}
	if limiter != nil {
		r = newRateLimitedReader(ctx, r, limiter)
	}

	h := sha1.New() //nolint:gosec // see import
	buf := make([]byte, 32*1024)
	n, err := io.CopyBuffer(h, r, buf)
	if err != nil {
		return "", n, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// ctxReader stops a long read once ctx is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
