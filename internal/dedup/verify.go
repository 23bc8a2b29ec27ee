package dedup

import (
	"context"
	"errors"
	"fmt"
)

// ErrStale marks a bucket path whose contents no longer hash to the bucket
// digest. Every path is re-hashed before it is linked or unlinked.
var ErrStale = errors.New("contents changed since scan")

// verify re-hashes path and checks it still belongs to the digest's bucket.
// Context cancellation is returned as is; any other failure is ErrStale.
func (e *Engine) verify(ctx context.Context, path, digest string) error {
	got, _, err := HashFile(ctx, path, e.limiter)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s: %w: %w", path, ErrStale, err)
	}
	if got != digest {
		return fmt.Errorf("%s: %w", path, ErrStale)
	}
	return nil
}
