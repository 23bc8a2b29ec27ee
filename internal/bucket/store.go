package bucket

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
)

const (
	// DigestLen is the length of a hex-encoded SHA-1 digest.
	DigestLen = 40
	// ListSuffix marks bucket list-files.
	ListSuffix = ".lst"

	groupSize = 5
	maxDepth  = 10
)

// ErrBadDigest is returned for keys that are not 40 lowercase hex digits.
var ErrBadDigest = errors.New("digest must be 40 lowercase hex characters")

// Store is a directory of bucket list-files keyed by content digest. The
// digest is split into groups of five characters, each group one directory
// level, and the last group names the list-file:
//
//	<dir>/da39a/3ee5e/6b4b0/d3255/bfef9/56018/90afd/80709.lst
//
// A list-file holds one path per line and is only ever appended to.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open creates dir if needed and returns a store rooted there.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create bucket store %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store root.
func (s *Store) Dir() string {
	return s.dir
}

// RelPath returns the list-file path for digest relative to a store root.
func RelPath(digest string) (string, error) {
	if !validDigest(digest) {
		return "", fmt.Errorf("%q: %w", digest, ErrBadDigest)
	}
	groups := make([]string, 0, DigestLen/groupSize)
	for o := 0; o < DigestLen; o += groupSize {
		groups = append(groups, digest[o:o+groupSize])
	}
	return filepath.Join(groups...) + ListSuffix, nil
}

// Path returns the absolute list-file path for digest.
func (s *Store) Path(digest string) (string, error) {
	rel, err := RelPath(digest)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, rel), nil
}

// Append records path in the bucket for digest. Appends are serialized so
// concurrent hashers never interleave lines.
func (s *Store) Append(digest, path string) error {
	if strings.ContainsRune(path, '\n') {
		return fmt.Errorf("bucket append %q: path contains a newline", path)
	}
	listPath, err := s.Path(digest)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(listPath), 0o755); err != nil {
		return fmt.Errorf("create bucket dir: %w", err)
	}
	f, err := os.OpenFile(listPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open bucket %s: %w", listPath, err)
	}
	if _, err := f.WriteString(path + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("append bucket %s: %w", listPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close bucket %s: %w", listPath, err)
	}
	return nil
}

// Lists returns every list-file in the store, sorted.
func (s *Store) Lists(ctx context.Context) ([]string, error) {
	var (
		mu    sync.Mutex
		lists []string
	)

	conf := &fastwalk.Config{Follow: false}
	err := fastwalk.Walk(conf, s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if depth(s.dir, path) > maxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && strings.HasSuffix(path, ListSuffix) {
			mu.Lock()
			lists = append(lists, path)
			mu.Unlock()
		}
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list buckets in %s: %w", s.dir, err)
	}

	slices.Sort(lists)
	return lists, nil
}

// Digest recovers the digest from a list-file path inside the store.
func (s *Store) Digest(listPath string) (string, error) {
	rel, err := filepath.Rel(s.dir, listPath)
	if err != nil {
		return "", fmt.Errorf("bucket digest for %s: %w", listPath, err)
	}
	digest := strings.ReplaceAll(strings.TrimSuffix(rel, ListSuffix), string(filepath.Separator), "")
	if !validDigest(digest) {
		return "", fmt.Errorf("%s: %w", listPath, ErrBadDigest)
	}
	return digest, nil
}

// ReadList returns the paths recorded in a list-file. A missing file is an
// empty bucket.
func ReadList(listPath string) ([]string, error) {
	f, err := os.Open(listPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", listPath, err)
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if p := scanner.Text(); p != "" {
			paths = append(paths, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read bucket %s: %w", listPath, err)
	}
	return paths, nil
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

func validDigest(d string) bool {
	if len(d) != DigestLen {
		return false
	}
	for i := range len(d) {
		c := d[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
