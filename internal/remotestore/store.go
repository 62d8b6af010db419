package remotestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"dscache/internal/fileutil"
)

// Store is the narrow view of the shared remote storage the cache needs:
// existence and size queries plus a blocking byte copy.
type Store interface {
	Exists(path string) (bool, error)
	IsFile(path string) (bool, error)
	Size(path string) (int64, error)
	Copy(ctx context.Context, src, dst string) error
}

// FSStore implements Store over a POSIX mount of the shared storage.
type FSStore struct {
	// Verify enables sha256 verification of every copy.
	Verify bool
}

// NewFSStore returns a filesystem-backed store.
func NewFSStore(verify bool) *FSStore {
	return &FSStore{Verify: verify}
}

func (s *FSStore) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %q: %w", path, err)
}

func (s *FSStore) IsFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %q: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}

func (s *FSStore) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %q: %w", path, err)
	}
	return info.Size(), nil
}

// Copy streams src into dst, publishing dst atomically. The cached copy keeps
// the source file's permission bits.
func (s *FSStore) Copy(ctx context.Context, src, dst string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source %q: %w", src, err)
	}
	mode := info.Mode().Perm()

	if s.Verify {
		return fileutil.CopyFileVerified(src, dst, mode)
	}
	return fileutil.CopyFile(src, dst, mode)
}
