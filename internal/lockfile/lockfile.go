package lockfile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"dscache/internal/fileutil"
)

const defaultRetryDelay = 250 * time.Millisecond

// Exclusive is the single cache-wide mutual exclusion lock gating copy
// decisions. It is backed by flock(2), so the kernel releases it when a
// holder dies; a crashed copier never wedges the cache.
type Exclusive struct {
	lock       *flock.Flock
	retryDelay time.Duration
}

// NewExclusive builds the lock for the given lock file path. retryDelay
// controls how often a blocked Acquire re-polls; zero uses a default.
func NewExclusive(path string, retryDelay time.Duration) *Exclusive {
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	return &Exclusive{
		lock:       flock.New(path),
		retryDelay: retryDelay,
	}
}

// Path returns the lock file location.
func (e *Exclusive) Path() string {
	return e.lock.Path()
}

// Acquire blocks until the lock is held or ctx is done.
func (e *Exclusive) Acquire(ctx context.Context) error {
	if err := fileutil.EnsureDir(filepath.Dir(e.lock.Path())); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}
	ok, err := e.lock.TryLockContext(ctx, e.retryDelay)
	if err != nil {
		return fmt.Errorf("acquire cache lock %q: %w", e.lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("acquire cache lock %q: not acquired", e.lock.Path())
	}
	return nil
}

// Release drops the lock. It is only valid after a successful Acquire.
func (e *Exclusive) Release() error {
	if !e.lock.Locked() {
		return errors.New("release cache lock: not held")
	}
	if err := e.lock.Unlock(); err != nil {
		return fmt.Errorf("release cache lock %q: %w", e.lock.Path(), err)
	}
	return nil
}
