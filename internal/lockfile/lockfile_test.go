package lockfile

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks", "cache.lock")
	lock := NewExclusive(path, 10*time.Millisecond)

	if err := lock.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
}

func TestReleaseWithoutAcquireFails(t *testing.T) {
	lock := NewExclusive(filepath.Join(t.TempDir(), "cache.lock"), 0)
	if err := lock.Release(); err == nil {
		t.Fatal("expected error releasing unheld lock")
	}
}

func TestAcquireBlocksWhileHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.lock")

	holder := NewExclusive(path, 5*time.Millisecond)
	if err := holder.Acquire(context.Background()); err != nil {
		t.Fatalf("holder Acquire: %v", err)
	}

	waiter := NewExclusive(path, 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := waiter.Acquire(ctx); err == nil {
		t.Fatal("expected waiter to time out while lock is held")
	}

	if err := holder.Release(); err != nil {
		t.Fatalf("holder Release: %v", err)
	}

	if err := waiter.Acquire(context.Background()); err != nil {
		t.Fatalf("waiter Acquire after release: %v", err)
	}
	if err := waiter.Release(); err != nil {
		t.Fatalf("waiter Release: %v", err)
	}
}

func TestAcquireHandsOffToWaiter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.lock")

	holder := NewExclusive(path, 5*time.Millisecond)
	if err := holder.Acquire(context.Background()); err != nil {
		t.Fatalf("holder Acquire: %v", err)
	}

	acquired := make(chan error, 1)
	waiter := NewExclusive(path, 5*time.Millisecond)
	go func() {
		acquired <- waiter.Acquire(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	if err := holder.Release(); err != nil {
		t.Fatalf("holder Release: %v", err)
	}

	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("waiter Acquire: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never acquired the lock")
	}
	if err := waiter.Release(); err != nil {
		t.Fatalf("waiter Release: %v", err)
	}
}
