package logtail

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeLog(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dscache.log")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "one\ntwo\nthree\nfour\n")

	result, err := Tail(context.Background(), path, Options{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[0] != "three" || result.Lines[1] != "four" {
		t.Fatalf("Lines = %v, want [three four]", result.Lines)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if result.Offset != info.Size() {
		t.Fatalf("Offset = %d, want file size %d", result.Offset, info.Size())
	}
}

func TestTailFewerLinesThanLimit(t *testing.T) {
	path := writeLog(t, "only\n")

	result, err := Tail(context.Background(), path, Options{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "only" {
		t.Fatalf("Lines = %v, want [only]", result.Lines)
	}
}

func TestTailResumesFromOffset(t *testing.T) {
	path := writeLog(t, "first\n")

	result, err := Tail(context.Background(), path, Options{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := file.WriteString("second\n"); err != nil {
		t.Fatal(err)
	}
	if err := file.Close(); err != nil {
		t.Fatal(err)
	}

	result, err = Tail(context.Background(), path, Options{Offset: result.Offset})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "second" {
		t.Fatalf("Lines = %v, want [second]", result.Lines)
	}
}

func TestTailMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.log")

	result, err := Tail(context.Background(), path, Options{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("result = %+v, want empty with zero offset", result)
	}
}

func TestTailFollowStopsAtDeadline(t *testing.T) {
	path := writeLog(t, "")

	start := time.Now()
	result, err := Tail(context.Background(), path, Options{
		Offset: 0,
		Follow: true,
		Wait:   50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(result.Lines) != 0 {
		t.Fatalf("Lines = %v, want none", result.Lines)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Tail blocked for %v", elapsed)
	}
}

func TestTailFollowHonorsCancellation(t *testing.T) {
	path := writeLog(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Tail(ctx, path, Options{Offset: 0, Follow: true, Wait: time.Minute})
	if err == nil {
		t.Fatal("expected context error from canceled follow")
	}
}
