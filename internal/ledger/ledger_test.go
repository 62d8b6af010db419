package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestOpenEmptyPathDisablesLedger(t *testing.T) {
	l, err := Open("")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if l != nil {
		t.Fatal("expected nil ledger for empty path")
	}

	// A nil ledger is inert but safe.
	ctx := context.Background()
	if err := l.Record(ctx, Event{RemotePath: "/r/a"}); err != nil {
		t.Fatalf("nil Record: %v", err)
	}
	if events, err := l.Recent(ctx, 5); err != nil || events != nil {
		t.Fatalf("nil Recent: %v, %v", events, err)
	}
	if _, err := l.Summarize(ctx); err != nil {
		t.Fatalf("nil Summarize: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}

func TestRecordAndRecent(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	events := []Event{
		{RemotePath: "/r/a.bin", EffectivePath: "/l/a.bin", Outcome: OutcomeCopied, Bytes: 1024, Duration: 50 * time.Millisecond, PID: os.Getpid()},
		{RemotePath: "/r/a.bin", EffectivePath: "/l/a.bin", Outcome: OutcomeReused, Bytes: 1024, PID: os.Getpid()},
		{RemotePath: "/r/b.bin", EffectivePath: "/r/b.bin", Outcome: OutcomeRemote, Reason: "insufficient space", PID: os.Getpid()},
	}
	for _, event := range events {
		if err := l.Record(ctx, event); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	// Newest first.
	if got[0].Outcome != OutcomeRemote || got[0].Reason != "insufficient space" {
		t.Fatalf("unexpected newest event: %+v", got[0])
	}
	if got[2].Outcome != OutcomeCopied || got[2].Duration != 50*time.Millisecond {
		t.Fatalf("unexpected oldest event: %+v", got[2])
	}
	if got[0].CreatedAt.IsZero() {
		t.Fatal("expected created_at to round-trip")
	}
}

func TestSummarize(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Record(ctx, Event{RemotePath: "/r/a", EffectivePath: "/l/a", Outcome: OutcomeCopied, Bytes: 100}); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.Record(ctx, Event{RemotePath: "/r/a", EffectivePath: "/l/a", Outcome: OutcomeReused, Bytes: 100}); err != nil {
		t.Fatal(err)
	}

	summary, err := l.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Events != 3 {
		t.Fatalf("expected 3 events, got %d", summary.Events)
	}
	if summary.Copied.Count != 2 || summary.Copied.Bytes != 200 {
		t.Fatalf("unexpected copied stats: %+v", summary.Copied)
	}
	if summary.Reused.Count != 1 {
		t.Fatalf("unexpected reused stats: %+v", summary.Reused)
	}
	if summary.Remote.Count != 0 {
		t.Fatalf("unexpected remote stats: %+v", summary.Remote)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path); err == nil {
		t.Fatal("expected schema mismatch error")
	}
}
