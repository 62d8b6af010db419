package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; stale ledgers must be deleted by the user.
const schemaVersion = 1

// ErrSchemaMismatch indicates the ledger schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("ledger schema version mismatch")

// Outcome classifies how a resolve ended.
type Outcome string

const (
	// OutcomeCopied means this process performed the remote-to-local copy.
	OutcomeCopied Outcome = "copied"
	// OutcomeReused means the file was already cached locally.
	OutcomeReused Outcome = "reused"
	// OutcomeRemote means the resolve fell back to the remote path.
	OutcomeRemote Outcome = "remote"
)

// Event is one recorded resolve.
type Event struct {
	ID            int64
	RemotePath    string
	EffectivePath string
	Outcome       Outcome
	Reason        string
	Bytes         int64
	Duration      time.Duration
	PID           int
	CreatedAt     time.Time
}

// Summary aggregates ledger contents per outcome.
type Summary struct {
	Events int64
	Copied OutcomeStats
	Reused OutcomeStats
	Remote OutcomeStats
}

// OutcomeStats counts events and bytes for one outcome.
type OutcomeStats struct {
	Count int64
	Bytes int64
}

// Ledger persists resolve events to SQLite. A nil *Ledger is valid and makes
// every method a no-op, so callers need no "ledger disabled" branches.
type Ledger struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the ledger database. An empty path returns
// a nil ledger (recording disabled).
func Open(path string) (*Ledger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	ledger := &Ledger{db: db, path: path}
	if err := ledger.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ledger, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Path returns the ledger database location.
func (l *Ledger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Record appends one resolve event.
func (l *Ledger) Record(ctx context.Context, event Event) error {
	if l == nil {
		return nil
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return l.execWithRetry(ctx,
		`INSERT INTO resolve_events (remote_path, effective_path, outcome, reason, bytes, duration_ms, pid, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.RemotePath,
		event.EffectivePath,
		string(event.Outcome),
		event.Reason,
		event.Bytes,
		event.Duration.Milliseconds(),
		event.PID,
		createdAt.Format(time.RFC3339Nano),
	)
}

// Recent returns the latest n events, newest first.
func (l *Ledger) Recent(ctx context.Context, n int) ([]Event, error) {
	if l == nil {
		return nil, nil
	}
	if n <= 0 {
		n = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, remote_path, effective_path, outcome, reason, bytes, duration_ms, pid, created_at
		 FROM resolve_events ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event      Event
			outcome    string
			durationMS int64
			createdAt  string
		)
		if err := rows.Scan(&event.ID, &event.RemotePath, &event.EffectivePath, &outcome,
			&event.Reason, &event.Bytes, &durationMS, &event.PID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.Outcome = Outcome(outcome)
		event.Duration = time.Duration(durationMS) * time.Millisecond
		if parsed, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
			event.CreatedAt = parsed
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Summarize aggregates all recorded events.
func (l *Ledger) Summarize(ctx context.Context) (Summary, error) {
	var summary Summary
	if l == nil {
		return summary, nil
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT outcome, COUNT(1), COALESCE(SUM(bytes), 0) FROM resolve_events GROUP BY outcome`)
	if err != nil {
		return summary, fmt.Errorf("summarize events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			outcome string
			stats   OutcomeStats
		)
		if err := rows.Scan(&outcome, &stats.Count, &stats.Bytes); err != nil {
			return summary, fmt.Errorf("scan summary row: %w", err)
		}
		summary.Events += stats.Count
		switch Outcome(outcome) {
		case OutcomeCopied:
			summary.Copied = stats
		case OutcomeReused:
			summary.Reused = stats
		case OutcomeRemote:
			summary.Remote = stats
		}
	}
	return summary, rows.Err()
}

func (l *Ledger) initSchema(ctx context.Context) error {
	var tableExists int
	err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if _, err := l.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create ledger schema: %w", err)
		}
		return nil
	}

	var version int
	if err := l.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read ledger schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, l.path)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (l *Ledger) execWithRetry(ctx context.Context, query string, args ...any) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		_, lastErr = l.db.ExecContext(ctx, query, args...)
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
