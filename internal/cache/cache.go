package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dscache/internal/config"
	"dscache/internal/fileutil"
	"dscache/internal/ledger"
	"dscache/internal/logging"
	"dscache/internal/readermark"
	"dscache/internal/remotestore"
)

// Lock is the exclusive cache lock capability. Production code passes
// *lockfile.Exclusive; tests substitute an in-memory fake.
type Lock interface {
	Acquire(ctx context.Context) error
	Release() error
}

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, used uint64, err error)

// Resolution is the outcome of resolving one remote path.
type Resolution struct {
	// Path is where the caller should read the file from: the local cached
	// copy, or the original remote path when caching was not possible.
	Path string
	// Cached reports whether Path is a local cached copy.
	Cached bool
	// Marker is the reader marker held on the cached copy; nil unless
	// Cached. The caller owns its release.
	Marker *readermark.Marker
}

// Fallback reasons recorded with remote resolutions.
const (
	reasonDisabled    = "caching disabled"
	reasonNotFound    = "remote file does not exist"
	reasonNotAFile    = "remote path is not a regular file"
	reasonOutsideRoot = "remote path outside remote root"
	reasonNoSpace     = "not enough free space"
)

// Coordinator decides, per remote file, whether to serve a cached local copy
// or fall back to the remote path, performing at most one physical copy per
// file across all racing processes.
type Coordinator struct {
	cfg     *config.Config
	store   remotestore.Store
	lock    Lock
	markers *readermark.Registry
	ledger  *ledger.Ledger
	logger  *slog.Logger
	statfs  statfsFunc
}

// New builds a coordinator from its capabilities. ledger may be nil.
func New(cfg *config.Config, store remotestore.Store, lock Lock, markers *readermark.Registry, lgr *ledger.Ledger, logger *slog.Logger) (*Coordinator, error) {
	if cfg == nil || store == nil || markers == nil {
		return nil, fmt.Errorf("cache: coordinator requires config, store, and marker registry")
	}
	if cfg.CachingEnabled() && lock == nil {
		return nil, fmt.Errorf("cache: coordinator requires a lock when caching is enabled")
	}
	return &Coordinator{
		cfg:     cfg,
		store:   store,
		lock:    lock,
		markers: markers,
		ledger:  lgr,
		logger:  logging.NewComponentLogger(logger, "cache"),
		statfs:  realStatfs,
	}, nil
}

// Resolve returns the path the caller should read remotePath from. Any path
// it returns is fully written; a cached path stays pinned by the returned
// reader marker until the marker is released.
//
// Missing or non-file inputs and insufficient local space degrade to the
// remote path. Filesystem failures propagate.
func (c *Coordinator) Resolve(ctx context.Context, remotePath string) (Resolution, error) {
	start := time.Now()

	if !c.cfg.CachingEnabled() {
		c.logger.DebugContext(ctx, "local cache deactivated, serving remote path",
			logging.String("remote_path", remotePath))
		c.record(ctx, remotePath, remotePath, ledger.OutcomeRemote, reasonDisabled, 0, start)
		return Resolution{Path: remotePath}, nil
	}

	exists, err := c.store.Exists(remotePath)
	if err != nil {
		return Resolution{}, err
	}
	if !exists {
		return c.fallback(ctx, remotePath, reasonNotFound, 0, start), nil
	}
	isFile, err := c.store.IsFile(remotePath)
	if err != nil {
		return Resolution{}, err
	}
	if !isFile {
		return c.fallback(ctx, remotePath, reasonNotAFile, 0, start), nil
	}

	if err := fileutil.EnsureDir(c.cfg.Paths.LocalRoot); err != nil {
		return Resolution{}, fmt.Errorf("ensure local root: %w", err)
	}

	localPath, ok := c.mapLocal(remotePath)
	if !ok {
		return c.fallback(ctx, remotePath, reasonOutsideRoot, 0, start), nil
	}

	size, err := c.store.Size(remotePath)
	if err != nil {
		return Resolution{}, err
	}

	// Cheap pre-check before taking the lock; the authoritative check
	// happens again once the lock is held.
	enough, err := c.hasSpace(size)
	if err != nil {
		return Resolution{}, err
	}
	if !enough {
		return c.fallback(ctx, remotePath, reasonNoSpace, size, start), nil
	}

	if err := fileutil.EnsureDir(filepath.Dir(localPath)); err != nil {
		return Resolution{}, fmt.Errorf("ensure cache directory: %w", err)
	}

	if err := c.lock.Acquire(ctx); err != nil {
		return Resolution{}, err
	}

	outcome := ledger.OutcomeReused
	_, statErr := os.Stat(localPath)
	switch {
	case statErr == nil:
		// Another process materialized the file while we weren't looking.
		c.logger.DebugContext(ctx, "file previously cached",
			logging.String("remote_path", remotePath),
			logging.String("local_path", localPath))
	case errors.Is(statErr, fs.ErrNotExist):
		// Conditions may have changed while waiting for the lock.
		enough, err := c.hasSpace(size)
		if err != nil {
			return Resolution{}, c.releaseAfter(err)
		}
		if !enough {
			if err := c.lock.Release(); err != nil {
				return Resolution{}, err
			}
			return c.fallback(ctx, remotePath, reasonNoSpace, size, start), nil
		}
		if err := c.store.Copy(ctx, remotePath, localPath); err != nil {
			return Resolution{}, c.releaseAfter(fmt.Errorf("cache copy: %w", err))
		}
		outcome = ledger.OutcomeCopied
		c.logger.InfoContext(ctx, "file locally cached",
			logging.String("remote_path", remotePath),
			logging.String("local_path", localPath),
			logging.Int64("bytes", size))
	default:
		return Resolution{}, c.releaseAfter(fmt.Errorf("stat cached file: %w", statErr))
	}

	// The marker must exist before the lock drops so no cleanup pass can
	// observe the file unreferenced in between.
	marker, err := c.markers.Acquire(localPath)
	if err != nil {
		return Resolution{}, c.releaseAfter(err)
	}
	if err := c.lock.Release(); err != nil {
		_ = marker.Release()
		return Resolution{}, err
	}

	c.record(ctx, remotePath, localPath, outcome, "", size, start)
	return Resolution{Path: localPath, Cached: true, Marker: marker}, nil
}

// LocalPath maps a remote path to its cached location without resolving. The
// second result is false when the path falls outside the remote root or
// caching is disabled.
func (c *Coordinator) LocalPath(remotePath string) (string, bool) {
	if !c.cfg.CachingEnabled() {
		return "", false
	}
	return c.mapLocal(remotePath)
}

// DiskUsage reports total and used bytes of the filesystem holding the local
// root, plus the configured ceiling in bytes.
func (c *Coordinator) DiskUsage() (total, used, ceiling uint64, err error) {
	if !c.cfg.CachingEnabled() {
		return 0, 0, 0, fmt.Errorf("cache: caching disabled")
	}
	total, used, err = c.statfs(c.cfg.Paths.LocalRoot)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("filesystem stats for %q: %w", c.cfg.Paths.LocalRoot, err)
	}
	ceiling = uint64(float64(total) * c.cfg.Cache.CapacityCeiling)
	return total, used, ceiling, nil
}

func (c *Coordinator) mapLocal(remotePath string) (string, bool) {
	rel, err := filepath.Rel(c.cfg.Paths.RemoteRoot, remotePath)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.Join(c.cfg.Paths.LocalRoot, rel), true
}

func (c *Coordinator) hasSpace(size int64) (bool, error) {
	total, used, err := c.statfs(c.cfg.Paths.LocalRoot)
	if err != nil {
		return false, fmt.Errorf("filesystem stats for %q: %w", c.cfg.Paths.LocalRoot, err)
	}
	need := float64(used) + float64(size)
	return need < float64(total)*c.cfg.Cache.CapacityCeiling, nil
}

func (c *Coordinator) fallback(ctx context.Context, remotePath, reason string, size int64, start time.Time) Resolution {
	c.logger.DebugContext(ctx, "serving remote path",
		logging.String("remote_path", remotePath),
		logging.String("reason", reason))
	c.record(ctx, remotePath, remotePath, ledger.OutcomeRemote, reason, size, start)
	return Resolution{Path: remotePath}
}

func (c *Coordinator) record(ctx context.Context, remotePath, effectivePath string, outcome ledger.Outcome, reason string, size int64, start time.Time) {
	err := c.ledger.Record(ctx, ledger.Event{
		RemotePath:    remotePath,
		EffectivePath: effectivePath,
		Outcome:       outcome,
		Reason:        reason,
		Bytes:         size,
		Duration:      time.Since(start),
		PID:           os.Getpid(),
	})
	if err != nil {
		c.logger.WarnContext(ctx, "ledger record failed", logging.Error(err))
	}
}

// releaseAfter releases the lock while an error unwinds. The original error
// wins; a release failure is attached when the unlock itself breaks.
func (c *Coordinator) releaseAfter(err error) error {
	if releaseErr := c.lock.Release(); releaseErr != nil {
		return fmt.Errorf("%w (also: %v)", err, releaseErr)
	}
	return err
}

