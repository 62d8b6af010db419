package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"dscache/internal/fileutil"
	"dscache/internal/logging"
	"dscache/internal/readermark"
)

// SweepOptions controls a cleanup pass over the local cache tree.
type SweepOptions struct {
	// DryRun reports what would be removed without touching anything.
	DryRun bool
	// PruneStaleMarkers drops reader markers owned by dead processes
	// before deciding whether a file is still in use.
	PruneStaleMarkers bool
}

// SweepResult describes one cleanup pass.
type SweepResult struct {
	Removed       []string
	Kept          []string
	Partials      []string
	StaleMarkers  []string
	BytesFreed    int64
	BytesRetained int64
}

// Sweep removes cached files no reader marker pins, along with abandoned
// copy temp files. It holds the exclusive lock for the whole pass so no
// resolve can slip a copy-then-mark in between its checks.
func (c *Coordinator) Sweep(ctx context.Context, opts SweepOptions) (SweepResult, error) {
	var result SweepResult
	if !c.cfg.CachingEnabled() {
		return result, fmt.Errorf("cache: caching disabled")
	}

	if err := c.lock.Acquire(ctx); err != nil {
		return result, err
	}
	defer func() { _ = c.lock.Release() }()

	entries, err := c.listFiles()
	if err != nil {
		return result, err
	}

	for _, path := range entries {
		info, err := os.Lstat(path)
		if err != nil {
			if errorsNotExist(err) {
				continue
			}
			return result, fmt.Errorf("inspect %q: %w", path, err)
		}

		if fileutil.IsPartial(path) {
			result.Partials = append(result.Partials, path)
			if !opts.DryRun {
				if err := os.Remove(path); err != nil && !errorsNotExist(err) {
					return result, fmt.Errorf("remove partial %q: %w", path, err)
				}
			}
			result.BytesFreed += info.Size()
			continue
		}

		if opts.PruneStaleMarkers {
			pruned, err := readermark.PruneStale(path)
			if err != nil {
				return result, err
			}
			result.StaleMarkers = append(result.StaleMarkers, pruned...)
		}

		held, err := readermark.IsHeld(path)
		if err != nil {
			return result, err
		}
		if held {
			result.Kept = append(result.Kept, path)
			result.BytesRetained += info.Size()
			continue
		}

		result.Removed = append(result.Removed, path)
		result.BytesFreed += info.Size()
		if !opts.DryRun {
			if err := os.Remove(path); err != nil && !errorsNotExist(err) {
				return result, fmt.Errorf("remove %q: %w", path, err)
			}
		}
	}

	c.logger.InfoContext(ctx, "cache sweep finished",
		logging.Int("removed", len(result.Removed)),
		logging.Int("kept", len(result.Kept)),
		logging.Int("partials", len(result.Partials)),
		logging.Int64("bytes_freed", result.BytesFreed),
		logging.Bool("dry_run", opts.DryRun))
	return result, nil
}

// Entry describes one cached file for listing purposes.
type Entry struct {
	LocalPath  string
	RemotePath string
	Size       int64
	ModTime    time.Time
	Readers    int
}

// List returns the cached files under the local root. It takes no lock; the
// view is advisory, like any directory listing.
func (c *Coordinator) List() ([]Entry, error) {
	if !c.cfg.CachingEnabled() {
		return nil, fmt.Errorf("cache: caching disabled")
	}

	paths, err := c.listFiles()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(paths))
	for _, path := range paths {
		if fileutil.IsPartial(path) {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil {
			if errorsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("inspect %q: %w", path, err)
		}
		holders, err := readermark.Holders(path)
		if err != nil {
			return nil, err
		}
		rel, relErr := filepath.Rel(c.cfg.Paths.LocalRoot, path)
		remote := ""
		if relErr == nil {
			remote = filepath.Join(c.cfg.Paths.RemoteRoot, rel)
		}
		entries = append(entries, Entry{
			LocalPath:  path,
			RemotePath: remote,
			Size:       info.Size(),
			ModTime:    info.ModTime(),
			Readers:    len(holders),
		})
	}
	return entries, nil
}

// listFiles walks the local root collecting regular files, skipping the lock
// file and reader marker directories.
func (c *Coordinator) listFiles() ([]string, error) {
	var files []string
	root := c.cfg.Paths.LocalRoot
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errorsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if readermark.IsMarkerName(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if c.isInfraFile(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk local root: %w", err)
	}
	return files, nil
}

// isInfraFile reports whether path is one of dscache's own support files
// rather than a cached copy: the lock file, or the ledger database and its
// sqlite WAL/SHM siblings when the ledger lives under the local root.
func (c *Coordinator) isInfraFile(path string) bool {
	if path == c.cfg.Paths.LockFile {
		return true
	}
	ledgerPath := c.cfg.Paths.LedgerPath
	if ledgerPath == "" {
		return false
	}
	return path == ledgerPath || path == ledgerPath+"-wal" || path == ledgerPath+"-shm"
}

func errorsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
