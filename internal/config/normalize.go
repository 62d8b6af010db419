package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCache()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error

	if strings.TrimSpace(c.Paths.RemoteRoot) == "" {
		if value, ok := os.LookupEnv("DSCACHE_REMOTE_ROOT"); ok {
			c.Paths.RemoteRoot = strings.TrimSpace(value)
		}
	}
	if c.Paths.RemoteRoot, err = ExpandPath(c.Paths.RemoteRoot); err != nil {
		return fmt.Errorf("paths.remote_root: %w", err)
	}

	if strings.TrimSpace(c.Paths.LocalRoot) == "" {
		if value, ok := os.LookupEnv("DSCACHE_LOCAL_ROOT"); ok {
			c.Paths.LocalRoot = strings.TrimSpace(value)
		}
	}
	if c.Paths.LocalRoot, err = ExpandPath(c.Paths.LocalRoot); err != nil {
		return fmt.Errorf("paths.local_root: %w", err)
	}

	if strings.TrimSpace(c.Paths.LockFile) == "" && c.CachingEnabled() {
		c.Paths.LockFile = filepath.Join(c.Paths.LocalRoot, defaultLockFileName)
	}
	if c.Paths.LockFile, err = ExpandPath(c.Paths.LockFile); err != nil {
		return fmt.Errorf("paths.lock_file: %w", err)
	}

	if c.Paths.LedgerPath, err = ExpandPath(c.Paths.LedgerPath); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCache() {
	if c.Cache.CapacityCeiling <= 0 {
		c.Cache.CapacityCeiling = defaultCapacityCeiling
	}
	if c.Cache.LockRetryMillis <= 0 {
		c.Cache.LockRetryMillis = defaultLockRetryMillis
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
