package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.RemoteRoot) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/dscache/config.toml"
		}
		return fmt.Errorf("paths.remote_root is required. Set DSCACHE_REMOTE_ROOT env var or edit %s (create with 'dscache config init')", defaultPath)
	}
	if !c.CachingEnabled() {
		return nil
	}
	if c.Paths.LocalRoot == c.Paths.RemoteRoot {
		return errors.New("paths.local_root must differ from paths.remote_root")
	}
	if isSubPath(c.Paths.RemoteRoot, c.Paths.LocalRoot) {
		return errors.New("paths.local_root must not live under paths.remote_root")
	}
	if isSubPath(c.Paths.LocalRoot, c.Paths.RemoteRoot) {
		return errors.New("paths.remote_root must not live under paths.local_root")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.CapacityCeiling <= 0 || c.Cache.CapacityCeiling > 1 {
		return errors.New("cache.capacity_ceiling must be between 0 and 1")
	}
	return nil
}

func isSubPath(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
