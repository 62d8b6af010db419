package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dscache/internal/config"
)

func TestLoadDefaultConfigUsesEnvRootsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("DSCACHE_REMOTE_ROOT", "/mnt/shared/data")
	t.Setenv("DSCACHE_LOCAL_ROOT", filepath.Join(tempHome, "scratch"))

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Paths.RemoteRoot != "/mnt/shared/data" {
		t.Fatalf("unexpected remote root: %q", cfg.Paths.RemoteRoot)
	}
	if cfg.Paths.LocalRoot != filepath.Join(tempHome, "scratch") {
		t.Fatalf("unexpected local root: %q", cfg.Paths.LocalRoot)
	}
	if !cfg.CachingEnabled() {
		t.Fatal("expected caching enabled when local root is set")
	}
	wantLock := filepath.Join(tempHome, "scratch", ".dscache.lock")
	if cfg.Paths.LockFile != wantLock {
		t.Fatalf("unexpected lock file: got %q want %q", cfg.Paths.LockFile, wantLock)
	}
	wantLedger := filepath.Join(tempHome, ".local", "share", "dscache", "ledger.db")
	if cfg.Paths.LedgerPath != wantLedger {
		t.Fatalf("unexpected ledger path: got %q want %q", cfg.Paths.LedgerPath, wantLedger)
	}
	if cfg.Cache.CapacityCeiling != 0.90 {
		t.Fatalf("unexpected capacity ceiling: %v", cfg.Cache.CapacityCeiling)
	}
	if !cfg.Cache.VerifyCopies {
		t.Fatal("expected copy verification on by default")
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadExplicitFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := strings.Join([]string{
		"[paths]",
		`remote_root = "` + filepath.Join(dir, "remote") + `"`,
		`local_root = "` + filepath.Join(dir, "local") + `"`,
		`ledger_path = ""`,
		"[cache]",
		"capacity_ceiling = 0.5",
		"verify_copies = false",
		"[logging]",
		`format = "json"`,
		`level = "debug"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: exists=%v path=%q", exists, resolved)
	}
	if cfg.Cache.CapacityCeiling != 0.5 {
		t.Fatalf("unexpected ceiling: %v", cfg.Cache.CapacityCeiling)
	}
	if cfg.Cache.VerifyCopies {
		t.Fatal("expected verification disabled")
	}
	if cfg.Paths.LedgerPath != "" {
		t.Fatalf("expected ledger disabled, got %q", cfg.Paths.LedgerPath)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
}

func TestLoadRejectsMissingRemoteRoot(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("DSCACHE_REMOTE_ROOT", "")
	t.Setenv("DSCACHE_LOCAL_ROOT", "")

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected error when remote root is unset")
	}
	if !strings.Contains(err.Error(), "remote_root") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsNestedRoots(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := strings.Join([]string{
		"[paths]",
		`remote_root = "` + filepath.Join(dir, "remote") + `"`,
		`local_root = "` + filepath.Join(dir, "remote", "cache") + `"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for local root nested under remote root")
	}
}

func TestExpandPathResolvesEnvAndTilde(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("DSCACHE_TEST_DIR", "datasets")

	got, err := config.ExpandPath("~/cache/$DSCACHE_TEST_DIR")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	want := filepath.Join(tempHome, "cache", "datasets")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestDisabledCacheConfigValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := strings.Join([]string{
		"[paths]",
		`remote_root = "` + filepath.Join(dir, "remote") + `"`,
		`local_root = ""`,
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.CachingEnabled() {
		t.Fatal("expected caching disabled with empty local root")
	}
	if cfg.Paths.LockFile != "" {
		t.Fatalf("expected no lock file when caching disabled, got %q", cfg.Paths.LockFile)
	}
}
