package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	remoteRoot string
	localRoot  string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	env := &cliTestEnv{
		baseDir:    base,
		remoteRoot: filepath.Join(base, "remote"),
		localRoot:  filepath.Join(base, "local"),
		configPath: filepath.Join(base, "config.toml"),
	}
	if err := os.MkdirAll(env.remoteRoot, 0o755); err != nil {
		t.Fatal(err)
	}

	writeTestConfig(t, env.configPath, map[string]string{
		"remote_root": env.remoteRoot,
		"local_root":  env.localRoot,
		"ledger_path": filepath.Join(base, "ledger.db"),
		"log_dir":     filepath.Join(base, "logs"),
	})
	return env
}

func writeTestConfig(t *testing.T, path string, paths map[string]string) {
	t.Helper()
	lines := []string{"[paths]"}
	for key, value := range paths {
		lines = append(lines, key+` = "`+value+`"`)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (e *cliTestEnv) writeRemote(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(e.remoteRoot, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd, cctx := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	cctx.shutdown()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
