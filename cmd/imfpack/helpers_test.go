package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imfpack/internal/config"
	"imfpack/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	sourceDir  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("IMFPACK_CREATOR", "")
	t.Setenv("IMFPACK_ISSUER", "")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	sourceDir := filepath.Join(base, "src")
	testsupport.WriteFile(t, filepath.Join(sourceDir, "frame0001.j2c"), 1024)
	testsupport.WriteFile(t, filepath.Join(sourceDir, "audio.wav"), 2048)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
		sourceDir:  sourceDir,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	rendered, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath, "--log-level", "error")
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// buildArgs builds the two fixture sources into a package called name.
func (e *cliTestEnv) buildArgs(name string, extra ...string) []string {
	args := []string{
		"build",
		"--name", name,
		"--image", filepath.Join(e.sourceDir, "*.j2c"),
		"--audio", filepath.Join(e.sourceDir, "audio.wav"),
		"--edit-rate", "24/1",
		"--duration", "48",
		"--seed", "cli-test",
	}
	return append(args, extra...)
}

func decodeJSON(t *testing.T, out string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("decode json %q: %v", out, err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
