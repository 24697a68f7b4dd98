package preflight

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imfpack/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", "/nonexistent/path/that/does/not/exist")
	if result.Passed {
		t.Fatal("expected failure for nonexistent path")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
	if !strings.Contains(result.Detail, "is not a directory") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckCreatableDirectory(t *testing.T) {
	base := t.TempDir()
	result := CheckCreatableDirectory("out", filepath.Join(base, "a", "b"))
	if !result.Passed {
		t.Fatalf("expected pass for creatable dir, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "will be created under "+base) {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if r := CheckFreeSpace("space", dir, 1); !r.Passed {
		t.Fatalf("expected one byte to fit, got: %s", r.Detail)
	}
	if r := CheckFreeSpace("space", filepath.Join(dir, "missing"), math.MaxInt64); r.Passed {
		t.Fatal("expected failure for an impossible requirement")
	}
}

func TestCheckDigest(t *testing.T) {
	if r := CheckDigest(); !r.Passed || r.Detail != "SHA-1" {
		t.Fatalf("unexpected digest check %+v", r)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(nil, "", 0); results != nil {
		t.Fatalf("expected nil results for nil config, got %v", results)
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results := RunAll(cfg, cfg.Paths.OutputDir, 4096)
	if len(results) != 4 {
		t.Fatalf("expected 4 checks, got %d: %+v", len(results), results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures %+v", failed)
	}

	results = RunAll(cfg, cfg.Paths.OutputDir, 0)
	if len(results) != 3 {
		t.Fatalf("expected free space check to be skipped, got %+v", results)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		512:     "512 B",
		2048:    "2.0 KiB",
		5 << 20: "5.0 MiB",
		3 << 30: "3.0 GiB",
	}
	for in, want := range tests {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
