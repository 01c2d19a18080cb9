package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"kiln/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
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
}

func TestCheckBinary_Found(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "fake-cargo")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)

	result := CheckBinary("Cargo", "fake-cargo")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result.Detail != bin {
		t.Fatalf("expected resolved path %s, got %s", bin, result.Detail)
	}
}

func TestCheckBinary_Missing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	result := CheckBinary("Cargo", "definitely-not-cargo")
	if result.Passed {
		t.Fatal("expected failure for missing binary")
	}
}

func TestCheckBinary_Unconfigured(t *testing.T) {
	result := CheckBinary("Docker", "  ")
	if result.Passed {
		t.Fatal("expected failure for unconfigured command")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	result := CheckFreeSpace("test", t.TempDir())
	if result.Detail == "" {
		t.Fatal("expected detail with free space figure")
	}
}

func TestCheckWorkspace(t *testing.T) {
	root := t.TempDir()
	result := CheckWorkspace("test", root)
	if result.Passed {
		t.Fatal("expected failure for workspace without manifests")
	}

	for _, name := range []string{"Cargo.toml", "Cargo.lock"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte(""), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	result = CheckWorkspace("test", root)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_IncludesPipelineWorkspaces(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Pipelines = []config.Pipeline{{Name: "voice", WorkspaceRoot: t.TempDir()}}

	results := RunAll(&cfg)
	found := false
	for _, r := range results {
		if r.Name == "Workspace (voice)" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a workspace check per pipeline")
	}
}
