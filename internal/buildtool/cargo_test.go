package buildtool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kiln/internal/manifest"
	"kiln/internal/testsupport"
)

// fakeCargo writes a shell script standing in for the cargo binary and
// returns its path.
func fakeCargo(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cargo")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadStandard(t *testing.T) *manifest.Workspace {
	t.Helper()
	ws, err := manifest.Load(testsupport.StandardWorkspace(t))
	if err != nil {
		t.Fatalf("load workspace: %v", err)
	}
	return ws
}

func TestBuildReturnsArtifactPath(t *testing.T) {
	ws := loadStandard(t)
	binary := fakeCargo(t, `mkdir -p target/release
printf binary > target/release/voice
exit 0
`)

	cargo := NewCargo(WithBinary(binary))
	artifact, err := cargo.Build(context.Background(), ws)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := filepath.Join(ws.Root, "target", "release", "voice")
	if artifact != want {
		t.Fatalf("artifact path = %q, want %q", artifact, want)
	}
	if _, err := os.Stat(artifact); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
}

func TestBuildClassifiesCompileError(t *testing.T) {
	ws := loadStandard(t)
	binary := fakeCargo(t, `echo "error[E0425]: cannot find value 'x' in this scope"
exit 101
`)

	_, err := NewCargo(WithBinary(binary)).Build(context.Background(), ws)
	if !errors.Is(err, ErrCompile) {
		t.Fatalf("expected ErrCompile, got %v", err)
	}
	if errors.Is(err, ErrLink) {
		t.Fatal("compile error must not classify as link error")
	}
}

func TestBuildClassifiesLinkError(t *testing.T) {
	ws := loadStandard(t)
	binary := fakeCargo(t, `echo "error: linker 'cc' failed with exit status 1"
exit 101
`)

	_, err := NewCargo(WithBinary(binary)).Build(context.Background(), ws)
	if !errors.Is(err, ErrLink) {
		t.Fatalf("expected ErrLink, got %v", err)
	}
}

func TestBuildDepsTagsDependencyFailure(t *testing.T) {
	ws := loadStandard(t)
	binary := fakeCargo(t, `echo "error: failed to get 'serde' as a dependency"
exit 101
`)

	err := NewCargo(WithBinary(binary)).BuildDeps(context.Background(), ws)
	if !errors.Is(err, ErrDependencyBuild) {
		t.Fatalf("expected ErrDependencyBuild, got %v", err)
	}
}

func TestBuildDepsSucceeds(t *testing.T) {
	ws := loadStandard(t)
	binary := fakeCargo(t, `mkdir -p target/release/deps
printf rlib > target/release/deps/libserde.rlib
exit 0
`)

	if err := NewCargo(WithBinary(binary)).BuildDeps(context.Background(), ws); err != nil {
		t.Fatalf("BuildDeps failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(ws.Root, "target", "release", "deps", "libserde.rlib")); err != nil {
		t.Fatalf("dependency artifact missing: %v", err)
	}
}

func TestRunRespectsJobsAndOffline(t *testing.T) {
	ws := loadStandard(t)
	binary := fakeCargo(t, `echo "$@" > args.txt
exit 0
`)

	cargo := NewCargo(WithBinary(binary), WithJobs(4), WithOffline(true))
	if _, err := cargo.run(context.Background(), ws); err != nil {
		t.Fatal(err)
	}

	args, err := os.ReadFile(filepath.Join(ws.Root, "args.txt"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"--locked", "--jobs 4", "--offline"} {
		if !strings.Contains(string(args), want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
}
