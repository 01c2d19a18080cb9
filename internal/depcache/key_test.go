package depcache_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kiln/internal/depcache"
	"kiln/internal/manifest"
	"kiln/internal/testsupport"
)

func computeKey(t *testing.T, root string) depcache.Key {
	t.Helper()
	ws, err := manifest.Load(root)
	if err != nil {
		t.Fatalf("load workspace: %v", err)
	}
	key, err := depcache.Compute(ws)
	if err != nil {
		t.Fatalf("compute key: %v", err)
	}
	return key
}

func TestComputeIsDeterministic(t *testing.T) {
	root := testsupport.StandardWorkspace(t)
	if computeKey(t, root) != computeKey(t, root) {
		t.Fatal("same workspace must produce the same key")
	}
}

func TestComputeIgnoresSourceChanges(t *testing.T) {
	root := testsupport.StandardWorkspace(t)
	before := computeKey(t, root)

	mainPath := filepath.Join(root, "voice", "src", "main.rs")
	if err := os.WriteFile(mainPath, []byte("fn main() { println!(\"edited\"); }\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	after := computeKey(t, root)
	if before != after {
		t.Fatalf("source-only change must not rotate the key: %s != %s", before.Short(), after.Short())
	}
}

func TestComputeChangesOnManifestEdit(t *testing.T) {
	root := testsupport.StandardWorkspace(t)
	before := computeKey(t, root)

	manifestPath := filepath.Join(root, "common", "Cargo.toml")
	contents, err := os.ReadFile(manifestPath)
	if err != nil {
		t.Fatal(err)
	}
	edited := string(contents) + "rand = \"0.8.5\"\n"
	if err := os.WriteFile(manifestPath, []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}
	// Keep the lockfile covering so Load succeeds; the manifest bytes alone
	// must rotate the key.
	lockPath := filepath.Join(root, "Cargo.lock")
	lock, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatal(err)
	}
	lockEdited := string(lock) + "[[package]]\nname = \"rand\"\nversion = \"0.8.5\"\nchecksum = \"sha256:rand\"\n"
	if err := os.WriteFile(lockPath, []byte(lockEdited), 0o644); err != nil {
		t.Fatal(err)
	}

	if computeKey(t, root) == before {
		t.Fatal("manifest change must rotate the key")
	}
}

func TestComputeChangesOnLockfileVersionBump(t *testing.T) {
	root := testsupport.StandardWorkspace(t)
	before := computeKey(t, root)

	lockPath := filepath.Join(root, "Cargo.lock")
	lock, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatal(err)
	}
	bumped := strings.Replace(string(lock), "1.0.200", "1.0.201", 1)
	if bumped == string(lock) {
		t.Fatal("fixture lockfile missing expected version")
	}
	if err := os.WriteFile(lockPath, []byte(bumped), 0o644); err != nil {
		t.Fatal(err)
	}

	if computeKey(t, root) == before {
		t.Fatal("lockfile version bump must rotate the key")
	}
}
