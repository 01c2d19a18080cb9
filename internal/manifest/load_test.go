package manifest_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"kiln/internal/manifest"
	"kiln/internal/testsupport"
)

func TestLoadEnumeratesMembersInOrder(t *testing.T) {
	root := testsupport.StandardWorkspace(t)

	ws, err := manifest.Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []string{"common", "codec", "voice"}
	if len(ws.Members) != len(want) {
		t.Fatalf("expected %d members, got %d", len(want), len(ws.Members))
	}
	for i, name := range want {
		if ws.Members[i].Name != name {
			t.Errorf("member %d = %q, want %q", i, ws.Members[i].Name, name)
		}
	}

	if ws.ExecutableName() != "voice" {
		t.Fatalf("executable name = %q, want voice", ws.ExecutableName())
	}
	bin := ws.BinaryCrate()
	if bin == nil || bin.Kind != manifest.KindBinary {
		t.Fatalf("unexpected binary crate: %#v", bin)
	}
}

func TestLoadKeepsRawManifestBytes(t *testing.T) {
	root := testsupport.StandardWorkspace(t)

	ws, err := manifest.Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for i := range ws.Members {
		if len(ws.Members[i].Raw) == 0 {
			t.Errorf("member %q has empty raw manifest", ws.Members[i].Name)
		}
	}
	if len(ws.Lockfile.Raw) == 0 {
		t.Error("lockfile raw bytes empty")
	}
}

func TestLoadResolvesPathDependencies(t *testing.T) {
	root := testsupport.StandardWorkspace(t)

	ws, err := manifest.Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	voice := ws.MemberByName("voice")
	if voice == nil {
		t.Fatal("voice member missing")
	}
	var firstParty int
	for _, dep := range voice.Dependencies {
		if dep.FirstParty() {
			firstParty++
		}
	}
	if firstParty != 2 {
		t.Fatalf("expected 2 first-party deps, got %d", firstParty)
	}
}

func TestLoadFailsWhenMemberDirMissing(t *testing.T) {
	root := testsupport.StandardWorkspace(t)
	if err := os.RemoveAll(filepath.Join(root, "codec")); err != nil {
		t.Fatal(err)
	}

	_, err := manifest.Load(root)
	if !errors.Is(err, manifest.ErrMalformedManifest) {
		t.Fatalf("expected ErrMalformedManifest, got %v", err)
	}
}

func TestLoadFailsOnUncoveredDependency(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ws")
	testsupport.ScaffoldWorkspace(t, root, []testsupport.CrateSpec{
		{Name: "app", Kind: "binary", Deps: map[string]string{"serde": "1.0.201"}},
	}, map[string]string{
		// serde is declared but deliberately absent here.
	})

	_, err := manifest.Load(root)
	if !errors.Is(err, manifest.ErrLockfileMismatch) {
		t.Fatalf("expected ErrLockfileMismatch, got %v", err)
	}
}

func TestLoadFailsWhenLockfileMissing(t *testing.T) {
	root := testsupport.StandardWorkspace(t)
	if err := os.Remove(filepath.Join(root, "Cargo.lock")); err != nil {
		t.Fatal(err)
	}

	_, err := manifest.Load(root)
	if !errors.Is(err, manifest.ErrLockfileMismatch) {
		t.Fatalf("expected ErrLockfileMismatch, got %v", err)
	}
}

func TestLoadFailsWithoutBinaryCrate(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ws")
	testsupport.ScaffoldWorkspace(t, root, []testsupport.CrateSpec{
		{Name: "libonly"},
	}, nil)

	_, err := manifest.Load(root)
	if !errors.Is(err, manifest.ErrMalformedManifest) {
		t.Fatalf("expected ErrMalformedManifest, got %v", err)
	}
}

func TestLoadFailsWithTwoBinaryCrates(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ws")
	testsupport.ScaffoldWorkspace(t, root, []testsupport.CrateSpec{
		{Name: "a", Kind: "binary"},
		{Name: "b", Kind: "binary"},
	}, nil)

	_, err := manifest.Load(root)
	if !errors.Is(err, manifest.ErrMalformedManifest) {
		t.Fatalf("expected ErrMalformedManifest, got %v", err)
	}
}

func TestLoadFailsOnDanglingPathDependency(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ws")
	testsupport.ScaffoldWorkspace(t, root, []testsupport.CrateSpec{
		{Name: "app", Kind: "binary", PathDeps: []string{"ghost"}},
		{Name: "ghost"},
	}, nil)
	// Drop ghost from the member list but keep app's path dependency on it.
	rootManifest := filepath.Join(root, "Cargo.toml")
	if err := os.WriteFile(rootManifest, []byte("[workspace]\nmembers = [\"app\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := manifest.Load(root)
	if !errors.Is(err, manifest.ErrMalformedManifest) {
		t.Fatalf("expected ErrMalformedManifest, got %v", err)
	}
}

func TestLoadNeverReadsSourceTrees(t *testing.T) {
	root := testsupport.StandardWorkspace(t)
	// Replace every source tree with an unreadable path to prove the loader
	// stays out of src/.
	for _, member := range []string{"common", "codec", "voice"} {
		src := filepath.Join(root, member, "src")
		if err := os.RemoveAll(src); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := manifest.Load(root); err != nil {
		t.Fatalf("Load should not depend on source trees: %v", err)
	}
}
