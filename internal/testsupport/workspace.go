package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// CrateSpec describes one member crate of a scaffolded workspace fixture.
type CrateSpec struct {
	Name string
	Kind string // "binary" or "library"; empty means library
	// Deps maps third-party dependency names to version constraints.
	Deps map[string]string
	// PathDeps lists sibling members this crate depends on by path.
	PathDeps []string
	// Source maps paths relative to the crate's src/ dir to file contents.
	Source map[string]string
}

// ScaffoldWorkspace writes a workspace fixture under root: a root manifest
// listing the crates in order, one manifest and source tree per crate, and a
// lockfile pinning the versions in locked.
func ScaffoldWorkspace(t *testing.T, root string, crates []CrateSpec, locked map[string]string) {
	t.Helper()

	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("create workspace root: %v", err)
	}

	var members []string
	for _, crate := range crates {
		members = append(members, fmt.Sprintf("%q", crate.Name))
	}
	rootManifest := fmt.Sprintf("[workspace]\nmembers = [%s]\n", strings.Join(members, ", "))
	mustWrite(t, filepath.Join(root, "Cargo.toml"), rootManifest)

	for _, crate := range crates {
		writeCrate(t, root, crate)
	}

	var lock strings.Builder
	names := make([]string, 0, len(locked))
	for name := range locked {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&lock, "[[package]]\nname = %q\nversion = %q\nchecksum = %q\n\n",
			name, locked[name], "sha256:"+name)
	}
	mustWrite(t, filepath.Join(root, "Cargo.lock"), lock.String())
}

func writeCrate(t *testing.T, root string, crate CrateSpec) {
	t.Helper()

	dir := filepath.Join(root, crate.Name)
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		t.Fatalf("create crate dir: %v", err)
	}

	var manifest strings.Builder
	fmt.Fprintf(&manifest, "[package]\nname = %q\n", crate.Name)
	if crate.Kind != "" {
		fmt.Fprintf(&manifest, "kind = %q\n", crate.Kind)
	}
	if len(crate.Deps) > 0 || len(crate.PathDeps) > 0 {
		manifest.WriteString("\n[dependencies]\n")
		names := make([]string, 0, len(crate.Deps))
		for name := range crate.Deps {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&manifest, "%s = %q\n", name, crate.Deps[name])
		}
		for _, sibling := range crate.PathDeps {
			fmt.Fprintf(&manifest, "%s = { path = \"../%s\" }\n", sibling, sibling)
		}
	}
	mustWrite(t, filepath.Join(dir, "Cargo.toml"), manifest.String())

	source := crate.Source
	if source == nil {
		if crate.Kind == "binary" {
			source = map[string]string{"main.rs": "fn main() { println!(\"real\"); }\n"}
		} else {
			source = map[string]string{"lib.rs": "pub fn answer() -> i32 { 42 }\n"}
		}
	}
	for rel, contents := range source {
		path := filepath.Join(dir, "src", rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("create source dir: %v", err)
		}
		mustWrite(t, path, contents)
	}
}

// StandardWorkspace scaffolds the common three-crate fixture used across
// tests: a binary crate depending on two library members and one third-party
// dependency, with a covering lockfile. It returns the workspace root.
func StandardWorkspace(t *testing.T) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), "voicews")
	ScaffoldWorkspace(t, root, []CrateSpec{
		{Name: "common", Deps: map[string]string{"serde": "1.0.200"}},
		{Name: "codec"},
		{Name: "voice", Kind: "binary", Deps: map[string]string{"tokio": "1.38.0"}, PathDeps: []string{"common", "codec"}},
	}, map[string]string{
		"serde": "1.0.200",
		"tokio": "1.38.0",
	})
	return root
}

func mustWrite(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
