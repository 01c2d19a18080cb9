package stub

import (
	"fmt"
	"os"
	"path/filepath"

	"kiln/internal/fileutil"
	"kiln/internal/manifest"
)

// Stub bodies are canonical: they feed the dependency cache key, so they must
// never vary between runs.
const (
	// BinaryBody is a minimal valid program entry point. An empty file would
	// not be guaranteed to produce an executable, so the binary stub carries
	// an explicit no-op main.
	BinaryBody = "fn main() {}\n"

	// LibraryBody is an empty, valid library unit with zero exported behavior.
	LibraryBody = ""
)

// Body returns the canonical stub body for a crate kind.
func Body(kind manifest.Kind) string {
	if kind == manifest.KindBinary {
		return BinaryBody
	}
	return LibraryBody
}

// EntryFile returns the path of the stub source unit for a crate.
func EntryFile(c *manifest.Crate) string {
	name := "lib.rs"
	if c.Kind == manifest.KindBinary {
		name = "main.rs"
	}
	return filepath.Join(c.SourceDir(), name)
}

// PrepareWorkspace copies only the declaration files of src into dst: the
// root manifest, every member manifest, and the lockfile. No source trees are
// copied. It returns the workspace loaded from dst.
func PrepareWorkspace(src *manifest.Workspace, dst string) (*manifest.Workspace, error) {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return nil, fmt.Errorf("create staging workspace: %w", err)
	}

	rootManifest := filepath.Join(src.Root, manifest.ManifestName)
	if err := fileutil.CopyFile(rootManifest, filepath.Join(dst, manifest.ManifestName)); err != nil {
		return nil, fmt.Errorf("copy root manifest: %w", err)
	}
	if err := fileutil.CopyFile(src.Lockfile.Path, filepath.Join(dst, manifest.LockfileName)); err != nil {
		return nil, fmt.Errorf("copy lockfile: %w", err)
	}

	for i := range src.Members {
		member := &src.Members[i]
		rel, err := filepath.Rel(src.Root, member.Dir)
		if err != nil {
			return nil, fmt.Errorf("resolve member dir: %w", err)
		}
		dir := filepath.Join(dst, rel)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create member dir: %w", err)
		}
		if err := fileutil.CopyFile(member.ManifestPath(), filepath.Join(dir, manifest.ManifestName)); err != nil {
			return nil, fmt.Errorf("copy manifest for %q: %w", member.Name, err)
		}
	}

	return manifest.Load(dst)
}

// Materialize writes a stub source tree for every member crate and returns
// the written file paths.
func Materialize(ws *manifest.Workspace) ([]string, error) {
	var written []string
	for i := range ws.Members {
		member := &ws.Members[i]
		if err := os.MkdirAll(member.SourceDir(), 0o755); err != nil {
			return written, fmt.Errorf("create stub dir for %q: %w", member.Name, err)
		}
		path := EntryFile(member)
		if err := os.WriteFile(path, []byte(Body(member.Kind)), 0o644); err != nil {
			return written, fmt.Errorf("write stub for %q: %w", member.Name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// Remove deletes every member's stub source tree. Manifests, the lockfile,
// and anything outside src/ are left in place.
func Remove(ws *manifest.Workspace) error {
	for i := range ws.Members {
		member := &ws.Members[i]
		if err := os.RemoveAll(member.SourceDir()); err != nil {
			return fmt.Errorf("remove stub tree for %q: %w", member.Name, err)
		}
	}
	return nil
}

// RestoreSources copies the real source tree of every member from the
// workspace rooted at fromRoot into ws. Stage order guarantees the stub trees
// were removed first.
func RestoreSources(ws *manifest.Workspace, fromRoot string) error {
	for i := range ws.Members {
		member := &ws.Members[i]
		rel, err := filepath.Rel(ws.Root, member.Dir)
		if err != nil {
			return fmt.Errorf("resolve member dir: %w", err)
		}
		realSrc := filepath.Join(fromRoot, rel, "src")
		if err := fileutil.CopyTree(realSrc, member.SourceDir()); err != nil {
			return fmt.Errorf("restore source for %q: %w", member.Name, err)
		}
	}
	return nil
}

// MarkDirty refreshes the modification signal on every first-party source
// unit so mtime-keyed toolchains rebuild them. It never touches dependency
// artifacts, and it is a harmless no-op for content-keyed toolchains.
func MarkDirty(ws *manifest.Workspace) error {
	for i := range ws.Members {
		member := &ws.Members[i]
		if err := fileutil.TouchTree(member.SourceDir()); err != nil {
			return fmt.Errorf("mark %q dirty: %w", member.Name, err)
		}
	}
	return nil
}
