package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

const (
	// ManifestName is the file name of the root and member manifests.
	ManifestName = "Cargo.toml"
	// LockfileName is the file name of the workspace lockfile.
	LockfileName = "Cargo.lock"
)

type rootManifest struct {
	Workspace struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
}

// rawMemberManifest decodes dependencies loosely: a value may be a bare
// version string or a table with version/path keys.
type rawMemberManifest struct {
	Package struct {
		Name string `toml:"name"`
		Kind string `toml:"kind"`
	} `toml:"package"`
	Dependencies map[string]any `toml:"dependencies"`
}

type lockfileDoc struct {
	Packages []struct {
		Name     string `toml:"name"`
		Version  string `toml:"version"`
		Checksum string `toml:"checksum"`
	} `toml:"package"`
}

// Load reads the workspace rooted at root: the root manifest, every member
// manifest in declaration order, and the lockfile. It fails with
// ErrMalformedManifest or ErrLockfileMismatch before any compilation spend.
func Load(root string) (*Workspace, error) {
	rootPath := filepath.Join(root, ManifestName)
	rootBytes, err := os.ReadFile(rootPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, malformedf("root manifest %s not found", rootPath)
		}
		return nil, fmt.Errorf("read root manifest: %w", err)
	}

	var rootDoc rootManifest
	if err := toml.Unmarshal(rootBytes, &rootDoc); err != nil {
		return nil, malformedf("parse %s: %v", rootPath, err)
	}
	if len(rootDoc.Workspace.Members) == 0 {
		return nil, malformedf("%s declares no workspace members", rootPath)
	}

	ws := &Workspace{Root: root}
	seen := map[string]struct{}{}
	for _, member := range rootDoc.Workspace.Members {
		crate, err := loadMember(root, member)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[crate.Name]; dup {
			return nil, malformedf("duplicate member crate name %q", crate.Name)
		}
		seen[crate.Name] = struct{}{}
		ws.Members = append(ws.Members, *crate)
	}

	if err := checkBinaryInvariant(ws); err != nil {
		return nil, err
	}
	if err := checkFirstPartyPaths(ws); err != nil {
		return nil, err
	}

	lock, err := loadLockfile(root)
	if err != nil {
		return nil, err
	}
	ws.Lockfile = *lock

	if err := checkLockCoverage(ws); err != nil {
		return nil, err
	}

	return ws, nil
}

func loadMember(root, member string) (*Crate, error) {
	dir := filepath.Join(root, member)
	manifestPath := filepath.Join(dir, ManifestName)
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, malformedf("member %q has no manifest at %s", member, manifestPath)
		}
		return nil, fmt.Errorf("read member manifest: %w", err)
	}

	var doc rawMemberManifest
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, malformedf("parse %s: %v", manifestPath, err)
	}
	if doc.Package.Name == "" {
		return nil, malformedf("%s is missing package.name", manifestPath)
	}

	kind := KindLibrary
	switch doc.Package.Kind {
	case "", string(KindLibrary):
	case string(KindBinary):
		kind = KindBinary
	default:
		return nil, malformedf("%s: unknown package.kind %q", manifestPath, doc.Package.Kind)
	}

	crate := &Crate{Name: doc.Package.Name, Kind: kind, Dir: dir, Raw: raw}
	deps, err := decodeDependencies(manifestPath, doc.Dependencies)
	if err != nil {
		return nil, err
	}
	crate.Dependencies = deps
	return crate, nil
}

func decodeDependencies(manifestPath string, raw map[string]any) ([]Dependency, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	deps := make([]Dependency, 0, len(names))
	for _, name := range names {
		switch value := raw[name].(type) {
		case string:
			if value == "" {
				return nil, malformedf("%s: dependency %q has an empty version", manifestPath, name)
			}
			deps = append(deps, Dependency{Name: name, Version: value})
		case map[string]any:
			dep := Dependency{Name: name}
			if v, ok := value["version"].(string); ok {
				dep.Version = v
			}
			if p, ok := value["path"].(string); ok {
				dep.Path = p
			}
			if dep.Version == "" && dep.Path == "" {
				return nil, malformedf("%s: dependency %q declares neither version nor path", manifestPath, name)
			}
			deps = append(deps, dep)
		default:
			return nil, malformedf("%s: dependency %q has an unsupported declaration", manifestPath, name)
		}
	}
	return deps, nil
}

func loadLockfile(root string) (*Lockfile, error) {
	path := filepath.Join(root, LockfileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, lockMismatchf("lockfile %s not found; regenerate it from the manifests", path)
		}
		return nil, fmt.Errorf("read lockfile: %w", err)
	}

	var doc lockfileDoc
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, lockMismatchf("parse %s: %v", path, err)
	}

	lock := &Lockfile{Path: path, Raw: raw}
	for _, pkg := range doc.Packages {
		if pkg.Name == "" || pkg.Version == "" {
			return nil, lockMismatchf("%s: package entry missing name or version", path)
		}
		lock.Packages = append(lock.Packages, LockedPackage{
			Name:     pkg.Name,
			Version:  pkg.Version,
			Checksum: pkg.Checksum,
		})
	}
	return lock, nil
}

// checkBinaryInvariant enforces that exactly one member produces the
// executable; every other member is a library consumed within the workspace.
func checkBinaryInvariant(ws *Workspace) error {
	var binaries []string
	for i := range ws.Members {
		if ws.Members[i].Kind == KindBinary {
			binaries = append(binaries, ws.Members[i].Name)
		}
	}
	switch len(binaries) {
	case 1:
		return nil
	case 0:
		return malformedf("workspace %s declares no binary crate", ws.Root)
	default:
		return malformedf("workspace %s declares multiple binary crates: %v", ws.Root, binaries)
	}
}

func checkFirstPartyPaths(ws *Workspace) error {
	for i := range ws.Members {
		crate := &ws.Members[i]
		for _, dep := range crate.Dependencies {
			if !dep.FirstParty() {
				continue
			}
			target := filepath.Clean(filepath.Join(crate.Dir, dep.Path))
			found := false
			for j := range ws.Members {
				if filepath.Clean(ws.Members[j].Dir) == target {
					found = true
					break
				}
			}
			if !found {
				return malformedf("%s: path dependency %q does not resolve to a workspace member", crate.ManifestPath(), dep.Name)
			}
		}
	}
	return nil
}

// checkLockCoverage verifies every declared third-party dependency is pinned.
func checkLockCoverage(ws *Workspace) error {
	for i := range ws.Members {
		crate := &ws.Members[i]
		for _, dep := range crate.Dependencies {
			if dep.FirstParty() {
				continue
			}
			if !ws.Lockfile.Covers(dep.Name) {
				return lockMismatchf("dependency %q of crate %q is not pinned in %s", dep.Name, crate.Name, ws.Lockfile.Path)
			}
		}
	}
	return nil
}
