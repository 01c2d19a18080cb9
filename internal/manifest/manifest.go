package manifest

import "path/filepath"

// Kind distinguishes the one executable-producing member from library members.
type Kind string

const (
	KindBinary  Kind = "binary"
	KindLibrary Kind = "library"
)

// Dependency is a single declared dependency of a member crate. Third-party
// dependencies carry a version constraint; first-party dependencies carry a
// path to another member.
type Dependency struct {
	Name    string
	Version string
	Path    string
}

// FirstParty reports whether the dependency points at another member crate.
func (d Dependency) FirstParty() bool {
	return d.Path != ""
}

// Crate is one compilation unit of the workspace.
type Crate struct {
	Name         string
	Kind         Kind
	Dir          string
	Dependencies []Dependency

	// Raw holds the manifest bytes exactly as read; the dependency cache key
	// hashes these.
	Raw []byte
}

// ManifestPath returns the path of the crate's manifest file.
func (c *Crate) ManifestPath() string {
	return filepath.Join(c.Dir, ManifestName)
}

// SourceDir returns the crate's source tree root. The loader never reads it.
func (c *Crate) SourceDir() string {
	return filepath.Join(c.Dir, "src")
}

// LockedPackage is one pinned dependency version from the lockfile.
type LockedPackage struct {
	Name     string
	Version  string
	Checksum string
}

// Lockfile pins exact resolved versions for the whole workspace.
type Lockfile struct {
	Path     string
	Packages []LockedPackage

	// Raw holds the lockfile bytes exactly as read.
	Raw []byte
}

// Covers reports whether the lockfile pins a package with the given name.
func (l *Lockfile) Covers(name string) bool {
	for _, pkg := range l.Packages {
		if pkg.Name == name {
			return true
		}
	}
	return false
}

// Workspace is the root build unit: an ordered set of member crates plus the
// lockfile pinning their dependencies.
type Workspace struct {
	Root     string
	Members  []Crate
	Lockfile Lockfile
}

// BinaryCrate returns the single executable-producing member.
func (w *Workspace) BinaryCrate() *Crate {
	for i := range w.Members {
		if w.Members[i].Kind == KindBinary {
			return &w.Members[i]
		}
	}
	return nil
}

// ExecutableName returns the name of the produced executable, which by
// invariant equals the binary crate's name.
func (w *Workspace) ExecutableName() string {
	if bin := w.BinaryCrate(); bin != nil {
		return bin.Name
	}
	return ""
}

// MemberByName returns the member crate with the given name, or nil.
func (w *Workspace) MemberByName(name string) *Crate {
	for i := range w.Members {
		if w.Members[i].Name == name {
			return &w.Members[i]
		}
	}
	return nil
}
