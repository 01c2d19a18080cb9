// Package manifest enumerates the member crates of a workspace from its
// manifests and lockfile alone. Nothing in this package reads a source tree;
// the loader's output depends only on declaration files, which is what lets
// the dependency cache key survive source-only changes.
package manifest
