// Package preflight verifies the host environment before a build is
// attempted: toolchain binaries on PATH, pipeline directories accessible,
// and enough free space for a dependency build.
package preflight
