package pipeline

import (
	"errors"

	"kiln/internal/buildtool"
	"kiln/internal/image"
	"kiln/internal/manifest"
)

// Kind is the operator-facing classification of a run failure. It answers
// "whose fault was it" without exposing internals: a bad manifest, an
// unavailable dependency, a first-party defect, or a packaging problem.
type Kind string

const (
	KindMalformedManifest     Kind = "MalformedManifest"
	KindLockfileMismatch      Kind = "LockfileMismatch"
	KindDependencyBuildFailed Kind = "DependencyBuildFailed"
	KindCompileError          Kind = "CompileError"
	KindLinkError             Kind = "LinkError"
	KindPrerequisiteInstall   Kind = "RuntimePrerequisiteInstallFailed"
	KindInternal              Kind = "Internal"
)

// Classify maps a stage error to its kind. Errors that carry none of the
// known markers classify as internal.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, manifest.ErrMalformedManifest):
		return KindMalformedManifest
	case errors.Is(err, manifest.ErrLockfileMismatch):
		return KindLockfileMismatch
	case errors.Is(err, buildtool.ErrDependencyBuild):
		return KindDependencyBuildFailed
	case errors.Is(err, buildtool.ErrCompile):
		return KindCompileError
	case errors.Is(err, buildtool.ErrLink):
		return KindLinkError
	case errors.Is(err, image.ErrPrerequisiteInstall):
		return KindPrerequisiteInstall
	default:
		return KindInternal
	}
}
