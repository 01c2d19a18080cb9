package buildtool

import (
	"context"
	"errors"

	"kiln/internal/manifest"
)

var (
	// ErrDependencyBuild marks a failure while compiling third-party
	// dependencies against stub trees. Stub source has no bugs, so this is
	// attributable to manifests, the lockfile, or unavailable sources.
	ErrDependencyBuild = errors.New("dependency build failed")

	// ErrCompile marks a first-party compilation defect.
	ErrCompile = errors.New("compile error")

	// ErrLink marks a failure while linking the final executable.
	ErrLink = errors.New("link error")
)

// Backend abstracts the compiler invocation the pipeline observes only as
// stage completion. Implementations may parallelize internally.
type Backend interface {
	// BuildDeps compiles the workspace in its stubbed state, producing the
	// third-party dependency artifacts under TargetDir.
	BuildDeps(ctx context.Context, ws *manifest.Workspace) error
	// Build compiles the real workspace and returns the path of the produced
	// executable.
	Build(ctx context.Context, ws *manifest.Workspace) (string, error)
	// TargetDir returns the directory holding intermediate build artifacts
	// for the workspace; the dependency cache persists and restores it.
	TargetDir(ws *manifest.Workspace) string
}
