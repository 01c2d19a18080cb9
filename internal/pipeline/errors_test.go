package pipeline_test

import (
	"errors"
	"fmt"
	"testing"

	"kiln/internal/buildtool"
	"kiln/internal/image"
	"kiln/internal/manifest"
	"kiln/internal/pipeline"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want pipeline.Kind
	}{
		{fmt.Errorf("load manifests: %w", manifest.ErrMalformedManifest), pipeline.KindMalformedManifest},
		{fmt.Errorf("load manifests: %w", manifest.ErrLockfileMismatch), pipeline.KindLockfileMismatch},
		{fmt.Errorf("stub build: %w", buildtool.ErrDependencyBuild), pipeline.KindDependencyBuildFailed},
		{fmt.Errorf("rebuild: %w", buildtool.ErrCompile), pipeline.KindCompileError},
		{fmt.Errorf("rebuild: %w", buildtool.ErrLink), pipeline.KindLinkError},
		{fmt.Errorf("assemble: %w", image.ErrPrerequisiteInstall), pipeline.KindPrerequisiteInstall},
		{errors.New("disk full"), pipeline.KindInternal},
	}
	for _, tc := range cases {
		if got := pipeline.Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}
