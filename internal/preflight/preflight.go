package preflight

import (
	"fmt"

	"kiln/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable preflight check for the given config:
// toolchain binaries, pipeline directories, and free space in the cache
// volume. Per-pipeline checks run only for configured pipelines.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results,
		CheckBinary("Cargo", cfg.Build.CargoBinary),
		CheckBinary("Docker", cfg.Image.DockerBinary),
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckFreeSpace("Cache free space", cfg.Paths.CacheDir),
	)

	for i := range cfg.Pipelines {
		pipe := &cfg.Pipelines[i]
		results = append(results, CheckWorkspace(fmt.Sprintf("Workspace (%s)", pipe.Name), pipe.WorkspaceRoot))
	}

	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
