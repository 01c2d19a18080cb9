package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for internal consistency. Path existence
// is not checked here; preflight owns environment checks.
func (c *Config) Validate() error {
	var problems []string

	if c.Paths.CacheDir == "" {
		problems = append(problems, "paths.cache_dir must be set")
	}
	if c.Paths.WorkDir == "" {
		problems = append(problems, "paths.work_dir must be set")
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}

	if c.Build.Jobs < 0 {
		problems = append(problems, "build.jobs must not be negative")
	}

	seen := map[string]struct{}{}
	for i := range c.Pipelines {
		p := &c.Pipelines[i]
		label := p.Name
		if label == "" {
			label = fmt.Sprintf("pipeline #%d", i+1)
			problems = append(problems, fmt.Sprintf("%s: name must be set", label))
		}
		if _, dup := seen[p.Name]; dup && p.Name != "" {
			problems = append(problems, fmt.Sprintf("%s: duplicate pipeline name", label))
		}
		seen[p.Name] = struct{}{}

		if strings.TrimSpace(p.WorkspaceRoot) == "" {
			problems = append(problems, fmt.Sprintf("%s: workspace_root must be set", label))
		}
		if strings.TrimSpace(p.BinaryCrate) == "" {
			problems = append(problems, fmt.Sprintf("%s: binary_crate must be set", label))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
