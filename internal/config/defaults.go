package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Default returns the baseline configuration used when no file is present and
// as the substrate a config file is decoded over.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultStateDir("cache"),
			WorkDir:  defaultStateDir("work"),
			LogDir:   defaultStateDir("logs"),
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
		Build: Build{
			CargoBinary: "cargo",
		},
		Image: Image{
			DockerBinary: "docker",
			Base:         "debian:bookworm-slim",
			Packages:     []string{"ca-certificates", "libssl3", "ffmpeg"},
			InstallDir:   "/usr/local/bin",
		},
	}
}

func defaultStateDir(leaf string) string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "kiln", leaf)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("~", ".cache", "kiln", leaf)
	}
	return filepath.Join(home, ".cache", "kiln", leaf)
}

func (c *Config) normalize() error {
	for _, field := range []*string{&c.Paths.CacheDir, &c.Paths.WorkDir, &c.Paths.LogDir} {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	if strings.TrimSpace(c.Build.CargoBinary) == "" {
		c.Build.CargoBinary = "cargo"
	}
	if strings.TrimSpace(c.Image.DockerBinary) == "" {
		c.Image.DockerBinary = "docker"
	}

	for i := range c.Pipelines {
		p := &c.Pipelines[i]
		p.Name = strings.TrimSpace(p.Name)
		expanded, err := expandPath(p.WorkspaceRoot)
		if err != nil {
			return err
		}
		p.WorkspaceRoot = expanded
		if strings.TrimSpace(p.ImageTag) == "" && p.Name != "" {
			p.ImageTag = p.Name + ":latest"
		}
	}
	return nil
}
