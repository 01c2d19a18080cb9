package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for kiln's own state.
type Paths struct {
	CacheDir string `toml:"cache_dir"`
	WorkDir  string `toml:"work_dir"`
	LogDir   string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Build contains settings for the compiler backend shared by all pipelines.
type Build struct {
	CargoBinary string `toml:"cargo_binary"`
	Jobs        int    `toml:"jobs"`
	Offline     bool   `toml:"offline"`
}

// Image contains runtime image assembly defaults. A pipeline may override any
// field in its own [pipeline.image] block.
type Image struct {
	DockerBinary string   `toml:"docker_binary"`
	Base         string   `toml:"base"`
	Packages     []string `toml:"packages"`
	InstallDir   string   `toml:"install_dir"`
}

// Pipeline describes one deployable workspace: where its manifests and source
// live, which member produces the executable, and how its image is tagged.
type Pipeline struct {
	Name          string `toml:"name"`
	WorkspaceRoot string `toml:"workspace_root"`
	BinaryCrate   string `toml:"binary_crate"`
	ImageTag      string `toml:"image_tag"`
	Image         Image  `toml:"image"`
}

// Config encapsulates all configuration values for kiln.
type Config struct {
	Paths     Paths      `toml:"paths"`
	Logging   Logging    `toml:"logging"`
	Build     Build      `toml:"build"`
	Image     Image      `toml:"image"`
	Pipelines []Pipeline `toml:"pipeline"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/kiln/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file existed at the resolved path; when it did not, defaults are
// returned.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("kiln.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories kiln needs to run.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PipelineByName returns the pipeline with the given name, or nil.
func (c *Config) PipelineByName(name string) *Pipeline {
	for i := range c.Pipelines {
		if c.Pipelines[i].Name == name {
			return &c.Pipelines[i]
		}
	}
	return nil
}

// ImageFor merges the global image defaults with a pipeline's overrides.
func (c *Config) ImageFor(p *Pipeline) Image {
	img := c.Image
	if p.Image.DockerBinary != "" {
		img.DockerBinary = p.Image.DockerBinary
	}
	if p.Image.Base != "" {
		img.Base = p.Image.Base
	}
	if len(p.Image.Packages) > 0 {
		img.Packages = append([]string(nil), p.Image.Packages...)
	}
	if p.Image.InstallDir != "" {
		img.InstallDir = p.Image.InstallDir
	}
	return img
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
