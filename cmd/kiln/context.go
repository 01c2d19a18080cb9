package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"kiln/internal/config"
	"kiln/internal/logging"
	"kiln/internal/runstore"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// newLogger builds the shared logger: console output for the operator plus a
// persistent log file next to the run ledger.
func (c *commandContext) newLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		OutputPaths: []string{
			"stdout",
			filepath.Join(cfg.Paths.LogDir, "kiln.log"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	return logger, nil
}

func (c *commandContext) openLedger() (*runstore.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return runstore.Open(cfg)
}

// resolvePipelines maps command arguments to configured pipelines. With no
// arguments every configured pipeline is selected, in config order.
func (c *commandContext) resolvePipelines(args []string) ([]*config.Pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if len(cfg.Pipelines) == 0 {
		return nil, fmt.Errorf("no pipelines configured; add a [[pipeline]] block to the config")
	}
	if len(args) == 0 {
		pipes := make([]*config.Pipeline, 0, len(cfg.Pipelines))
		for i := range cfg.Pipelines {
			pipes = append(pipes, &cfg.Pipelines[i])
		}
		return pipes, nil
	}
	pipes := make([]*config.Pipeline, 0, len(args))
	for _, name := range args {
		pipe := cfg.PipelineByName(strings.TrimSpace(name))
		if pipe == nil {
			return nil, fmt.Errorf("unknown pipeline %q", name)
		}
		pipes = append(pipes, pipe)
	}
	return pipes, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
