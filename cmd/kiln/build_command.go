package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"kiln/internal/buildtool"
	"kiln/internal/config"
	"kiln/internal/depcache"
	"kiln/internal/image"
	"kiln/internal/pipeline"
	"kiln/internal/runstore"
)

func newBuildCommand(cctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "build [pipeline...]",
		Short: "Build pipelines and assemble their runtime images",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipes, err := cctx.resolvePipelines(args)
			if err != nil {
				return err
			}
			runner, err := newBuildRunner(cctx)
			if err != nil {
				return err
			}
			defer runner.Close()

			var results []buildOutcome
			var firstErr error
			for _, pipe := range pipes {
				result, err := runner.Run(cmd.Context(), pipe)
				if err != nil {
					results = append(results, buildOutcome{
						Pipeline: pipe.Name,
						Error:    err.Error(),
						Kind:     string(pipeline.Classify(err)),
					})
					if firstErr == nil {
						firstErr = fmt.Errorf("pipeline %s: %w", pipe.Name, err)
					}
					continue
				}
				results = append(results, buildOutcome{
					Pipeline: pipe.Name,
					RunID:    result.RunID,
					CacheKey: result.CacheKey.Short(),
					CacheHit: result.CacheHit,
					ImageTag: result.ImageTag,
				})
			}

			if jsonOutput {
				if err := writeJSON(cmd, map[string]any{"results": results}); err != nil {
					return err
				}
				return firstErr
			}

			out := cmd.OutOrStdout()
			for _, outcome := range results {
				if outcome.Error != "" {
					fmt.Fprintf(out, "%s: failed (%s): %s\n", outcome.Pipeline, outcome.Kind, outcome.Error)
					continue
				}
				cache := "miss"
				if outcome.CacheHit {
					cache = "hit"
				}
				fmt.Fprintf(out, "%s: built %s (run %s, cache %s %s)\n",
					outcome.Pipeline, outcome.ImageTag, outcome.RunID, cache, outcome.CacheKey)
			}
			return firstErr
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit results as JSON")
	return cmd
}

type buildOutcome struct {
	Pipeline string `json:"pipeline"`
	RunID    string `json:"run_id,omitempty"`
	CacheKey string `json:"cache_key,omitempty"`
	CacheHit bool   `json:"cache_hit,omitempty"`
	ImageTag string `json:"image_tag,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Error    string `json:"error,omitempty"`
}

// buildRunner owns the collaborators shared by every pipeline run in one
// command invocation: the logger, the run ledger, and the dependency cache.
type buildRunner struct {
	cfg    *config.Config
	cache  *depcache.DiskStore
	ledger *runstore.Store
	logger *slog.Logger
}

func newBuildRunner(cctx *commandContext) (*buildRunner, error) {
	cfg, err := cctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := cctx.newLogger()
	if err != nil {
		return nil, err
	}
	cache, err := depcache.NewDiskStore(cfg.Paths.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("open dependency cache: %w", err)
	}
	ledger, err := cctx.openLedger()
	if err != nil {
		return nil, fmt.Errorf("open run ledger: %w", err)
	}
	return &buildRunner{cfg: cfg, cache: cache, ledger: ledger, logger: logger}, nil
}

func (r *buildRunner) Run(ctx context.Context, pipe *config.Pipeline) (*pipeline.Result, error) {
	backend := buildtool.NewCargo(
		buildtool.WithBinary(r.cfg.Build.CargoBinary),
		buildtool.WithJobs(r.cfg.Build.Jobs),
		buildtool.WithOffline(r.cfg.Build.Offline),
		buildtool.WithLogger(r.logger),
	)
	assembler := image.NewDockerCLI(
		image.WithBinary(r.cfg.ImageFor(pipe).DockerBinary),
		image.WithLogger(r.logger),
	)
	p := pipeline.New(r.cfg, pipe, r.cache, r.ledger, backend, assembler, r.logger)
	return p.Run(ctx)
}

func (r *buildRunner) Close() {
	if err := r.ledger.Close(); err != nil {
		r.logger.Warn("close run ledger", "error", err)
	}
}
