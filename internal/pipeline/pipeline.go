package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"kiln/internal/buildtool"
	"kiln/internal/config"
	"kiln/internal/depcache"
	"kiln/internal/image"
	"kiln/internal/logging"
	"kiln/internal/manifest"
	"kiln/internal/runstore"
	"kiln/internal/stub"
)

// Pipeline runs one deployable workspace through the build state machine.
type Pipeline struct {
	cfg       *config.Config
	pipe      *config.Pipeline
	cache     depcache.Store
	ledger    *runstore.Store
	backend   buildtool.Backend
	assembler image.Assembler
	logger    *slog.Logger
}

// Result summarizes a completed run.
type Result struct {
	RunID        string
	CacheKey     depcache.Key
	CacheHit     bool
	ArtifactPath string
	ImageTag     string
}

// New constructs a pipeline. All collaborators are required except the
// logger, which defaults to a no-op.
func New(cfg *config.Config, pipe *config.Pipeline, cache depcache.Store, ledger *runstore.Store, backend buildtool.Backend, assembler image.Assembler, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:       cfg,
		pipe:      pipe,
		cache:     cache,
		ledger:    ledger,
		backend:   backend,
		assembler: assembler,
		logger:    logger.With("component", "pipeline", "pipeline", pipe.Name),
	}
}

// Run executes the full state machine. On failure the run lands in the
// terminal failed state with its kind recorded, and the error is returned
// for process exit reporting. There is no retry and no partial re-entry.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	run, err := p.ledger.NewRun(ctx, p.pipe.Name)
	if err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	p.logger.Info("run started", "run", run.ID)

	result, err := p.execute(ctx, run.ID)
	if err != nil {
		kind := Classify(err)
		if markErr := p.ledger.MarkFailed(ctx, run.ID, string(kind), err.Error()); markErr != nil {
			p.logger.Error("record failure", "run", run.ID, "error", markErr)
		}
		p.logger.Error("run failed", "run", run.ID, "kind", string(kind), "error", err)
		return nil, err
	}

	p.logger.Info("run complete", "run", run.ID, "image", result.ImageTag, "cache_hit", result.CacheHit)
	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, runID string) (*Result, error) {
	// Stage: manifest loading. Fails before any compilation spend.
	ws, err := manifest.Load(p.pipe.WorkspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("load manifests: %w", err)
	}
	if ws.ExecutableName() != p.pipe.BinaryCrate {
		return nil, fmt.Errorf("%w: workspace binary crate %q does not match configured %q",
			manifest.ErrMalformedManifest, ws.ExecutableName(), p.pipe.BinaryCrate)
	}
	if err := p.ledger.Transition(ctx, runID, runstore.StateManifestsLoaded); err != nil {
		return nil, err
	}

	key, err := depcache.Compute(ws)
	if err != nil {
		return nil, fmt.Errorf("compute cache key: %w", err)
	}

	workRoot := filepath.Join(p.cfg.Paths.WorkDir, p.pipe.Name, runID)
	staged, err := stub.PrepareWorkspace(ws, filepath.Join(workRoot, "workspace"))
	if err != nil {
		return nil, fmt.Errorf("prepare staging workspace: %w", err)
	}

	// Stage: dependency pre-fetch. A cache hit skips the stub build
	// entirely; a miss compiles the stubbed workspace and publishes the
	// dependency artifacts under the content-derived key.
	targetDir := p.backend.TargetDir(staged)
	hit, err := p.cache.Restore(ctx, key, targetDir)
	if err != nil {
		return nil, fmt.Errorf("restore dependency cache: %w", err)
	}
	if !hit {
		if _, err := stub.Materialize(staged); err != nil {
			return nil, fmt.Errorf("materialize stubs: %w", err)
		}
		if err := p.backend.BuildDeps(ctx, staged); err != nil {
			return nil, err
		}
		if err := stub.Remove(staged); err != nil {
			return nil, fmt.Errorf("remove stubs: %w", err)
		}
		if err := p.cache.Save(ctx, key, targetDir); err != nil {
			return nil, fmt.Errorf("save dependency cache: %w", err)
		}
	}
	if err := p.ledger.SetCacheInfo(ctx, runID, string(key), hit); err != nil {
		return nil, err
	}
	if err := p.ledger.Transition(ctx, runID, runstore.StateDepsCached); err != nil {
		return nil, err
	}
	p.logger.Info("dependencies ready", "run", runID, "cache_key", key.Short(), "cache_hit", hit)

	// Stage: invalidation barrier. Real source replaces the stubs, and every
	// first-party unit is marked dirty so only first-party crates rebuild.
	if err := stub.RestoreSources(staged, ws.Root); err != nil {
		return nil, fmt.Errorf("restore sources: %w", err)
	}
	if err := stub.MarkDirty(staged); err != nil {
		return nil, fmt.Errorf("mark sources dirty: %w", err)
	}
	if err := p.ledger.Transition(ctx, runID, runstore.StateSourceRestored); err != nil {
		return nil, err
	}

	// Stage: incremental rebuild.
	artifact, err := p.backend.Build(ctx, staged)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(artifact); err != nil {
		return nil, fmt.Errorf("%w: crate %q: executable missing after build: %v",
			buildtool.ErrLink, ws.ExecutableName(), err)
	}
	if err := p.ledger.SetArtifact(ctx, runID, artifact); err != nil {
		return nil, err
	}
	if err := p.ledger.Transition(ctx, runID, runstore.StateBinaryBuilt); err != nil {
		return nil, err
	}
	p.logger.Info("binary built", "run", runID, "artifact", artifact)

	// Stage: runtime assembly. The image takes ownership of the artifact.
	img := p.cfg.ImageFor(p.pipe)
	spec := &image.Spec{
		Base:           img.Base,
		Packages:       img.Packages,
		InstallDir:     img.InstallDir,
		ExecutableName: ws.ExecutableName(),
		ArtifactPath:   artifact,
		Tag:            p.pipe.ImageTag,
	}
	if err := p.assembler.Assemble(ctx, spec); err != nil {
		return nil, err
	}
	if err := p.ledger.SetImageTag(ctx, runID, spec.Tag); err != nil {
		return nil, err
	}
	if err := p.ledger.Transition(ctx, runID, runstore.StateImageAssembled); err != nil {
		return nil, err
	}

	// The run's working state has served its purpose; only the cache and
	// the image survive.
	if err := os.RemoveAll(workRoot); err != nil {
		p.logger.Warn("clean work dir", "run", runID, "error", err)
	}

	return &Result{
		RunID:        runID,
		CacheKey:     key,
		CacheHit:     hit,
		ArtifactPath: artifact,
		ImageTag:     spec.Tag,
	}, nil
}
