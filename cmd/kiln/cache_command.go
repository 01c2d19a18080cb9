package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kiln/internal/depcache"
	"kiln/internal/manifest"
)

func newCacheCommand(cctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Dependency cache utilities",
	}

	cacheCmd.AddCommand(newCacheKeyCommand(cctx))
	cacheCmd.AddCommand(newCacheClearCommand(cctx))

	return cacheCmd
}

func newCacheKeyCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "key [pipeline...]",
		Short: "Print the current cache key for each pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			pipes, err := cctx.resolvePipelines(args)
			if err != nil {
				return err
			}
			store, err := depcache.NewDiskStore(cfg.Paths.CacheDir)
			if err != nil {
				return fmt.Errorf("open dependency cache: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, pipe := range pipes {
				ws, err := manifest.Load(pipe.WorkspaceRoot)
				if err != nil {
					return fmt.Errorf("pipeline %s: %w", pipe.Name, err)
				}
				key, err := depcache.Compute(ws)
				if err != nil {
					return fmt.Errorf("pipeline %s: %w", pipe.Name, err)
				}
				cached, err := store.Has(cmd.Context(), key)
				if err != nil {
					return err
				}
				status := "not cached"
				if cached {
					status = "cached"
				}
				fmt.Fprintf(out, "%s: %s (%s)\n", pipe.Name, key, status)
			}
			return nil
		},
	}
}

func newCacheClearCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every dependency cache entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := depcache.NewDiskStore(cfg.Paths.CacheDir)
			if err != nil {
				return fmt.Errorf("open dependency cache: %w", err)
			}
			if err := store.Clear(); err != nil {
				return fmt.Errorf("clear dependency cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared dependency cache at %s\n", store.Root())
			return nil
		},
	}
}
