package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kiln/internal/config"
	"kiln/internal/pipeline"
	"kiln/internal/watch"
)

func newWatchCommand(cctx *commandContext) *cobra.Command {
	var skipInitial bool

	cmd := &cobra.Command{
		Use:   "watch [pipeline...]",
		Short: "Rebuild pipelines whenever their workspaces change",
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

			byRoot := make(map[string][]*config.Pipeline)
			roots := make([]string, 0, len(pipes))
			for _, pipe := range pipes {
				if _, seen := byRoot[pipe.WorkspaceRoot]; !seen {
					roots = append(roots, pipe.WorkspaceRoot)
				}
				byRoot[pipe.WorkspaceRoot] = append(byRoot[pipe.WorkspaceRoot], pipe)
			}

			ctx := cmd.Context()
			buildAll := func(pipes []*config.Pipeline) {
				for _, pipe := range pipes {
					result, err := runner.Run(ctx, pipe)
					if err != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: failed (%s): %v\n",
							pipe.Name, pipeline.Classify(err), err)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: built %s (run %s)\n",
						pipe.Name, result.ImageTag, result.RunID)
				}
			}

			if !skipInitial {
				buildAll(pipes)
			}

			watcher, err := watch.New(roots)
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			if err := watcher.Start(); err != nil {
				return err
			}
			defer watcher.Stop()

			fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes (Ctrl-C to stop)")
			for {
				select {
				case <-ctx.Done():
					return nil
				case root, ok := <-watcher.Changes:
					if !ok {
						return nil
					}
					buildAll(byRoot[root])
				}
			}
		},
	}

	cmd.Flags().BoolVar(&skipInitial, "skip-initial", false, "Do not build before the first change")
	return cmd
}
