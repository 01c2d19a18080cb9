package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kiln/internal/runstore"
)

func newShowCommand(cctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Display one run's record and state history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := cctx.openLedger()
			if err != nil {
				return err
			}
			defer ledger.Close()

			ctx := cmd.Context()
			run, err := findRun(cmd, ledger, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			transitions, err := ledger.Transitions(ctx, run.ID)
			if err != nil {
				return fmt.Errorf("load transitions: %w", err)
			}

			if jsonOutput {
				history := make([]map[string]any, 0, len(transitions))
				for _, tr := range transitions {
					history = append(history, map[string]any{
						"state":       string(tr.State),
						"occurred_at": tr.OccurredAt,
					})
				}
				payload := runsJSON([]runstore.Run{*run})[0]
				return writeJSON(cmd, map[string]any{"run": payload, "transitions": history})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:      %s\n", run.ID)
			fmt.Fprintf(out, "Pipeline: %s\n", run.Pipeline)
			fmt.Fprintf(out, "State:    %s\n", formatStateLabel(run.State))
			if run.CacheKey != "" {
				hit := "miss"
				if run.CacheHit {
					hit = "hit"
				}
				fmt.Fprintf(out, "Cache:    %s (%s)\n", shortKey(run.CacheKey), hit)
			}
			if run.ArtifactPath != "" {
				fmt.Fprintf(out, "Artifact: %s\n", run.ArtifactPath)
			}
			if run.ImageTag != "" {
				fmt.Fprintf(out, "Image:    %s\n", run.ImageTag)
			}
			if run.ErrorKind != "" {
				fmt.Fprintf(out, "Failure:  %s: %s\n", run.ErrorKind, run.ErrorMessage)
			}

			rows := make([][]string, 0, len(transitions))
			for _, tr := range transitions {
				rows = append(rows, []string{
					formatStateLabel(tr.State),
					tr.OccurredAt.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"State", "At"}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the run as JSON")
	return cmd
}

// findRun resolves a full run ID or a unique ID prefix.
func findRun(cmd *cobra.Command, ledger *runstore.Store, id string) (*runstore.Run, error) {
	if id == "" {
		return nil, errors.New("run id is required")
	}
	ctx := cmd.Context()
	if run, err := ledger.GetByID(ctx, id); err == nil {
		return run, nil
	}

	// Prefix lookup searches the most recent runs only.
	runs, err := ledger.List(ctx, 200)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	var match *runstore.Run
	for i := range runs {
		if strings.HasPrefix(runs[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
			}
			match = &runs[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("run %q not found", id)
	}
	return match, nil
}
