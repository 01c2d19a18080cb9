package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"kiln/internal/runstore"
)

func newRunsCommand(cctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := cctx.openLedger()
			if err != nil {
				return err
			}
			defer ledger.Close()

			runs, err := ledger.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			if jsonOutput {
				return writeJSON(cmd, map[string]any{"runs": runsJSON(runs)})
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				cache := ""
				if run.CacheKey != "" {
					cache = shortKey(run.CacheKey)
					if run.CacheHit {
						cache += " (hit)"
					}
				}
				detail := run.ImageTag
				if run.State == runstore.StateFailed {
					detail = run.ErrorKind
				}
				rows = append(rows, []string{
					shortRunID(run.ID),
					run.Pipeline,
					formatStateLabel(run.State),
					cache,
					detail,
					run.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Pipeline", "State", "Cache", "Detail", "Updated"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit runs as JSON")
	return cmd
}

type runJSON struct {
	ID           string    `json:"id"`
	Pipeline     string    `json:"pipeline"`
	State        string    `json:"state"`
	CacheKey     string    `json:"cache_key,omitempty"`
	CacheHit     bool      `json:"cache_hit"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
	ImageTag     string    `json:"image_tag,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func runsJSON(runs []runstore.Run) []runJSON {
	out := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, runJSON{
			ID:           run.ID,
			Pipeline:     run.Pipeline,
			State:        string(run.State),
			CacheKey:     run.CacheKey,
			CacheHit:     run.CacheHit,
			ErrorKind:    run.ErrorKind,
			ErrorMessage: run.ErrorMessage,
			ArtifactPath: run.ArtifactPath,
			ImageTag:     run.ImageTag,
			CreatedAt:    run.CreatedAt,
			UpdatedAt:    run.UpdatedAt,
		})
	}
	return out
}

// formatStateLabel renders a machine state name for humans:
// "deps-cached" becomes "Deps Cached".
func formatStateLabel(state runstore.State) string {
	label := strings.ReplaceAll(string(state), "-", " ")
	return cases.Title(language.Und).String(label)
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
