package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"kiln/internal/preflight"
)

func newPreflightCommand(cctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check the host environment before building",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}

			results := preflight.RunAll(cfg)

			if jsonOutput {
				type jsonResult struct {
					Name   string `json:"name"`
					Passed bool   `json:"passed"`
					Detail string `json:"detail,omitempty"`
				}
				items := make([]jsonResult, 0, len(results))
				for _, r := range results {
					items = append(items, jsonResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
				}
				if err := writeJSON(cmd, map[string]any{"checks": items}); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, r := range results {
					kind := statusError
					if r.Passed {
						kind = statusOK
					}
					fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
			}

			if !preflight.AllPassed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit check results as JSON")
	return cmd
}
