package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"rigshift/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check directories, model files, the job database, and the job service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			out := cmd.OutOrStdout()
			for _, line := range preflightLines(results, shouldColorize(out)) {
				fmt.Fprintln(out, line)
			}
			if preflight.Failed(results) {
				return errors.New("preflight failed")
			}
			return nil
		},
	}
}
