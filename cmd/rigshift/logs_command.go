package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rigshift/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var path string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the most recent run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if path == "" {
				if path, err = logs.Latest(cfg.Paths.LogDir); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			opts := logs.TailOptions{Offset: -1, Limit: lines}
			for {
				res, err := logs.Tail(cmd.Context(), path, opts)
				for _, line := range res.Lines {
					fmt.Fprintln(out, line)
				}
				if errors.Is(err, context.Canceled) {
					return nil
				}
				if err != nil || !follow {
					return err
				}
				opts = logs.TailOptions{Offset: res.Offset, Follow: true, Wait: time.Second}
			}
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&path, "file", "", "Log file to read (default: newest run log)")
	return cmd
}
