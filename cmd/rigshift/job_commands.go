package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"rigshift/internal/jobs"
	"rigshift/internal/jobstore"
	"rigshift/internal/services"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage the remote training job for a student model",
	}
	cmd.AddCommand(newJobSubmitCommand(ctx))
	cmd.AddCommand(newJobStatusCommand(ctx))
	cmd.AddCommand(newJobWatchCommand(ctx))
	cmd.AddCommand(newJobDownloadCommand(ctx))
	cmd.AddCommand(newJobDeleteCommand(ctx))
	return cmd
}

func newJobSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <rig-file>",
		Short: "Upload a rig and start a training job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(c context.Context, mgr *jobs.Manager) error {
				job, err := mgr.Submit(c, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s (%s)\n", job.JobID, job.Status)
				return nil
			})
		},
	}
}

func newJobStatusCommand(ctx *commandContext) *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the tracked job",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(c context.Context, mgr *jobs.Manager) error {
				var (
					job *jobstore.Job
					err error
				)
				if local {
					job, err = mgr.Current(c)
				} else {
					job, err = mgr.Refresh(c)
				}
				if errors.Is(err, services.ErrNotFound) && job == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "No job tracked")
					return nil
				}
				if job != nil {
					writeJob(cmd.OutOrStdout(), job, shouldColorize(cmd.OutOrStdout()))
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Show the stored record without querying the service")
	return cmd
}

func newJobWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll the job until it finishes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(c context.Context, mgr *jobs.Manager) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				job, err := mgr.Watch(c, func(job *jobstore.Job) {
					fmt.Fprintln(out, jobSummaryLine(job, colorize))
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				if err != nil {
					return err
				}
				if job.Status == jobstore.StatusDone {
					fmt.Fprintln(out, "Job finished; run `rigshift job download` to fetch the model")
				}
				return nil
			})
		},
	}
}

func newJobDownloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Download and unpack the trained model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(c context.Context, mgr *jobs.Manager) error {
				job, err := mgr.Download(c)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Extracted to %s\n", job.ResultDir)
				fmt.Fprintf(out, "Model: %s\n", job.ModelPath)
				fmt.Fprintln(out, "Set [model] path to this file or pass --model to `rigshift retarget`")
				return nil
			})
		},
	}
}

func newJobDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the job on the service and forget it locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(c context.Context, mgr *jobs.Manager) error {
				job, err := mgr.Delete(c)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %s\n", job.JobID)
				return nil
			})
		},
	}
}

func writeJob(out io.Writer, job *jobstore.Job, colorize bool) {
	rows := [][]string{
		{"Job", job.JobID},
		{"File", job.Filename},
		{"Status", string(job.Status)},
		{"Message", dash(job.Message)},
		{"R2ET ETA", jobs.FormatETA(job.R2ETETASeconds)},
		{"Student ETA", jobs.FormatETA(job.StudentETASeconds)},
		{"Model", dash(job.ModelPath)},
		{"Updated", job.UpdatedAt.Local().Format(time.DateTime)},
	}
	for _, line := range renderSectionHeader("Job", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderTable([]column{textColumn("Field"), textColumn("Value")}, rows))
}

func jobSummaryLine(job *jobstore.Job, colorize bool) string {
	msg := fmt.Sprintf("r2et %s, student %s", jobs.FormatETA(job.R2ETETASeconds), jobs.FormatETA(job.StudentETASeconds))
	if job.Message != "" {
		msg += " (" + job.Message + ")"
	}
	return renderStatusLine(string(job.Status), jobStatusKind(job.Status), msg, colorize)
}

func dash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
