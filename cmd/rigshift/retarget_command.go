package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"rigshift/internal/export"
	"rigshift/internal/inference"
	"rigshift/internal/logging"
	"rigshift/internal/preflight"
	"rigshift/internal/retarget"
)

type retargetFlags struct {
	source   string
	target   string
	model    string
	out      string
	plot     string
	plotJoin string
	async    bool
	frames   int
	quiet    bool
}

func newRetargetCommand(ctx *commandContext) *cobra.Command {
	var flags retargetFlags

	cmd := &cobra.Command{
		Use:   "retarget",
		Short: "Retarget a BVH motion onto a skinned glTF rig",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if flags.model != "" {
				cfg.Model.Path = flags.model
			}
			if !cmd.Flags().Changed("async") {
				flags.async = cfg.Model.Async
			}
			for _, check := range preflight.ModelChecks(cfg) {
				if !check.Passed && !check.Optional {
					return fmt.Errorf("%s: %s", strings.ToLower(check.Name), check.Detail)
				}
			}
			if strings.TrimSpace(cfg.Model.Path) == "" {
				return errors.New("no model configured (set [model] path or pass --model)")
			}

			source, err := loadRigFile(flags.source)
			if err != nil {
				return err
			}
			if source.Clip == nil {
				return fmt.Errorf("source %s carries no motion (want a .bvh file)", flags.source)
			}
			target, err := loadRigFile(flags.target)
			if err != nil {
				return err
			}

			logger := ctx.loggerFor(cmd)
			c := cfg.ModelContract()
			engine := inference.NewEngine(c,
				inference.WithTimeout(cfg.InferenceTimeout()),
				inference.WithLogger(logger),
			)
			defer engine.Close()

			loader := inference.ONNXLoader(inference.ONNXOptions{
				SharedLibrary:  cfg.Model.RuntimeLibrary,
				Backend:        cfg.Model.Backend,
				IntraOpThreads: cfg.Model.IntraOpThreads,
			})
			if err := engine.Load(cmd.Context(), cfg.Model.Path, loader); err != nil {
				return err
			}

			p, err := retarget.New(cmd.Context(), retarget.Options{
				Contract:  c,
				Source:    source.Model.Root,
				Target:    target.Model,
				ShapeMesh: cfg.Retarget.ShapeMesh,
				Engine:    engine,
				Async:     flags.async,
				Logger:    logger,
			})
			if err != nil {
				return err
			}
			defer p.Close()

			rec, err := runClip(cmd, p, source, flags, cfg.Retarget.FallbackFPS, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if flags.out != "" {
				if err := rec.SaveCSV(flags.out); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %d samples to %s\n", rec.Len(), flags.out)
			}
			if flags.plot != "" {
				opts := export.PlotOptions{Title: fmt.Sprintf("%s on %s", source.Path, target.Path)}
				if flags.plotJoin != "" {
					opts.Joints = splitList(flags.plotJoin)
				}
				if err := rec.PlotAngles(flags.plot, opts); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote plot to %s\n", flags.plot)
			}
			fmt.Fprintf(out, "Session %s: %s\n", p.SessionID(), p.Stats())
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.source, "source", "", "Source motion (.bvh)")
	cmd.Flags().StringVar(&flags.target, "target", "", "Target rig (.glb or .gltf)")
	cmd.Flags().StringVar(&flags.model, "model", "", "Model file (default: [model] path)")
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "Write target joint rotations as CSV")
	cmd.Flags().StringVar(&flags.plot, "plot", "", "Write a joint angle plot (png, svg, pdf or webp)")
	cmd.Flags().StringVar(&flags.plotJoin, "plot-joints", "", "Comma-separated joints to plot (default: all)")
	cmd.Flags().BoolVar(&flags.async, "async", false, "Run inference off the frame loop (default: [model] async)")
	cmd.Flags().IntVar(&flags.frames, "frames", 0, "Stop after this many frames (0 = whole clip)")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "Hide the progress bar")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

// runClip drives the pipeline once per clip frame and records the target
// rotations after every step.
func runClip(cmd *cobra.Command, p *retarget.Pipeline, source *loadedRig, flags retargetFlags, fallbackFPS float64, logger *slog.Logger) (*export.Recorder, error) {
	clip := source.Clip
	total := clip.Len()
	if flags.frames > 0 && flags.frames < total {
		total = flags.frames
	}
	dt := 1 / clip.FPS(fallbackFPS)

	joints := make([]string, 0, p.Target().Len())
	for _, b := range p.Target().Bindings() {
		joints = append(joints, b.Joint)
	}
	rec := export.NewRecorder(joints)

	var bar *pb.ProgressBar
	if !flags.quiet && isTerminal(cmd.ErrOrStderr()) {
		bar = pb.New(total)
		bar.SetWriter(cmd.ErrOrStderr())
		bar.Start()
		defer bar.Finish()
	}

	logger = logging.NewComponentLogger(logger, "cli")
	sampler := logging.NewProgressSampler(25)
	for i := 0; i < total; i++ {
		if err := cmd.Context().Err(); err != nil {
			return nil, err
		}
		if err := clip.Apply(i); err != nil {
			return nil, err
		}
		elapsed := dt
		if i == 0 {
			elapsed = 0
		}
		if _, err := p.Step(cmd.Context(), elapsed); err != nil {
			return nil, err
		}
		rec.Record(float64(i)*dt, p.Rotations())
		if bar != nil {
			bar.Increment()
		}
		percent := float64(i+1) / float64(total) * 100
		if sampler.ShouldLog(percent, "retarget") {
			logger.Info("retarget progress",
				logging.Int("frames_done", i+1),
				logging.Int("frames_total", total),
				logging.Float64("percent", percent),
			)
		}
	}
	if flags.async {
		if _, err := p.Flush(); err != nil {
			return nil, err
		}
		rec.Record(float64(total)*dt, p.Rotations())
	}
	return rec, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
