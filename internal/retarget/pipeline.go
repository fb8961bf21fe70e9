package retarget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"rigshift/internal/applier"
	"rigshift/internal/bonemap"
	"rigshift/internal/contract"
	"rigshift/internal/features"
	"rigshift/internal/inference"
	"rigshift/internal/logging"
	"rigshift/internal/rig"
	"rigshift/internal/services"
	"rigshift/internal/shape"
	"rigshift/internal/skeleton"
)

// Options configures a Pipeline.
type Options struct {
	Contract contract.Contract
	// Source is the root of the animated source rig.
	Source *rig.Node
	// Target supplies the rig to drive and the bind-pose mesh for the
	// shape descriptor.
	Target *rig.Model
	// ShapeMesh names the target mesh; empty picks the first skinned one.
	ShapeMesh string
	Engine    *inference.Engine
	Async     bool
	Logger    *slog.Logger
}

// Stats counts frame outcomes.
type Stats struct {
	Frames   int
	Applied  int
	Skipped  int
	TimedOut int
}

// Outcome describes what happened to one frame.
type Outcome struct {
	Frame   int
	Applied bool
	// AppliedFrame is the frame whose inference result was written. In async
	// mode it can trail Frame.
	AppliedFrame int
	Err          error
}

// Pipeline drives one target rig from one source rig.
type Pipeline struct {
	contract  contract.Contract
	source    *skeleton.Skeleton
	target    *skeleton.Skeleton
	boneMap   bonemap.Map
	shape     shape.Result
	assembler *features.Assembler
	engine    *inference.Engine
	worker    *inference.Worker
	applier   *applier.Applier
	logger    *slog.Logger
	sessionID string
	frame     int
	stats     Stats
	cancel    context.CancelFunc
}

// New runs the one-time stages. Unresolved joints and shape extraction
// problems are logged and leave the pipeline usable; a missing engine, rig or
// invalid contract is returned as a configuration error.
func New(ctx context.Context, opts Options) (*Pipeline, error) {
	if err := opts.Contract.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "retarget", "new", "invalid contract", err)
	}
	if opts.Engine == nil {
		return nil, services.Wrap(services.ErrConfiguration, "retarget", "new", "no inference engine", nil)
	}
	if opts.Source == nil {
		return nil, services.Wrap(services.ErrConfiguration, "retarget", "new", "no source rig", nil)
	}
	if opts.Target == nil || opts.Target.Root == nil {
		return nil, services.Wrap(services.ErrConfiguration, "retarget", "new", "no target rig", nil)
	}

	sessionID := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.WithSession(logging.NewComponentLogger(logger, "retarget"), sessionID)

	p := &Pipeline{
		contract:  opts.Contract,
		engine:    opts.Engine,
		logger:    logger,
		sessionID: sessionID,
	}

	joints := opts.Contract.Joints
	var err error
	if p.source, err = skeleton.Bind(opts.Source, joints); err != nil {
		logging.ErrorWithContext(logger, "source skeleton incomplete", "bind_source",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "rename source bones or adjust [contract] joints"),
		)
	}
	if p.target, err = skeleton.Bind(opts.Target.Root, joints); err != nil {
		logging.ErrorWithContext(logger, "target skeleton incomplete", "bind_target",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "rename target bones or adjust [contract] joints"),
		)
	}

	mesh := opts.Target.Mesh(opts.ShapeMesh)
	if mesh != nil {
		p.boneMap = bonemap.Build(mesh.Bones, joints)
	}
	p.shape, err = shape.Extract(mesh, p.boneMap, opts.Contract.JointCount(), shape.Options{
		FallbackJoint: opts.Contract.VertexFallbackJoint,
	})
	if err != nil {
		logging.ErrorWithContext(logger, "shape descriptor unavailable", "shape_extract",
			logging.Error(err),
			logging.String("mesh", opts.ShapeMesh),
			logging.String(logging.FieldErrorHint, "target needs a skinned mesh with JOINTS_0 and WEIGHTS_0"),
		)
	}

	p.assembler = features.NewAssembler(opts.Contract, p.shape.Descriptor)
	p.applier = applier.New(p.target)

	if opts.Async {
		wctx, cancel := context.WithCancel(services.WithSessionID(ctx, sessionID))
		p.cancel = cancel
		p.worker = inference.NewWorker(wctx, opts.Engine)
	}

	logger.Info("pipeline ready",
		logging.String("contract", opts.Contract.String()),
		logging.Int("source_bound", boundCount(p.source)),
		logging.Int("target_bound", boundCount(p.target)),
		logging.Int("bones_mapped", p.boneMap.Assigned()),
		logging.Int("fallback_vertices", p.shape.Fallback),
		logging.Bool("async", opts.Async),
	)
	return p, nil
}

func boundCount(s *skeleton.Skeleton) int {
	n := 0
	for _, b := range s.Bindings() {
		if b.Bound() {
			n++
		}
	}
	return n
}

// SessionID identifies this pipeline in logs.
func (p *Pipeline) SessionID() string {
	return p.sessionID
}

// Source returns the bound source skeleton.
func (p *Pipeline) Source() *skeleton.Skeleton {
	return p.source
}

// Target returns the bound target skeleton.
func (p *Pipeline) Target() *skeleton.Skeleton {
	return p.target
}

// BoneMap returns the target bone to joint mapping.
func (p *Pipeline) BoneMap() bonemap.Map {
	return p.boneMap
}

// Shape returns the shape extraction result.
func (p *Pipeline) Shape() shape.Result {
	return p.shape
}

// Stats returns the frame counters.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// Reset forgets root motion history, for example after seeking the source.
func (p *Pipeline) Reset() {
	p.assembler.Reset()
}

// Step runs one frame. elapsed is the time in seconds since the previous
// call. The returned error is non-nil only for fatal problems; skipped frames
// report their cause in Outcome.Err.
func (p *Pipeline) Step(ctx context.Context, elapsed float64) (Outcome, error) {
	frame := p.frame
	p.frame++
	p.stats.Frames++
	ctx = services.WithFrame(services.WithSessionID(ctx, p.sessionID), int64(frame))

	pose := p.source.Read()
	set := p.assembler.Assemble(pose, features.RootOf(p.source.Root()), elapsed)

	if p.worker != nil {
		p.worker.Submit(frame, set)
		return p.collect(frame)
	}

	out, err := p.engine.Infer(ctx, set)
	if err != nil {
		return p.skip(frame, err)
	}
	p.apply(out)
	return Outcome{Frame: frame, Applied: true, AppliedFrame: frame}, nil
}

// Flush waits for the in-flight async call and applies its result. It is a
// no-op in synchronous mode.
func (p *Pipeline) Flush() (Outcome, error) {
	if p.worker == nil {
		return Outcome{Frame: p.frame - 1}, nil
	}
	p.worker.Drain()
	return p.collect(p.frame - 1)
}

func (p *Pipeline) collect(frame int) (Outcome, error) {
	res, ok := p.worker.Latest()
	if !ok {
		return Outcome{Frame: frame}, nil
	}
	if res.Err != nil {
		outcome, err := p.skip(res.Frame, res.Err)
		outcome.Frame = frame
		return outcome, err
	}
	p.apply(res.Output)
	return Outcome{Frame: frame, Applied: true, AppliedFrame: res.Frame}, nil
}

func (p *Pipeline) apply(out inference.Output) {
	p.applier.Apply(out.Orientation)
	p.stats.Applied++
}

func (p *Pipeline) skip(frame int, err error) (Outcome, error) {
	if services.IsFatal(err) {
		logging.ErrorWithContext(p.logger, "retarget stopped", "frame_fatal",
			logging.Frame(frame),
			logging.Error(err),
			logging.Alert("retarget_stopped"),
		)
		return Outcome{Frame: frame, Err: err}, err
	}
	p.stats.Skipped++
	if errors.Is(err, services.ErrTimeout) {
		p.stats.TimedOut++
	}
	logging.WarnWithContext(p.logger, "frame skipped", "frame_skipped",
		logging.Frame(frame),
		logging.Error(err),
		logging.String(logging.FieldImpact, "target keeps previous pose"),
	)
	return Outcome{Frame: frame, Err: err}, nil
}

// Rotations returns the target's current local rotations by logical joint.
// Unbound joints report identity.
func (p *Pipeline) Rotations() []mgl32.Quat {
	out := make([]mgl32.Quat, p.target.Len())
	for i := range out {
		if n := p.target.Node(i); n != nil {
			out[i] = n.Rotation
		} else {
			out[i] = mgl32.QuatIdent()
		}
	}
	return out
}

// Close stops the async worker if one is running. The engine belongs to the
// caller.
func (p *Pipeline) Close() error {
	if p.worker != nil {
		p.worker.Close()
		p.cancel()
		stats := p.worker.Stats()
		p.logger.Debug("worker stopped",
			logging.Int("submitted", stats.Submitted),
			logging.Int("completed", stats.Completed),
			logging.Int("dropped", stats.Dropped),
		)
		p.worker = nil
	}
	p.logger.Info("pipeline closed",
		logging.Int("frames", p.stats.Frames),
		logging.Int("applied", p.stats.Applied),
		logging.Int("skipped", p.stats.Skipped),
		logging.Int("timed_out", p.stats.TimedOut),
	)
	return nil
}

func (s Stats) String() string {
	return fmt.Sprintf("%d frames, %d applied, %d skipped (%d timed out)", s.Frames, s.Applied, s.Skipped, s.TimedOut)
}
