// Package features assembles the per-frame model inputs from a skeleton pose.
package features

import (
	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/spatial/r3"

	"rigshift/internal/contract"
	"rigshift/internal/rig"
	"rigshift/internal/shape"
	"rigshift/internal/skeleton"
)

// Set is one frame of model input, laid out exactly as the contract's tensors.
type Set struct {
	// Sequence holds 3J reserved zeros, root velocity x,y,z, and root yaw.
	Sequence []float32
	// Orientation holds w,x,y,z per joint.
	Orientation []float32
	// Offsets holds the scaled local translation per joint.
	Offsets []float32
	// Shape is the static descriptor, shared across frames.
	Shape []float32
	// Height is the sum of selected offset lengths in rig units.
	Height float32
}

// Root is the world-space state of logical joint 0 for one frame.
type Root struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// RootOf samples the world transform of node; a nil node yields the origin
// with identity rotation.
func RootOf(node *rig.Node) Root {
	if node == nil {
		return Root{Rotation: mgl32.QuatIdent()}
	}
	return Root{Position: node.WorldPosition(), Rotation: node.WorldRotation()}
}

// Assembler builds feature sets frame by frame. It owns the previous root
// position and is not safe for concurrent use.
type Assembler struct {
	contract contract.Contract
	shape    shape.Descriptor

	prevRoot mgl32.Vec3
	hasPrev  bool
}

// NewAssembler binds an assembler to a contract and a precomputed descriptor.
func NewAssembler(c contract.Contract, descriptor shape.Descriptor) *Assembler {
	return &Assembler{contract: c, shape: descriptor}
}

// Reset forgets the previous root position so the next frame has zero velocity.
func (a *Assembler) Reset() {
	a.hasPrev = false
	a.prevRoot = mgl32.Vec3{}
}

// Assemble builds the feature set for one frame. elapsed is the time in
// seconds since the previous frame.
func (a *Assembler) Assemble(frame skeleton.Frame, root Root, elapsed float64) Set {
	j := a.contract.JointCount()
	scale := a.contract.UnitScale
	set := Set{
		Sequence:    make([]float32, a.contract.SequenceLen()),
		Orientation: make([]float32, a.contract.OrientationLen()),
		Offsets:     make([]float32, a.contract.OffsetLen()),
		Shape:       a.shape,
	}

	for i := 0; i < j && i < len(frame.Rotations); i++ {
		q := frame.Rotations[i]
		set.Orientation[i*4] = q.W
		set.Orientation[i*4+1] = q.V.X()
		set.Orientation[i*4+2] = q.V.Y()
		set.Orientation[i*4+3] = q.V.Z()
	}
	for i := 0; i < j && i < len(frame.Offsets); i++ {
		o := frame.Offsets[i].Mul(scale)
		set.Offsets[i*3] = o.X()
		set.Offsets[i*3+1] = o.Y()
		set.Offsets[i*3+2] = o.Z()
	}

	var velocity mgl32.Vec3
	if a.hasPrev && elapsed > a.contract.VelocityEpsilon {
		velocity = root.Position.Sub(a.prevRoot).Mul(float32(1/elapsed) * scale)
	}
	base := j * 3
	set.Sequence[base] = velocity.X()
	set.Sequence[base+1] = velocity.Y()
	set.Sequence[base+2] = velocity.Z()
	set.Sequence[base+3] = rig.YawRadians(root.Rotation)

	set.Height = Height(set.Offsets, a.contract.HeightJoints, scale)

	a.prevRoot = root.Position
	a.hasPrev = true
	return set
}

// Height sums the lengths of the offset triplets at the given joints and
// divides by scale.
func Height(offsets []float32, joints []int, scale float32) float32 {
	var total float64
	for _, j := range joints {
		if j < 0 || j*3+2 >= len(offsets) {
			continue
		}
		v := r3.Vec{X: float64(offsets[j*3]), Y: float64(offsets[j*3+1]), Z: float64(offsets[j*3+2])}
		total += r3.Norm(v)
	}
	if scale == 0 {
		return float32(total)
	}
	return float32(total / float64(scale))
}
