package contract

import (
	"errors"
	"fmt"
	"strings"
)

// Unassigned marks a bone or vertex that belongs to no logical joint.
const Unassigned = -1

// DefaultJoints is the 22-joint convention the reference model was trained on.
var DefaultJoints = []string{
	"Hip",
	"Spine",
	"Spine1",
	"Spine2",
	"Neck",
	"Head",
	"LeftUpLeg",
	"LeftLeg",
	"LeftFoot",
	"LeftToeBase",
	"RightUpLeg",
	"RightLeg",
	"RightFoot",
	"RightToeBase",
	"LeftShoulder",
	"LeftArm",
	"LeftForeArm",
	"LeftHand",
	"RightShoulder",
	"RightArm",
	"RightForeArm",
	"RightHand",
}

// Inputs names the five input tensors.
type Inputs struct {
	Sequence    string
	Orientation string
	Offsets     string
	Shape       string
	Height      string
}

// Outputs names the two output tensors.
type Outputs struct {
	Global      string
	Orientation string
}

// Contract is the model-specific agreement on joints, units, and tensors.
type Contract struct {
	Name    string
	Version int

	Joints []string

	// UnitScale converts rig units to model units for offsets and velocity.
	// The height scalar is divided by the same value.
	UnitScale float32

	// HeightJoints are the logical indices whose offset lengths form the height.
	HeightJoints []int

	// VelocityEpsilon is the smallest elapsed time, in seconds, that yields a
	// non-zero root velocity.
	VelocityEpsilon float64

	// VertexFallbackJoint receives vertices whose bones map to no joint.
	// Unassigned drops such vertices instead.
	VertexFallbackJoint int

	Inputs  Inputs
	Outputs Outputs
}

// Default returns the r2et-22 v1 contract.
func Default() Contract {
	joints := make([]string, len(DefaultJoints))
	copy(joints, DefaultJoints)
	return Contract{
		Name:                "r2et-22",
		Version:             1,
		Joints:              joints,
		UnitScale:           100,
		HeightJoints:        []int{1, 2, 3, 4, 5, 7, 8, 9},
		VelocityEpsilon:     1e-6,
		VertexFallbackJoint: 0,
		Inputs: Inputs{
			Sequence:    "seqA",
			Orientation: "quatA",
			Offsets:     "skelA",
			Shape:       "shapeA",
			Height:      "inp_height",
		},
		Outputs: Outputs{
			Global:      "globalB",
			Orientation: "quatB",
		},
	}
}

// JointCount returns J.
func (c Contract) JointCount() int {
	return len(c.Joints)
}

// SequenceLen is the length of the sequence buffer: 3J reserved zeros, root
// velocity, and root yaw.
func (c Contract) SequenceLen() int {
	return c.JointCount()*3 + 4
}

// OrientationLen is the length of the per-joint quaternion buffer.
func (c Contract) OrientationLen() int {
	return c.JointCount() * 4
}

// OffsetLen is the length of the per-joint offset buffer, also the shape
// descriptor length.
func (c Contract) OffsetLen() int {
	return c.JointCount() * 3
}

// InputShapes returns the fixed tensor shape for every named input.
func (c Contract) InputShapes() map[string][]int64 {
	j := int64(c.JointCount())
	return map[string][]int64{
		c.Inputs.Sequence:    {1, 1, j*3 + 4},
		c.Inputs.Orientation: {1, 1, j, 4},
		c.Inputs.Offsets:     {1, 1, j, 3},
		c.Inputs.Shape:       {1, j * 3},
		c.Inputs.Height:      {1, 1},
	}
}

// InputNames lists the input tensor names in a stable order.
func (c Contract) InputNames() []string {
	return []string{c.Inputs.Sequence, c.Inputs.Orientation, c.Inputs.Offsets, c.Inputs.Shape, c.Inputs.Height}
}

// OutputNames lists the output tensor names in a stable order.
func (c Contract) OutputNames() []string {
	return []string{c.Outputs.Global, c.Outputs.Orientation}
}

// String identifies the contract in logs and errors.
func (c Contract) String() string {
	return fmt.Sprintf("%s/v%d", c.Name, c.Version)
}

// Validate reports the first inconsistency in the contract.
func (c Contract) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("contract name must be set")
	}
	if c.Version <= 0 {
		return errors.New("contract version must be positive")
	}
	if len(c.Joints) == 0 {
		return errors.New("contract must list at least one joint")
	}
	seen := make(map[string]int, len(c.Joints))
	for i, name := range c.Joints {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("contract joint %d has an empty name", i)
		}
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("contract joint %q listed twice (indices %d and %d)", name, prev, i)
		}
		seen[name] = i
	}
	if c.UnitScale <= 0 {
		return errors.New("contract unit_scale must be positive")
	}
	for _, idx := range c.HeightJoints {
		if idx < 0 || idx >= len(c.Joints) {
			return fmt.Errorf("contract height joint %d out of range [0,%d)", idx, len(c.Joints))
		}
	}
	if c.VelocityEpsilon < 0 {
		return errors.New("contract velocity_epsilon must be >= 0")
	}
	if c.VertexFallbackJoint != Unassigned && (c.VertexFallbackJoint < 0 || c.VertexFallbackJoint >= len(c.Joints)) {
		return fmt.Errorf("contract vertex_fallback_joint %d out of range", c.VertexFallbackJoint)
	}
	names := append(c.InputNames(), c.OutputNames()...)
	unique := make(map[string]struct{}, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return errors.New("contract tensor names must not be empty")
		}
		if _, ok := unique[name]; ok {
			return fmt.Errorf("contract tensor name %q used twice", name)
		}
		unique[name] = struct{}{}
	}
	return nil
}
