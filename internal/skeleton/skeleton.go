// Package skeleton binds logical joints to rig nodes and reads their pose.
package skeleton

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"rigshift/internal/rig"
	"rigshift/internal/services"
)

// Binding is the resolution of one logical joint: Bound when Node is set,
// Unresolved otherwise.
type Binding struct {
	Joint string
	Node  *rig.Node
}

// Bound reports whether the joint resolved to a rig node.
func (b Binding) Bound() bool {
	return b.Node != nil
}

// Skeleton is a fixed binding of logical joints to nodes of one rig. The
// binding never changes after Bind.
type Skeleton struct {
	bindings []Binding
	frame    Frame
}

// Frame is the most recent read of every logical joint. Slots whose Valid
// entry is false were never bound and hold zero values.
type Frame struct {
	Rotations []mgl32.Quat
	Offsets   []mgl32.Vec3
	Valid     []bool
}

// Bind resolves each joint name by depth-first search under root, self first,
// taking the first node whose name contains the joint name. Unresolved joints
// do not stop binding; they are reported through a configuration error
// alongside a usable Skeleton.
func Bind(root *rig.Node, joints []string) (*Skeleton, error) {
	s := &Skeleton{
		bindings: make([]Binding, len(joints)),
		frame: Frame{
			Rotations: make([]mgl32.Quat, len(joints)),
			Offsets:   make([]mgl32.Vec3, len(joints)),
			Valid:     make([]bool, len(joints)),
		},
	}
	if root == nil {
		for i, name := range joints {
			s.bindings[i] = Binding{Joint: name}
		}
		return s, services.Wrap(services.ErrConfiguration, "skeleton", "bind", "rig root is nil", nil)
	}

	var missing []string
	for i, name := range joints {
		node := root.FindFirst(name)
		s.bindings[i] = Binding{Joint: name, Node: node}
		s.frame.Valid[i] = node != nil
		if node == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		msg := fmt.Sprintf("%d of %d joints unresolved: %s", len(missing), len(joints), strings.Join(missing, ", "))
		return s, services.Wrap(services.ErrConfiguration, "skeleton", "bind", msg, nil)
	}
	return s, nil
}

// Len is the number of logical joints.
func (s *Skeleton) Len() int {
	return len(s.bindings)
}

// Bindings returns a copy of the per-joint resolution.
func (s *Skeleton) Bindings() []Binding {
	out := make([]Binding, len(s.bindings))
	copy(out, s.bindings)
	return out
}

// Node returns the node bound to joint i, or nil.
func (s *Skeleton) Node(i int) *rig.Node {
	if i < 0 || i >= len(s.bindings) {
		return nil
	}
	return s.bindings[i].Node
}

// Root is the node bound to logical joint 0, or nil.
func (s *Skeleton) Root() *rig.Node {
	return s.Node(0)
}

// Unresolved lists joint names that did not bind.
func (s *Skeleton) Unresolved() []string {
	var out []string
	for _, b := range s.bindings {
		if !b.Bound() {
			out = append(out, b.Joint)
		}
	}
	return out
}

// Read samples the local rotation and translation of every bound joint. The
// returned Frame is owned by the Skeleton and overwritten by the next Read;
// unbound slots keep whatever they held before.
func (s *Skeleton) Read() Frame {
	for i, b := range s.bindings {
		if !b.Bound() {
			continue
		}
		s.frame.Rotations[i] = b.Node.Rotation
		s.frame.Offsets[i] = b.Node.Translation
	}
	return s.frame
}

// FlattenXYZW writes the rotations of f as x,y,z,w quadruples into dst,
// growing it as needed.
func (f Frame) FlattenXYZW(dst []float32) []float32 {
	dst = dst[:0]
	for _, q := range f.Rotations {
		dst = append(dst, q.V.X(), q.V.Y(), q.V.Z(), q.W)
	}
	return dst
}

// Write sets the local rotation of every bound joint from rotations. Extra or
// missing entries are ignored.
func (s *Skeleton) Write(rotations []mgl32.Quat) {
	for i, b := range s.bindings {
		if i >= len(rotations) || !b.Bound() {
			continue
		}
		b.Node.Rotation = rotations[i]
	}
}
