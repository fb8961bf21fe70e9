package rig

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Node is one transform in a rig hierarchy.
type Node struct {
	Name        string
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3

	Parent   *Node
	Children []*Node
}

// NewNode returns a node with identity rotation and unit scale.
func NewNode(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// AddChild attaches child under n and returns child.
func (n *Node) AddChild(child *Node) *Node {
	child.Parent = n
	n.Children = append(n.Children, child)
	return child
}

// LocalMatrix composes translation, rotation, and scale.
func (n *Node) LocalMatrix() mgl32.Mat4 {
	t := mgl32.Translate3D(n.Translation.X(), n.Translation.Y(), n.Translation.Z())
	s := mgl32.Scale3D(n.Scale.X(), n.Scale.Y(), n.Scale.Z())
	return t.Mul4(n.Rotation.Mat4()).Mul4(s)
}

// WorldMatrix composes local matrices from the root down to n.
func (n *Node) WorldMatrix() mgl32.Mat4 {
	m := n.LocalMatrix()
	for p := n.Parent; p != nil; p = p.Parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

// WorldPosition is the origin of n in world space.
func (n *Node) WorldPosition() mgl32.Vec3 {
	return n.WorldMatrix().Col(3).Vec3()
}

// WorldRotation composes rotations from the root down to n, ignoring scale.
func (n *Node) WorldRotation() mgl32.Quat {
	q := n.Rotation
	for p := n.Parent; p != nil; p = p.Parent {
		q = p.Rotation.Mul(q)
	}
	return q.Normalize()
}

// Walk visits n and its descendants depth first, parent before children.
// Returning false from fn stops the walk.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, child := range n.Children {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}

// FindFirst returns the first node in depth-first order, n included, whose
// name contains substr.
func (n *Node) FindFirst(substr string) *Node {
	var found *Node
	n.Walk(func(candidate *Node) bool {
		if strings.Contains(candidate.Name, substr) {
			found = candidate
			return false
		}
		return true
	})
	return found
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	total := 0
	n.Walk(func(*Node) bool {
		total++
		return true
	})
	return total
}

// Clone deep-copies the subtree rooted at n. The copy has no parent.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Name:        n.Name,
		Translation: n.Translation,
		Rotation:    n.Rotation,
		Scale:       n.Scale,
	}
	for _, child := range n.Children {
		out.AddChild(child.Clone())
	}
	return out
}
