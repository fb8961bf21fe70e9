package testsupport

import (
	"github.com/go-gl/mathgl/mgl32"

	"rigshift/internal/rig"
)

type limb struct {
	name   string
	offset mgl32.Vec3
	parent string
}

// humanoid lists bones parent first, offsets in metres.
var humanoid = []limb{
	{"Hips", mgl32.Vec3{0, 1, 0}, ""},
	{"Spine", mgl32.Vec3{0, 0.1, 0}, "Hips"},
	{"Spine1", mgl32.Vec3{0, 0.12, 0}, "Spine"},
	{"Spine2", mgl32.Vec3{0, 0.12, 0}, "Spine1"},
	{"Neck", mgl32.Vec3{0, 0.15, 0}, "Spine2"},
	{"Head", mgl32.Vec3{0, 0.1, 0}, "Neck"},
	{"LeftShoulder", mgl32.Vec3{0.05, 0.12, 0}, "Spine2"},
	{"LeftArm", mgl32.Vec3{0.12, 0, 0}, "LeftShoulder"},
	{"LeftForeArm", mgl32.Vec3{0.26, 0, 0}, "LeftArm"},
	{"LeftHand", mgl32.Vec3{0.25, 0, 0}, "LeftForeArm"},
	{"RightShoulder", mgl32.Vec3{-0.05, 0.12, 0}, "Spine2"},
	{"RightArm", mgl32.Vec3{-0.12, 0, 0}, "RightShoulder"},
	{"RightForeArm", mgl32.Vec3{-0.26, 0, 0}, "RightArm"},
	{"RightHand", mgl32.Vec3{-0.25, 0, 0}, "RightForeArm"},
	{"LeftUpLeg", mgl32.Vec3{0.09, -0.05, 0}, "Hips"},
	{"LeftLeg", mgl32.Vec3{0, -0.42, 0}, "LeftUpLeg"},
	{"LeftFoot", mgl32.Vec3{0, -0.4, 0}, "LeftLeg"},
	{"LeftToeBase", mgl32.Vec3{0, -0.05, 0.12}, "LeftFoot"},
	{"RightUpLeg", mgl32.Vec3{-0.09, -0.05, 0}, "Hips"},
	{"RightLeg", mgl32.Vec3{0, -0.42, 0}, "RightUpLeg"},
	{"RightFoot", mgl32.Vec3{0, -0.4, 0}, "RightLeg"},
	{"RightToeBase", mgl32.Vec3{0, -0.05, 0.12}, "RightFoot"},
}

// Humanoid builds a 22-bone rig whose bone names carry prefix, for example
// "mixamorig:". Every default contract joint resolves against it.
func Humanoid(prefix string) *rig.Node {
	nodes := make(map[string]*rig.Node, len(humanoid))
	var root *rig.Node
	for _, l := range humanoid {
		n := rig.NewNode(prefix + l.name)
		n.Translation = l.offset
		nodes[l.name] = n
		if l.parent == "" {
			root = n
			continue
		}
		nodes[l.parent].AddChild(n)
	}
	return root
}

// SkinnedHumanoid wraps Humanoid in a model with one skinned mesh. Each bone
// gets a small box of eight vertices around its world position, weighted
// fully to that bone.
func SkinnedHumanoid(prefix string) *rig.Model {
	root := Humanoid(prefix)
	mesh := &rig.Mesh{Name: "Body"}
	root.Walk(func(n *rig.Node) bool {
		bone := len(mesh.Bones)
		mesh.Bones = append(mesh.Bones, n.Name)
		center := n.WorldPosition()
		for _, corner := range boxCorners(0.02) {
			mesh.Positions = append(mesh.Positions, center.Add(corner))
			mesh.Weights = append(mesh.Weights, [4]rig.Influence{{Bone: bone, Weight: 1}})
		}
		return true
	})
	return &rig.Model{Root: root, Meshes: []*rig.Mesh{mesh}}
}

func boxCorners(h float32) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, 0, 8)
	for _, x := range []float32{-h, h} {
		for _, y := range []float32{-h, h} {
			for _, z := range []float32{-h, h} {
				out = append(out, mgl32.Vec3{x, y, z})
			}
		}
	}
	return out
}
