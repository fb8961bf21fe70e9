package rig

import "github.com/go-gl/mathgl/mgl32"

// Influence binds a vertex to one skin bone.
type Influence struct {
	Bone   int
	Weight float32
}

// Mesh is a bind-pose mesh. For a skinned mesh the glTF loader keeps only
// vertices of primitives that carry JOINTS_0 and WEIGHTS_0.
type Mesh struct {
	Name      string
	Positions []mgl32.Vec3
	// Weights holds up to four influences per vertex. It may be shorter than
	// Positions; vertices past its end carry no skin data and are ignored by
	// shape extraction.
	Weights [][4]Influence
	// Bones lists skin bone names; Influence.Bone indexes into it.
	Bones []string
}

// Skinned reports whether the mesh carries any weight data.
func (m *Mesh) Skinned() bool {
	return m != nil && len(m.Weights) > 0
}

// Model is a loaded rig: its hierarchy and any skinned meshes.
type Model struct {
	Root   *Node
	Meshes []*Mesh
}

// Mesh returns the mesh with the given name, or the first skinned mesh when
// name is empty.
func (m *Model) Mesh(name string) *Mesh {
	if m == nil {
		return nil
	}
	for _, mesh := range m.Meshes {
		if name == "" && mesh.Skinned() {
			return mesh
		}
		if name != "" && mesh.Name == name {
			return mesh
		}
	}
	return nil
}
