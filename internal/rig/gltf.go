package rig

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// LoadGLTF opens a .gltf or .glb file and builds its rig.
func LoadGLTF(path string) (*Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf %s: %w", path, err)
	}
	model, err := FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("gltf %s: %w", path, err)
	}
	return model, nil
}

// FromDocument builds the node tree of the default scene and every mesh
// instanced by it. Scenes with several top-level nodes get a synthetic root.
func FromDocument(doc *gltf.Document) (*Model, error) {
	if doc == nil || len(doc.Nodes) == 0 {
		return nil, errors.New("document has no nodes")
	}

	nodes := make([]*Node, len(doc.Nodes))
	for i, src := range doc.Nodes {
		nodes[i] = convertNode(src, i)
	}
	hasParent := make([]bool, len(doc.Nodes))
	for i, src := range doc.Nodes {
		for _, child := range src.Children {
			if child < 0 || child >= len(nodes) {
				return nil, fmt.Errorf("node %d references missing child %d", i, child)
			}
			if hasParent[child] {
				return nil, fmt.Errorf("node %d has more than one parent", child)
			}
			hasParent[child] = true
			nodes[i].AddChild(nodes[child])
		}
	}

	roots, sceneName := sceneRoots(doc, hasParent)
	if len(roots) == 0 {
		return nil, errors.New("scene has no root nodes")
	}

	model := &Model{}
	if len(roots) == 1 {
		model.Root = nodes[roots[0]]
	} else {
		model.Root = NewNode(sceneName)
		for _, idx := range roots {
			model.Root.AddChild(nodes[idx])
		}
	}

	for _, src := range doc.Nodes {
		if src.Mesh == nil {
			continue
		}
		mesh, err := readMesh(doc, src)
		if err != nil {
			return nil, err
		}
		model.Meshes = append(model.Meshes, mesh)
	}
	return model, nil
}

func convertNode(src *gltf.Node, index int) *Node {
	name := src.Name
	if name == "" {
		name = fmt.Sprintf("node_%d", index)
	}
	n := NewNode(name)
	if src.Matrix != [16]float64{} && src.Matrix != identityMatrix {
		var m mgl32.Mat4
		for i, v := range src.Matrix {
			m[i] = float32(v)
		}
		n.Translation = m.Col(3).Vec3()
		n.Scale = mgl32.Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}
		rot := m.Mat3()
		for c := 0; c < 3; c++ {
			if s := n.Scale[c]; s > 0 {
				col := rot.Col(c).Mul(1 / s)
				rot.SetCol(c, col)
			}
		}
		n.Rotation = mgl32.Mat4ToQuat(rot.Mat4()).Normalize()
		return n
	}
	n.Translation = mgl32.Vec3{float32(src.Translation[0]), float32(src.Translation[1]), float32(src.Translation[2])}
	if src.Rotation != [4]float64{} {
		n.Rotation = mgl32.Quat{
			W: float32(src.Rotation[3]),
			V: mgl32.Vec3{float32(src.Rotation[0]), float32(src.Rotation[1]), float32(src.Rotation[2])},
		}
	}
	if src.Scale != [3]float64{} {
		n.Scale = mgl32.Vec3{float32(src.Scale[0]), float32(src.Scale[1]), float32(src.Scale[2])}
	}
	return n
}

var identityMatrix = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func sceneRoots(doc *gltf.Document, hasParent []bool) ([]int, string) {
	sceneIdx := 0
	if doc.Scene != nil {
		sceneIdx = *doc.Scene
	}
	if sceneIdx >= 0 && sceneIdx < len(doc.Scenes) && len(doc.Scenes[sceneIdx].Nodes) > 0 {
		scene := doc.Scenes[sceneIdx]
		name := scene.Name
		if name == "" {
			name = "Scene"
		}
		return scene.Nodes, name
	}
	var roots []int
	for i, parented := range hasParent {
		if !parented {
			roots = append(roots, i)
		}
	}
	return roots, "Scene"
}

func readMesh(doc *gltf.Document, src *gltf.Node) (*Mesh, error) {
	meshIdx := *src.Mesh
	if meshIdx < 0 || meshIdx >= len(doc.Meshes) {
		return nil, fmt.Errorf("node %q references missing mesh %d", src.Name, meshIdx)
	}
	gm := doc.Meshes[meshIdx]
	mesh := &Mesh{Name: gm.Name}
	if mesh.Name == "" {
		mesh.Name = src.Name
	}

	if src.Skin != nil {
		skinIdx := *src.Skin
		if skinIdx < 0 || skinIdx >= len(doc.Skins) {
			return nil, fmt.Errorf("node %q references missing skin %d", src.Name, skinIdx)
		}
		for _, joint := range doc.Skins[skinIdx].Joints {
			if joint < 0 || joint >= len(doc.Nodes) {
				return nil, fmt.Errorf("skin %d references missing node %d", skinIdx, joint)
			}
			mesh.Bones = append(mesh.Bones, doc.Nodes[joint].Name)
		}
	}

	for p, prim := range gm.Primitives {
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		jointIdx, hasJoints := prim.Attributes[gltf.JOINTS_0]
		weightIdx, hasWeights := prim.Attributes[gltf.WEIGHTS_0]
		skinned := hasJoints && hasWeights
		// A skinned mesh keeps only weighted vertices so Positions and
		// Weights stay index aligned.
		if src.Skin != nil && !skinned {
			continue
		}

		posAcc, err := accessor(doc, posIdx)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d positions: %w", mesh.Name, p, err)
		}
		positions, err := modeler.ReadPosition(doc, posAcc, nil)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d positions: %w", mesh.Name, p, err)
		}
		if src.Skin == nil {
			for _, v := range positions {
				mesh.Positions = append(mesh.Positions, mgl32.Vec3{v[0], v[1], v[2]})
			}
			continue
		}

		jointAcc, err := accessor(doc, jointIdx)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d joints: %w", mesh.Name, p, err)
		}
		joints, err := modeler.ReadJoints(doc, jointAcc, nil)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d joints: %w", mesh.Name, p, err)
		}
		weightAcc, err := accessor(doc, weightIdx)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d weights: %w", mesh.Name, p, err)
		}
		weights, err := modeler.ReadWeights(doc, weightAcc, nil)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d weights: %w", mesh.Name, p, err)
		}
		count := min(len(joints), len(weights), len(positions))
		for v := 0; v < count; v++ {
			var inf [4]Influence
			for k := 0; k < 4; k++ {
				inf[k] = Influence{Bone: int(joints[v][k]), Weight: weights[v][k]}
			}
			mesh.Positions = append(mesh.Positions, mgl32.Vec3{positions[v][0], positions[v][1], positions[v][2]})
			mesh.Weights = append(mesh.Weights, inf)
		}
	}
	return mesh, nil
}

func accessor(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, fmt.Errorf("missing accessor %d", idx)
	}
	return doc.Accessors[idx], nil
}
