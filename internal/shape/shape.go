// Package shape computes the per-joint body proportion descriptor of a rig
// from its bind-pose mesh.
package shape

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"rigshift/internal/bonemap"
	"rigshift/internal/contract"
	"rigshift/internal/rig"
	"rigshift/internal/services"
)

// MinExtent is the smallest whole-mesh axis extent used as a divisor; axes
// below it divide by one instead.
const MinExtent = 1e-8

// Descriptor holds one normalized x,y,z extent per logical joint.
type Descriptor []float32

// Joint returns the extent triplet of joint j.
func (d Descriptor) Joint(j int) [3]float32 {
	return [3]float32{d[j*3], d[j*3+1], d[j*3+2]}
}

// Result is the outcome of one extraction.
type Result struct {
	Descriptor Descriptor
	// Vertices counts the vertices assigned to each joint.
	Vertices []int
	// Fallback counts vertices whose influences mapped to no joint.
	Fallback int
	// Extent is the whole-mesh bounding box size.
	Extent r3.Vec
}

// Options tunes vertex assignment.
type Options struct {
	// FallbackJoint receives vertices with no mapped influence.
	// contract.Unassigned drops them.
	FallbackJoint int
}

// Extract computes the descriptor for jointCount joints. Invalid input yields
// a configuration error together with a zero descriptor of the right length.
func Extract(mesh *rig.Mesh, boneMap bonemap.Map, jointCount int, opts Options) (Result, error) {
	res := Result{
		Descriptor: make(Descriptor, jointCount*3),
		Vertices:   make([]int, jointCount),
	}
	switch {
	case mesh == nil:
		return res, services.Wrap(services.ErrConfiguration, "shape", "extract", "mesh is nil", nil)
	case !mesh.Skinned():
		return res, services.Wrap(services.ErrConfiguration, "shape", "extract", fmt.Sprintf("mesh %q has no skin weights", mesh.Name), nil)
	case len(boneMap) != len(mesh.Bones):
		msg := fmt.Sprintf("bone map has %d entries for %d skin bones", len(boneMap), len(mesh.Bones))
		return res, services.Wrap(services.ErrConfiguration, "shape", "extract", msg, nil)
	}

	// Positions past the end of Weights carry no skin data.
	count := min(len(mesh.Positions), len(mesh.Weights))
	if count == 0 {
		msg := fmt.Sprintf("mesh %q has no weighted vertex positions", mesh.Name)
		return res, services.Wrap(services.ErrConfiguration, "shape", "extract", msg, nil)
	}
	full := newBounds()
	for v := 0; v < count; v++ {
		full.add(mesh.Positions[v])
	}
	res.Extent = full.size()

	joints := make([]bounds, jointCount)
	for j := range joints {
		joints[j] = newBounds()
	}
	for v := 0; v < count; v++ {
		j := assign(mesh.Weights[v], boneMap, jointCount)
		if j == contract.Unassigned {
			res.Fallback++
			j = opts.FallbackJoint
			if j < 0 || j >= jointCount {
				continue
			}
		}
		joints[j].add(mesh.Positions[v])
		res.Vertices[j]++
	}

	div := r3.Vec{X: floor(res.Extent.X), Y: floor(res.Extent.Y), Z: floor(res.Extent.Z)}
	for j := range joints {
		size := joints[j].size()
		res.Descriptor[j*3] = float32(size.X / div.X)
		res.Descriptor[j*3+1] = float32(size.Y / div.Y)
		res.Descriptor[j*3+2] = float32(size.Z / div.Z)
	}
	return res, nil
}

// assign picks the mapped influence with the greatest weight. Zero weights
// never win.
func assign(influences [4]rig.Influence, boneMap bonemap.Map, jointCount int) int {
	best := contract.Unassigned
	var bestWeight float32
	for _, inf := range influences {
		j := boneMap.Joint(inf.Bone)
		if j < 0 || j >= jointCount {
			continue
		}
		if inf.Weight > bestWeight {
			best, bestWeight = j, inf.Weight
		}
	}
	return best
}

func floor(v float64) float64 {
	if v < MinExtent {
		return 1
	}
	return v
}

type bounds struct {
	min, max r3.Vec
	empty    bool
}

func newBounds() bounds {
	return bounds{empty: true}
}

func (b *bounds) add(p [3]float32) {
	v := r3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
	if b.empty {
		b.min, b.max, b.empty = v, v, false
		return
	}
	b.min = r3.Vec{X: math.Min(b.min.X, v.X), Y: math.Min(b.min.Y, v.Y), Z: math.Min(b.min.Z, v.Z)}
	b.max = r3.Vec{X: math.Max(b.max.X, v.X), Y: math.Max(b.max.Y, v.Y), Z: math.Max(b.max.Z, v.Z)}
}

func (b bounds) size() r3.Vec {
	if b.empty {
		return r3.Vec{}
	}
	return r3.Sub(b.max, b.min)
}
