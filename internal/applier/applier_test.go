package applier_test

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"rigshift/internal/applier"
	"rigshift/internal/rig"
	"rigshift/internal/skeleton"
)

func TestNormalizeProducesUnitLength(t *testing.T) {
	cases := [][4]float32{
		{1, 0, 0, 0},
		{2, 0, 0, 0},
		{0.5, 0.5, 0.5, 0.5},
		{3, -4, 12, 0.1},
		{1e-7, 0, 0, 0},
		{-0.2, 0.9, 0.1, -0.3},
	}
	for _, c := range cases {
		q := applier.Normalize(c[0], c[1], c[2], c[3])
		if math.Abs(float64(q.Len())-1) > 1e-6 {
			t.Fatalf("%v: length %v", c, q.Len())
		}
	}
}

func TestNormalizeKeepsComponentOrder(t *testing.T) {
	q := applier.Normalize(0, 2, 0, 0)
	if q.W != 0 || q.V.X() != 1 || q.V.Y() != 0 || q.V.Z() != 0 {
		t.Fatalf("expected w,x,y,z input order, got %v", q)
	}
}

func TestNormalizeDegenerateYieldsIdentity(t *testing.T) {
	inf := float32(math.Inf(1))
	nan := float32(math.NaN())
	for _, c := range [][4]float32{{0, 0, 0, 0}, {1e-9, 0, 0, 0}, {nan, 0, 0, 0}, {inf, 0, 0, 0}} {
		if q := applier.Normalize(c[0], c[1], c[2], c[3]); q != mgl32.QuatIdent() {
			t.Fatalf("%v: expected identity, got %v", c, q)
		}
	}
}

func TestApplyWritesTarget(t *testing.T) {
	root := rig.NewNode("Hips")
	spine := root.AddChild(rig.NewNode("Spine"))
	target, _ := skeleton.Bind(root, []string{"Hip", "Neck", "Spine"})

	raw := []float32{
		0, 0, 0, 0,
		1, 0, 0, 0,
		0, 0, 3, 0,
	}
	written := applier.New(target).Apply(raw)
	if len(written) != 3 {
		t.Fatalf("expected 3 rotations, got %d", len(written))
	}
	if root.Rotation != mgl32.QuatIdent() {
		t.Fatalf("zero quaternion must apply identity, got %v", root.Rotation)
	}
	want := mgl32.Quat{W: 0, V: mgl32.Vec3{0, 1, 0}}
	if spine.Rotation != want {
		t.Fatalf("unexpected spine rotation %v", spine.Rotation)
	}
	for _, q := range written {
		if math.IsNaN(float64(q.W)) {
			t.Fatal("NaN in applied rotation")
		}
	}
}
