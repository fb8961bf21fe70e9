package rig_test

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"rigshift/internal/rig"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func vecApprox(a, b mgl32.Vec3) bool {
	return approx(a.X(), b.X()) && approx(a.Y(), b.Y()) && approx(a.Z(), b.Z())
}

func TestWorldTransformsCompose(t *testing.T) {
	root := rig.NewNode("Root")
	root.Translation = mgl32.Vec3{1, 0, 0}
	root.Rotation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	child := root.AddChild(rig.NewNode("Child"))
	child.Translation = mgl32.Vec3{0, 0, 2}

	// A quarter turn about +Y maps +Z to +X.
	if got := child.WorldPosition(); !vecApprox(got, mgl32.Vec3{3, 0, 0}) {
		t.Fatalf("unexpected world position %v", got)
	}
	if got := child.WorldRotation(); !got.ApproxEqualThreshold(root.Rotation, 1e-5) {
		t.Fatalf("unexpected world rotation %v", got)
	}
	if child.Parent != root || len(root.Children) != 1 {
		t.Fatal("AddChild must link both directions")
	}
}

func TestFindFirstSelfBeforeChildren(t *testing.T) {
	root := rig.NewNode("mixamorig:Hips")
	spine := root.AddChild(rig.NewNode("mixamorig:Spine"))
	spine1 := spine.AddChild(rig.NewNode("mixamorig:Spine1"))
	spine1.AddChild(rig.NewNode("mixamorig:Spine2"))
	root.AddChild(rig.NewNode("mixamorig:LeftUpLeg"))

	if got := root.FindFirst("Hips"); got != root {
		t.Fatalf("expected root, got %v", got)
	}
	if got := root.FindFirst("Spine"); got != spine {
		t.Fatalf("expected first Spine match in DFS order, got %q", got.Name)
	}
	if got := root.FindFirst("Spine1"); got != spine1 {
		t.Fatalf("expected Spine1, got %q", got.Name)
	}
	if got := root.FindFirst("Head"); got != nil {
		t.Fatalf("expected no match, got %q", got.Name)
	}
	if root.Count() != 5 {
		t.Fatalf("expected 5 nodes, got %d", root.Count())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	root := rig.NewNode("Hip")
	root.AddChild(rig.NewNode("Spine"))
	copied := root.Clone()
	copied.Children[0].Rotation = mgl32.QuatRotate(1, mgl32.Vec3{1, 0, 0})
	if root.Children[0].Rotation != mgl32.QuatIdent() {
		t.Fatal("clone must not share nodes")
	}
	if copied.Children[0].Parent != copied {
		t.Fatal("clone must relink parents")
	}
}

func TestYawRadians(t *testing.T) {
	cases := []struct {
		deg  float32
		want float32
	}{
		{0, 0},
		{90, math.Pi / 2},
		{180, math.Pi},
		{-90, 3 * math.Pi / 2},
	}
	for _, tc := range cases {
		q := mgl32.QuatRotate(mgl32.DegToRad(tc.deg), mgl32.Vec3{0, 1, 0})
		got := rig.YawRadians(q)
		if !approx(got, tc.want) {
			t.Fatalf("yaw(%v°) = %v, want %v", tc.deg, got, tc.want)
		}
		if got < 0 || got >= 2*math.Pi {
			t.Fatalf("yaw out of range: %v", got)
		}
	}

	// Pitch alone leaves heading unchanged.
	pitch := mgl32.QuatRotate(mgl32.DegToRad(30), mgl32.Vec3{1, 0, 0})
	if got := rig.YawRadians(pitch); !approx(got, 0) {
		t.Fatalf("expected zero yaw for pure pitch, got %v", got)
	}
}
