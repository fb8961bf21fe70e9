package features_test

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"rigshift/internal/contract"
	"rigshift/internal/features"
	"rigshift/internal/shape"
	"rigshift/internal/skeleton"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func testFrame(c contract.Contract) skeleton.Frame {
	j := c.JointCount()
	f := skeleton.Frame{
		Rotations: make([]mgl32.Quat, j),
		Offsets:   make([]mgl32.Vec3, j),
		Valid:     make([]bool, j),
	}
	for i := 0; i < j; i++ {
		f.Rotations[i] = mgl32.QuatRotate(float32(i)*0.1, mgl32.Vec3{0, 0, 1})
		f.Offsets[i] = mgl32.Vec3{0, 0.1, 0}
		f.Valid[i] = true
	}
	return f
}

func TestAssembleLayout(t *testing.T) {
	c := contract.Default()
	desc := make(shape.Descriptor, c.OffsetLen())
	desc[5] = 0.5
	a := features.NewAssembler(c, desc)
	frame := testFrame(c)

	set := a.Assemble(frame, features.Root{Rotation: mgl32.QuatIdent()}, 1.0/30)
	if len(set.Sequence) != 70 || len(set.Orientation) != 88 || len(set.Offsets) != 66 || len(set.Shape) != 66 {
		t.Fatalf("unexpected lengths %d %d %d %d", len(set.Sequence), len(set.Orientation), len(set.Offsets), len(set.Shape))
	}
	for i := 0; i < 66; i++ {
		if set.Sequence[i] != 0 {
			t.Fatalf("reserved region must be zero, index %d = %v", i, set.Sequence[i])
		}
	}
	q := frame.Rotations[3]
	if set.Orientation[12] != q.W || set.Orientation[13] != q.V.X() || set.Orientation[15] != q.V.Z() {
		t.Fatalf("orientation must be w,x,y,z: %v", set.Orientation[12:16])
	}
	if !near(set.Offsets[4], 10) {
		t.Fatalf("offsets must be scaled by 100, got %v", set.Offsets[4])
	}
	// Eight height joints of length 0.1 each.
	if !near(set.Height, 0.8) {
		t.Fatalf("unexpected height %v", set.Height)
	}
	if set.Shape[5] != 0.5 {
		t.Fatal("descriptor not passed through")
	}
}

func TestAssembleVelocity(t *testing.T) {
	c := contract.Default()
	a := features.NewAssembler(c, make(shape.Descriptor, c.OffsetLen()))
	frame := testFrame(c)
	vel := func(s features.Set) mgl32.Vec3 {
		return mgl32.Vec3{s.Sequence[66], s.Sequence[67], s.Sequence[68]}
	}

	first := a.Assemble(frame, features.Root{Position: mgl32.Vec3{5, 0, 0}, Rotation: mgl32.QuatIdent()}, 0.5)
	if vel(first) != (mgl32.Vec3{}) {
		t.Fatalf("first frame velocity must be zero, got %v", vel(first))
	}

	moved := a.Assemble(frame, features.Root{Position: mgl32.Vec3{5.5, 0, 0.25}, Rotation: mgl32.QuatIdent()}, 0.5)
	if v := vel(moved); !near(v.X(), 100) || !near(v.Z(), 50) || v.Y() != 0 {
		t.Fatalf("unexpected velocity %v", v)
	}

	still := a.Assemble(frame, features.Root{Position: mgl32.Vec3{5.5, 0, 0.25}, Rotation: mgl32.QuatIdent()}, 0.5)
	if vel(still) != (mgl32.Vec3{}) {
		t.Fatalf("unmoved root must have zero velocity, got %v", vel(still))
	}

	paused := a.Assemble(frame, features.Root{Position: mgl32.Vec3{9, 9, 9}, Rotation: mgl32.QuatIdent()}, 0)
	if vel(paused) != (mgl32.Vec3{}) {
		t.Fatalf("zero elapsed must yield zero velocity, got %v", vel(paused))
	}
	if !near(paused.Height, moved.Height) {
		t.Fatal("height must not depend on velocity")
	}

	a.Reset()
	reset := a.Assemble(frame, features.Root{Position: mgl32.Vec3{0, 0, 0}, Rotation: mgl32.QuatIdent()}, 0.5)
	if vel(reset) != (mgl32.Vec3{}) {
		t.Fatalf("velocity after reset must be zero, got %v", vel(reset))
	}
}

func TestAssembleYaw(t *testing.T) {
	c := contract.Default()
	a := features.NewAssembler(c, make(shape.Descriptor, c.OffsetLen()))
	rot := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	set := a.Assemble(testFrame(c), features.Root{Rotation: rot}, 0.1)
	if !near(set.Sequence[69], math.Pi/2) {
		t.Fatalf("unexpected yaw %v", set.Sequence[69])
	}
}

func TestHeightIgnoresOutOfRangeJoints(t *testing.T) {
	offsets := []float32{3, 4, 0, 0, 0, 12}
	if got := features.Height(offsets, []int{0, 1, 7, -1}, 1); !near(got, 17) {
		t.Fatalf("unexpected height %v", got)
	}
	if got := features.Height(offsets, []int{0}, 100); !near(got, 0.05) {
		t.Fatalf("unexpected scaled height %v", got)
	}
}
