package contract_test

import (
	"testing"

	"rigshift/internal/contract"
)

func TestDefaultContractShapes(t *testing.T) {
	c := contract.Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default contract invalid: %v", err)
	}
	if c.JointCount() != 22 {
		t.Fatalf("expected 22 joints, got %d", c.JointCount())
	}
	if c.SequenceLen() != 70 || c.OrientationLen() != 88 || c.OffsetLen() != 66 {
		t.Fatalf("unexpected lengths seq=%d quat=%d skel=%d", c.SequenceLen(), c.OrientationLen(), c.OffsetLen())
	}

	shapes := c.InputShapes()
	want := map[string][]int64{
		"seqA":       {1, 1, 70},
		"quatA":      {1, 1, 22, 4},
		"skelA":      {1, 1, 22, 3},
		"shapeA":     {1, 66},
		"inp_height": {1, 1},
	}
	for name, dims := range want {
		got, ok := shapes[name]
		if !ok {
			t.Fatalf("missing input %q", name)
		}
		if len(got) != len(dims) {
			t.Fatalf("input %q: got %v want %v", name, got, dims)
		}
		for i := range dims {
			if got[i] != dims[i] {
				t.Fatalf("input %q: got %v want %v", name, got, dims)
			}
		}
	}
}

func TestDefaultReturnsIndependentJointSlice(t *testing.T) {
	a := contract.Default()
	a.Joints[0] = "Changed"
	if contract.Default().Joints[0] != "Hip" {
		t.Fatal("Default must not share its joint slice")
	}
}

func TestValidateRejectsInconsistentContracts(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*contract.Contract)
	}{
		{"no joints", func(c *contract.Contract) { c.Joints = nil }},
		{"duplicate joint", func(c *contract.Contract) { c.Joints[1] = "Hip" }},
		{"blank joint", func(c *contract.Contract) { c.Joints[2] = " " }},
		{"zero scale", func(c *contract.Contract) { c.UnitScale = 0 }},
		{"height out of range", func(c *contract.Contract) { c.HeightJoints = []int{1, 22} }},
		{"fallback out of range", func(c *contract.Contract) { c.VertexFallbackJoint = 40 }},
		{"duplicate tensor", func(c *contract.Contract) { c.Inputs.Height = "seqA" }},
		{"empty tensor", func(c *contract.Contract) { c.Outputs.Orientation = "" }},
		{"zero version", func(c *contract.Contract) { c.Version = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := contract.Default()
			tc.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateAcceptsUnassignedFallback(t *testing.T) {
	c := contract.Default()
	c.VertexFallbackJoint = contract.Unassigned
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
