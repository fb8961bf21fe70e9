package bonemap_test

import (
	"slices"
	"testing"

	"rigshift/internal/bonemap"
	"rigshift/internal/contract"
)

func TestBuildLongestMatchWins(t *testing.T) {
	joints := contract.Default().Joints
	bones := []string{
		"mixamorig:Hips",
		"mixamorig:Spine",
		"mixamorig:Spine1",
		"mixamorig:Spine2",
		"mixamorig:LeftUpLeg",
		"mixamorig:LeftLeg",
		"mixamorig:LeftForeArm",
		"mixamorig:LeftArm",
		"mixamorig:RightHandIndex1",
		"MIXAMORIG:HEAD",
		"Tail",
	}
	got := bonemap.Build(bones, joints)
	want := bonemap.Map{0, 1, 2, 3, 6, 7, 16, 15, 21, 5, contract.Unassigned}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected map\n got %v\nwant %v", got, want)
	}
}

func TestBuildTiesKeepLowestIndex(t *testing.T) {
	joints := []string{"Arm", "arm", "Leg"}
	got := bonemap.Build([]string{"LeftARM", "legarm"}, joints)
	if !slices.Equal(got, bonemap.Map{0, 0}) {
		t.Fatalf("expected lowest index on equal length, got %v", got)
	}
}

func TestBuildDeterministic(t *testing.T) {
	joints := contract.Default().Joints
	bones := []string{"Bip01 Spine2", "Bip01 L Thigh", "LeftHandThumb", "RightShoulderPad", "Neck_end"}
	first := bonemap.Build(bones, joints)
	for i := 0; i < 20; i++ {
		if again := bonemap.Build(bones, joints); !slices.Equal(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, first, again)
		}
	}
}

func TestMapHelpers(t *testing.T) {
	m := bonemap.Map{0, contract.Unassigned, 2, 2}
	if m.Joint(-1) != contract.Unassigned || m.Joint(10) != contract.Unassigned || m.Joint(2) != 2 {
		t.Fatal("Joint lookup failed")
	}
	if m.Assigned() != 3 {
		t.Fatalf("expected 3 assigned, got %d", m.Assigned())
	}
	if cov := m.Coverage(3); !slices.Equal(cov, []int{1, 0, 2}) {
		t.Fatalf("unexpected coverage %v", cov)
	}
}
