// Package bonemap assigns skin bones to logical joints by name.
package bonemap

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"rigshift/internal/contract"
)

// Map holds one logical joint index per skin bone, or contract.Unassigned.
type Map []int

// Build maps each bone to the logical joint whose name it contains, ignoring
// case. When several joint names match, the longest wins; equal lengths keep
// the lowest joint index.
func Build(bones, joints []string) Map {
	fold := cases.Fold()
	folded := make([]string, len(joints))
	lengths := make([]int, len(joints))
	for i, joint := range joints {
		folded[i] = fold.String(joint)
		lengths[i] = utf8.RuneCountInString(joint)
	}

	out := make(Map, len(bones))
	for b, bone := range bones {
		name := fold.String(bone)
		best, bestLen := contract.Unassigned, 0
		for j, candidate := range folded {
			if candidate == "" || !strings.Contains(name, candidate) {
				continue
			}
			if lengths[j] > bestLen {
				best, bestLen = j, lengths[j]
			}
		}
		out[b] = best
	}
	return out
}

// Joint returns the logical joint for bone, or contract.Unassigned when the
// bone index is out of range or unmapped.
func (m Map) Joint(bone int) int {
	if bone < 0 || bone >= len(m) {
		return contract.Unassigned
	}
	return m[bone]
}

// Assigned counts bones mapped to a joint.
func (m Map) Assigned() int {
	n := 0
	for _, j := range m {
		if j != contract.Unassigned {
			n++
		}
	}
	return n
}

// Coverage reports, per logical joint, how many bones mapped to it.
func (m Map) Coverage(jointCount int) []int {
	counts := make([]int, jointCount)
	for _, j := range m {
		if j >= 0 && j < jointCount {
			counts[j]++
		}
	}
	return counts
}
