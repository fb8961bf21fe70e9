// Package applier turns raw model quaternions into target rig orientations.
package applier

import (
	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/num/quat"

	"rigshift/internal/skeleton"
)

// MinMagnitude is the smallest quaternion length that is normalized; shorter
// quaternions become the identity.
const MinMagnitude = 1e-8

// Normalize converts one w,x,y,z quadruple into a unit rotation. It is total:
// near-zero, zero, and non-finite magnitudes all yield the identity.
func Normalize(w, x, y, z float32) mgl32.Quat {
	q := quat.Number{Real: float64(w), Imag: float64(x), Jmag: float64(y), Kmag: float64(z)}
	mag := quat.Abs(q)
	if !(mag >= MinMagnitude) || quat.IsInf(q) {
		return mgl32.QuatIdent()
	}
	u := quat.Scale(1/mag, q)
	return mgl32.Quat{
		W: float32(u.Real),
		V: mgl32.Vec3{float32(u.Imag), float32(u.Jmag), float32(u.Kmag)},
	}
}

// Decode normalizes every quadruple of raw, a w,x,y,z buffer, into dst.
func Decode(raw []float32, dst []mgl32.Quat) []mgl32.Quat {
	n := len(raw) / 4
	if cap(dst) < n {
		dst = make([]mgl32.Quat, n)
	}
	dst = dst[:n]
	for i := 0; i < n; i++ {
		dst[i] = Normalize(raw[i*4], raw[i*4+1], raw[i*4+2], raw[i*4+3])
	}
	return dst
}

// Applier writes decoded model output onto a target skeleton.
type Applier struct {
	target  *skeleton.Skeleton
	scratch []mgl32.Quat
}

// New binds an applier to the target skeleton.
func New(target *skeleton.Skeleton) *Applier {
	return &Applier{target: target}
}

// Apply normalizes raw and sets each bound target joint's local rotation.
// It returns the rotations written, indexed by logical joint.
func (a *Applier) Apply(raw []float32) []mgl32.Quat {
	a.scratch = Decode(raw, a.scratch)
	a.target.Write(a.scratch)
	return a.scratch
}
