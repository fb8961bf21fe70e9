package rig

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// YawRadians returns the heading of q about +Y in [0, 2π). Heading is measured
// from +Z toward +X, so a quarter turn to the right yields π/2.
func YawRadians(q mgl32.Quat) float32 {
	forward := q.Normalize().Rotate(mgl32.Vec3{0, 0, 1})
	yaw := math.Atan2(float64(forward.X()), float64(forward.Z()))
	if yaw < 0 {
		yaw += 2 * math.Pi
	}
	out := float32(yaw)
	if out >= float32(2*math.Pi) {
		return 0
	}
	return out
}
