// Package kinematics reduces poses to the displacement signals fitness
// functions are built from. Every function is pure.
package kinematics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"morphofit/internal/model"
)

// PlanarDisplacement is the distance between the (x, y) projections of two
// poses.
func PlanarDisplacement(begin, end model.Pose) float64 {
	return math.Hypot(begin.Position.X-end.Position.X, begin.Position.Y-end.Position.Y)
}

// SpatialDisplacement is the distance between two poses in (x, y, z).
func SpatialDisplacement(begin, end model.Pose) float64 {
	return r3.Norm(r3.Sub(begin.Position, end.Position))
}

// VerticalDrop is begin.z - end.z. Positive means the robot ended lower.
func VerticalDrop(begin, end model.Pose) float64 {
	return begin.Position.Z - end.Position.Z
}

// TargetZCloseness maps the height error of end to (0, 1], reaching 1
// exactly at targetZ.
func TargetZCloseness(end model.Pose, targetZ float64) float64 {
	return 1 / (1 + math.Abs(end.Position.Z-targetZ))
}

// HeightSquared is end.z squared.
func HeightSquared(end model.Pose) float64 {
	return end.Position.Z * end.Position.Z
}
