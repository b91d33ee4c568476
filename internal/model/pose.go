package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrEmptyTrajectory = errors.New("trajectory has no poses")
	ErrNonFinitePose   = errors.New("pose has non-finite coordinates")
)

// Pose is the position and orientation of a robot core at one simulated
// instant.
type Pose struct {
	Position    r3.Vec      `json:"position"`
	Orientation quat.Number `json:"orientation"`
}

// NewPose returns a pose at (x, y, z) with identity orientation.
func NewPose(x, y, z float64) Pose {
	return Pose{
		Position:    r3.Vec{X: x, Y: y, Z: z},
		Orientation: quat.Number{Real: 1},
	}
}

func (p Pose) Validate() error {
	for _, v := range []float64{p.Position.X, p.Position.Y, p.Position.Z, p.Orientation.Real, p.Orientation.Imag, p.Orientation.Jmag, p.Orientation.Kmag} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %+v", ErrNonFinitePose, p.Position)
		}
	}
	return nil
}

// Trajectory is the ordered sequence of poses one robot went through in
// one simulated scene.
type Trajectory []Pose

// Endpoints returns the first and last pose. Both must be finite.
func (t Trajectory) Endpoints() (Pose, Pose, error) {
	if len(t) == 0 {
		return Pose{}, Pose{}, ErrEmptyTrajectory
	}
	begin, end := t[0], t[len(t)-1]
	if err := begin.Validate(); err != nil {
		return Pose{}, Pose{}, fmt.Errorf("begin: %w", err)
	}
	if err := end.Validate(); err != nil {
		return Pose{}, Pose{}, fmt.Errorf("end: %w", err)
	}
	return begin, end, nil
}

// Positions returns a copy of the position component of every pose.
func (t Trajectory) Positions() []r3.Vec {
	out := make([]r3.Vec, len(t))
	for i, p := range t {
		out[i] = p.Position
	}
	return out
}

// FitnessContext carries the generation state that selects the active
// objective stage.
type FitnessContext struct {
	GenerationIndex     int `json:"generation_index"`
	GenerationThreshold int `json:"generation_threshold"`
}
