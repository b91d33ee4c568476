package kinematics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"morphofit/internal/model"
)

// PathSummary describes a whole trajectory rather than its endpoints.
type PathSummary struct {
	Samples      int     `json:"samples" csv:"samples"`
	PathLength   float64 `json:"path_length" csv:"path_length"`
	Displacement float64 `json:"displacement" csv:"displacement"`
	MeanHeight   float64 `json:"mean_height" csv:"mean_height"`
	HeightStdDev float64 `json:"height_std_dev" csv:"height_std_dev"`
	MinHeight    float64 `json:"min_height" csv:"min_height"`
	MaxHeight    float64 `json:"max_height" csv:"max_height"`
}

// Summarize computes planar path length and height statistics of a
// trajectory.
func Summarize(t model.Trajectory) (PathSummary, error) {
	begin, end, err := t.Endpoints()
	if err != nil {
		return PathSummary{}, err
	}

	heights := make([]float64, len(t))
	steps := make([]float64, 0, len(t))
	for i, p := range t {
		heights[i] = p.Position.Z
		if i > 0 {
			steps = append(steps, PlanarDisplacement(t[i-1], p))
		}
	}

	mean, std := stat.MeanStdDev(heights, nil)
	if len(heights) < 2 {
		std = 0
	}
	return PathSummary{
		Samples:      len(t),
		PathLength:   floats.Sum(steps),
		Displacement: PlanarDisplacement(begin, end),
		MeanHeight:   mean,
		HeightStdDev: std,
		MinHeight:    floats.Min(heights),
		MaxHeight:    floats.Max(heights),
	}, nil
}
