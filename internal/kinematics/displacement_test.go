package kinematics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"morphofit/internal/model"
)

func TestDisplacementOfIdenticalPosesIsZero(t *testing.T) {
	poses := []model.Pose{
		model.NewPose(0, 0, 0),
		model.NewPose(1.5, -2, 0.3),
		model.NewPose(-1e6, 1e6, -4),
	}
	for _, p := range poses {
		assert.Zero(t, PlanarDisplacement(p, p))
		assert.Zero(t, SpatialDisplacement(p, p))
		assert.Zero(t, VerticalDrop(p, p))
	}
}

func TestPlanarAndSpatialDisplacement(t *testing.T) {
	begin := model.NewPose(0, 0, 1)
	end := model.NewPose(3, 4, 1)
	assert.InDelta(t, 5.0, PlanarDisplacement(begin, end), 1e-12)
	assert.InDelta(t, 5.0, SpatialDisplacement(begin, end), 1e-12)

	end = model.NewPose(3, 4, 13)
	assert.InDelta(t, 5.0, PlanarDisplacement(begin, end), 1e-12)
	assert.InDelta(t, 13.0, SpatialDisplacement(begin, end), 1e-12)
}

func TestVerticalDropSign(t *testing.T) {
	assert.InDelta(t, 0.6, VerticalDrop(model.NewPose(0, 0, 1), model.NewPose(0, 0, 0.4)), 1e-12)
	assert.InDelta(t, -0.5, VerticalDrop(model.NewPose(0, 0, 1), model.NewPose(0, 0, 1.5)), 1e-12)
}

func TestTargetZClosenessPeaksAtTarget(t *testing.T) {
	targets := []float64{-3, 0, 0.5, 12}
	for _, target := range targets {
		assert.Equal(t, 1.0, TargetZCloseness(model.NewPose(0, 0, target), target))

		prev := 1.0
		for _, offset := range []float64{0.01, 0.1, 0.5, 2, 40} {
			above := TargetZCloseness(model.NewPose(0, 0, target+offset), target)
			below := TargetZCloseness(model.NewPose(0, 0, target-offset), target)
			assert.InDelta(t, above, below, 1e-12)
			assert.Less(t, above, prev)
			assert.Greater(t, above, 0.0)
			prev = above
		}
	}
}

func TestHeightSquared(t *testing.T) {
	assert.InDelta(t, 0.25, HeightSquared(model.NewPose(9, 9, -0.5)), 1e-12)
}

func TestSummarize(t *testing.T) {
	traj := model.Trajectory{
		model.NewPose(0, 0, 1),
		model.NewPose(3, 4, 1.2),
		model.NewPose(3, 0, 0.8),
	}
	summary, err := Summarize(traj)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Samples)
	assert.InDelta(t, 9.0, summary.PathLength, 1e-12)
	assert.InDelta(t, 3.0, summary.Displacement, 1e-12)
	assert.InDelta(t, 1.0, summary.MeanHeight, 1e-12)
	assert.InDelta(t, 0.8, summary.MinHeight, 1e-12)
	assert.InDelta(t, 1.2, summary.MaxHeight, 1e-12)
	assert.Greater(t, summary.HeightStdDev, 0.0)
}

func TestSummarizeSinglePose(t *testing.T) {
	summary, err := Summarize(model.Trajectory{model.NewPose(1, 1, 1)})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Samples)
	assert.Zero(t, summary.PathLength)
	assert.Zero(t, summary.Displacement)
	assert.Zero(t, summary.HeightStdDev)
	assert.False(t, math.IsNaN(summary.MeanHeight))
}

func TestSummarizeRejectsEmptyTrajectory(t *testing.T) {
	_, err := Summarize(nil)
	require.ErrorIs(t, err, model.ErrEmptyTrajectory)
}
