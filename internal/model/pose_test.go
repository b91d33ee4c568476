package model

import (
	"errors"
	"math"
	"testing"
)

func TestTrajectoryEndpoints(t *testing.T) {
	traj := Trajectory{NewPose(0, 0, 1), NewPose(1, 1, 1), NewPose(3, 4, 0.5)}
	begin, end, err := traj.Endpoints()
	if err != nil {
		t.Fatalf("endpoints: %v", err)
	}
	if begin.Position.Z != 1 || end.Position.X != 3 {
		t.Fatalf("unexpected endpoints: begin=%+v end=%+v", begin, end)
	}
}

func TestTrajectoryEndpointsRejectsEmpty(t *testing.T) {
	_, _, err := Trajectory{}.Endpoints()
	if !errors.Is(err, ErrEmptyTrajectory) {
		t.Fatalf("expected empty trajectory error, got %v", err)
	}
}

func TestTrajectoryEndpointsRejectsNonFinite(t *testing.T) {
	traj := Trajectory{NewPose(0, 0, 1), NewPose(math.NaN(), 0, 1)}
	_, _, err := traj.Endpoints()
	if !errors.Is(err, ErrNonFinitePose) {
		t.Fatalf("expected non-finite pose error, got %v", err)
	}

	traj = Trajectory{NewPose(0, math.Inf(1), 1), NewPose(0, 0, 1)}
	if _, _, err := traj.Endpoints(); !errors.Is(err, ErrNonFinitePose) {
		t.Fatalf("expected non-finite begin pose error, got %v", err)
	}
}

func TestSinglePoseTrajectoryHasEqualEndpoints(t *testing.T) {
	begin, end, err := Trajectory{NewPose(2, 2, 2)}.Endpoints()
	if err != nil {
		t.Fatalf("endpoints: %v", err)
	}
	if begin != end {
		t.Fatalf("expected identical endpoints, got %+v and %+v", begin, end)
	}
}
