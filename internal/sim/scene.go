package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"morphofit/internal/model"
	"morphofit/internal/robot"
)

var (
	ErrDegenerateBody = errors.New("degenerate robot body")
	ErrDiverged       = errors.New("simulation diverged")
)

// BatchParameters control one batched simulator call.
type BatchParameters struct {
	SimulationTime     float64 `yaml:"simulation_time"`
	SamplingFrequency  float64 `yaml:"sampling_frequency"`
	SimulationTimestep float64 `yaml:"simulation_timestep"`
	ControlFrequency   float64 `yaml:"control_frequency"`
	Headless           bool    `yaml:"headless"`
	NumSimulators      int     `yaml:"num_simulators"`
}

// StandardBatchParameters simulates 30 seconds sampled at 5 Hz.
func StandardBatchParameters() BatchParameters {
	return BatchParameters{
		SimulationTime:     30,
		SamplingFrequency:  5,
		SimulationTimestep: 0.001,
		ControlFrequency:   60,
		Headless:           true,
		NumSimulators:      1,
	}
}

func (p BatchParameters) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"simulation_time", p.SimulationTime},
		{"sampling_frequency", p.SamplingFrequency},
		{"simulation_timestep", p.SimulationTimestep},
		{"control_frequency", p.ControlFrequency},
	}
	for _, item := range positive {
		if math.IsNaN(item.value) || math.IsInf(item.value, 0) || item.value <= 0 {
			return fmt.Errorf("%s must be finite and > 0, got %v", item.name, item.value)
		}
	}
	if p.NumSimulators <= 0 {
		return fmt.Errorf("num_simulators must be > 0, got %d", p.NumSimulators)
	}
	if 1/p.SamplingFrequency < p.SimulationTimestep || 1/p.ControlFrequency < p.SimulationTimestep {
		return fmt.Errorf("simulation timestep %g is coarser than sampling or control period", p.SimulationTimestep)
	}
	return nil
}

// Scene is a set of robots on one terrain.
type Scene struct {
	Terrain Terrain
	Robots  []robot.Robot
}

func NewScene(terrain Terrain) *Scene {
	return &Scene{Terrain: terrain}
}

func (s *Scene) AddRobot(r robot.Robot) {
	s.Robots = append(s.Robots, r)
}

// RobotState is one robot at one sampled instant.
type RobotState struct {
	pose model.Pose
}

func (s RobotState) Pose() model.Pose {
	return s.pose
}

// SceneState is one sampled instant of a scene.
type SceneState struct {
	Time   float64
	robots map[string]RobotState
}

func (s SceneState) Robot(id string) (RobotState, bool) {
	state, ok := s.robots[id]
	return state, ok
}

// SceneResult holds the sampled states of one scene, or the reason the
// scene could not be simulated.
type SceneResult struct {
	States []SceneState
	Err    error
}

// Simulator runs scenes. Implementations return one SceneResult per scene
// in scene order; a returned error means the whole batch failed.
type Simulator interface {
	SimulateBatch(ctx context.Context, params BatchParameters, scenes []Scene) ([]SceneResult, error)
}
