// Package sampler drives a simulator to turn a batch of robots into
// trajectories.
package sampler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"morphofit/internal/model"
	"morphofit/internal/robot"
	"morphofit/internal/sim"
)

var ErrMissingRobotState = errors.New("simulation state missing robot")

// Sample is the trajectory of one robot, or why it could not be produced.
type Sample struct {
	Trajectory model.Trajectory
	Err        error
}

type Config struct {
	Simulator  sim.Simulator
	Terrain    sim.Terrain
	Parameters sim.BatchParameters
	Logger     *zap.Logger
}

type Sampler struct {
	sim     sim.Simulator
	terrain sim.Terrain
	params  sim.BatchParameters
	logger  *zap.Logger
}

func New(cfg Config) (*Sampler, error) {
	if cfg.Simulator == nil {
		return nil, fmt.Errorf("simulator is required")
	}
	if cfg.Terrain == nil {
		cfg.Terrain = sim.Flat()
	}
	if err := cfg.Parameters.Validate(); err != nil {
		return nil, fmt.Errorf("batch parameters: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Sampler{
		sim:     cfg.Simulator,
		terrain: cfg.Terrain,
		params:  cfg.Parameters,
		logger:  cfg.Logger,
	}, nil
}

func (s *Sampler) Parameters() sim.BatchParameters {
	return s.params
}

// WithParameters returns a sampler sharing the simulator and terrain but
// using params.
func (s *Sampler) WithParameters(params sim.BatchParameters) (*Sampler, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("batch parameters: %w", err)
	}
	out := *s
	out.params = params
	return &out, nil
}

// Sample simulates every robot in its own scene on the shared terrain with
// a single batched simulator call. The result holds one Sample per robot
// in input order.
func (s *Sampler) Sample(ctx context.Context, robots []robot.Robot) ([]Sample, error) {
	scenes := make([]sim.Scene, len(robots))
	for i, r := range robots {
		scene := sim.NewScene(s.terrain)
		scene.AddRobot(r)
		scenes[i] = *scene
	}

	results, err := s.sim.SimulateBatch(ctx, s.params, scenes)
	if err != nil {
		return nil, fmt.Errorf("simulate batch: %w", err)
	}
	if len(results) != len(scenes) {
		return nil, fmt.Errorf("simulator returned %d scene results for %d scenes", len(results), len(scenes))
	}

	samples := make([]Sample, len(robots))
	for i, r := range robots {
		if results[i].Err != nil {
			samples[i] = Sample{Err: results[i].Err}
			continue
		}
		trajectory, err := extract(r.ID, results[i].States)
		samples[i] = Sample{Trajectory: trajectory, Err: err}
	}
	s.logger.Debug("sampled batch",
		zap.Int("robots", len(robots)),
		zap.String("terrain", s.terrain.Name()),
	)
	return samples, nil
}

func extract(robotID string, states []sim.SceneState) (model.Trajectory, error) {
	trajectory := make(model.Trajectory, 0, len(states))
	for i, state := range states {
		rs, ok := state.Robot(robotID)
		if !ok {
			return nil, fmt.Errorf("%w: %s at sample %d", ErrMissingRobotState, robotID, i)
		}
		trajectory = append(trajectory, rs.Pose())
	}
	return trajectory, nil
}
