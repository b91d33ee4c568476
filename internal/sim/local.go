package sim

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"morphofit/internal/body"
	"morphofit/internal/model"
	"morphofit/internal/robot"
)

const (
	// sagPerUnitDrive lowers the core while hinges are deflected.
	sagPerUnitDrive = 0.02
	strideScale     = 0.35
	turnScale       = 0.6
)

// LocalSimulator is an in-process kinematic gait model. Each hinge
// oscillator pushes the core forward on its extension stroke; the push is
// split into forward travel and turning by the hinge orientation. The core
// follows the terrain height and sags with hinge deflection.
type LocalSimulator struct {
	logger *zap.Logger
}

func NewLocalSimulator(logger *zap.Logger) *LocalSimulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalSimulator{logger: logger}
}

// SimulateBatch runs up to params.NumSimulators scenes concurrently. A
// failing scene is reported in its SceneResult and does not stop the
// others.
func (s *LocalSimulator) SimulateBatch(ctx context.Context, params BatchParameters, scenes []Scene) ([]SceneResult, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("batch parameters: %w", err)
	}

	results := make([]SceneResult, len(scenes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(params.NumSimulators)
	for i := range scenes {
		i := i
		g.Go(func() error {
			states, err := s.simulateScene(ctx, params, scenes[i])
			// Only parent cancellation fails the batch. Scene errors stay in
			// results[i] and never cancel sibling scenes.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			results[i] = SceneResult{States: states, Err: err}
			if err != nil {
				s.logger.Warn("scene failed", zap.Int("scene", i), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type gait struct {
	id      string
	osc     []robot.Oscillator
	angles  []float64
	stride  float64
	rest    float64
	heading float64
	pos     r3.Vec
}

func newGait(r robot.Robot) (*gait, error) {
	if r.Body == nil || r.Body.Core == nil {
		return nil, fmt.Errorf("%w: robot %s has no core", ErrDegenerateBody, r.ID)
	}
	hinges := r.Body.ActiveHinges()
	if len(hinges) != len(r.Brain.Oscillators) {
		return nil, fmt.Errorf("%w: robot %s has %d hinges but %d oscillators", ErrDegenerateBody, r.ID, len(hinges), len(r.Brain.Oscillators))
	}

	reach := 0.0
	for _, p := range body.Parts(r.Body.Core, r.Body.Core) {
		reach += p.Length()
	}
	angles := make([]float64, len(hinges))
	for i, h := range hinges {
		angles[i] = h.Rotation()
	}
	return &gait{
		id:     r.ID,
		osc:    r.Brain.Oscillators,
		angles: angles,
		stride: strideScale * reach / (1 + r.Body.Mass()),
		rest:   r.Body.Core.Length() / 2,
	}, nil
}

// drive returns the summed hinge deflection and the forward and turning
// push at time t.
func (g *gait) drive(t float64) (deflection, forward, turn float64) {
	if len(g.osc) == 0 {
		return 0, 0, 0
	}
	for i, o := range g.osc {
		w := 2 * math.Pi * o.Frequency
		deflection += o.Amplitude * math.Sin(w*t+o.Phase)
		velocity := o.Amplitude * w * math.Cos(w*t+o.Phase)
		if velocity > 0 {
			forward += velocity * math.Cos(g.angles[i])
			turn += velocity * math.Sin(g.angles[i])
		}
	}
	n := float64(len(g.osc))
	return deflection / n, forward / n, turn / n
}

func (g *gait) pose(terrain Terrain, deflection float64) model.Pose {
	z := terrain.Height(g.pos.X, g.pos.Y) + g.rest - sagPerUnitDrive*math.Abs(deflection)
	half := g.heading / 2
	return model.Pose{
		Position:    r3.Vec{X: g.pos.X, Y: g.pos.Y, Z: z},
		Orientation: quat.Number{Real: math.Cos(half), Kmag: math.Sin(half)},
	}
}

func (s *LocalSimulator) simulateScene(ctx context.Context, params BatchParameters, scene Scene) ([]SceneState, error) {
	if scene.Terrain == nil {
		return nil, fmt.Errorf("scene has no terrain")
	}
	if len(scene.Robots) == 0 {
		return nil, fmt.Errorf("scene has no robots")
	}
	gaits := make([]*gait, len(scene.Robots))
	for i, r := range scene.Robots {
		g, err := newGait(r)
		if err != nil {
			return nil, err
		}
		gaits[i] = g
	}

	dt := params.SimulationTimestep
	steps := int(math.Round(params.SimulationTime / dt))
	sampleEvery := max(1, int(math.Round(1/(params.SamplingFrequency*dt))))
	controlEvery := max(1, int(math.Round(1/(params.ControlFrequency*dt))))

	deflection := make([]float64, len(gaits))
	forward := make([]float64, len(gaits))
	turn := make([]float64, len(gaits))
	states := make([]SceneState, 0, steps/sampleEvery+2)

	sample := func(t float64) error {
		state := SceneState{Time: t, robots: make(map[string]RobotState, len(gaits))}
		for i, g := range gaits {
			pose := g.pose(scene.Terrain, deflection[i])
			if err := pose.Validate(); err != nil {
				return fmt.Errorf("%w: robot %s at t=%.3f: %v", ErrDiverged, g.id, t, err)
			}
			state.robots[g.id] = RobotState{pose: pose}
			if !params.Headless {
				s.logger.Debug("pose",
					zap.String("robot", g.id),
					zap.Float64("t", t),
					zap.Float64("x", pose.Position.X),
					zap.Float64("y", pose.Position.Y),
					zap.Float64("z", pose.Position.Z),
				)
			}
		}
		states = append(states, state)
		return nil
	}

	for step := 0; step <= steps; step++ {
		t := float64(step) * dt
		if step%controlEvery == 0 {
			for i, g := range gaits {
				deflection[i], forward[i], turn[i] = g.drive(t)
			}
		}
		if step%sampleEvery == 0 || step == steps {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := sample(t); err != nil {
				return nil, err
			}
		}
		for i, g := range gaits {
			g.heading += turnScale * turn[i] * dt
			v := g.stride * forward[i]
			g.pos.X += v * math.Cos(g.heading) * dt
			g.pos.Y += v * math.Sin(g.heading) * dt
		}
	}
	return states, nil
}
