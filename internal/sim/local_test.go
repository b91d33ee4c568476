package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"morphofit/internal/body"
	"morphofit/internal/robot"
)

func fastParams() BatchParameters {
	p := StandardBatchParameters()
	p.SimulationTime = 2
	p.SimulationTimestep = 0.005
	p.NumSimulators = 3
	return p
}

func walker(t *testing.T, id string, amplitude float64) robot.Robot {
	t.Helper()
	b := body.New()
	var oscillators []robot.Oscillator
	for slot := 0; slot < 2; slot++ {
		hinge := body.NewActiveHinge(0)
		require.NoError(t, hinge.Attach(0, body.NewBrickLarge(0, 0.2)))
		require.NoError(t, b.Core.Attach(slot, hinge))
		oscillators = append(oscillators, robot.Oscillator{Amplitude: amplitude, Phase: float64(slot), Frequency: 1})
	}
	return robot.Robot{ID: id, Body: b, Brain: robot.Brain{Oscillators: oscillators}}
}

func scenesFor(terrain Terrain, robots ...robot.Robot) []Scene {
	scenes := make([]Scene, 0, len(robots))
	for _, r := range robots {
		scene := NewScene(terrain)
		scene.AddRobot(r)
		scenes = append(scenes, *scene)
	}
	return scenes
}

func TestSimulateBatchSamplesEveryScene(t *testing.T) {
	sim := NewLocalSimulator(nil)
	robots := []robot.Robot{walker(t, "a", 0.8), walker(t, "b", 0), walker(t, "c", 0.3)}

	results, err := sim.SimulateBatch(context.Background(), fastParams(), scenesFor(Flat(), robots...))
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, res := range results {
		require.NoError(t, res.Err)
		require.Len(t, res.States, 11, "2s at 5Hz plus the initial sample")
		_, ok := res.States[0].Robot(robots[i].ID)
		assert.True(t, ok, "scene %d must hold robot %s", i, robots[i].ID)
	}

	begin, _ := results[1].States[0].Robot("b")
	end, _ := results[1].States[len(results[1].States)-1].Robot("b")
	assert.Equal(t, begin.Pose(), end.Pose(), "a passive robot must not move")

	begin, _ = results[0].States[0].Robot("a")
	end, _ = results[0].States[len(results[0].States)-1].Robot("a")
	assert.NotEqual(t, begin.Pose().Position, end.Pose().Position, "a driven robot must move")
}

func TestSimulateBatchIsDeterministic(t *testing.T) {
	terrain, err := Rugged(11, 0.05, 1.5)
	require.NoError(t, err)
	sim := NewLocalSimulator(nil)

	first, err := sim.SimulateBatch(context.Background(), fastParams(), scenesFor(terrain, walker(t, "a", 0.7)))
	require.NoError(t, err)
	second, err := sim.SimulateBatch(context.Background(), fastParams(), scenesFor(terrain, walker(t, "a", 0.7)))
	require.NoError(t, err)

	last := len(first[0].States) - 1
	a, _ := first[0].States[last].Robot("a")
	b, _ := second[0].States[last].Robot("a")
	assert.Equal(t, a.Pose(), b.Pose())
}

func TestSimulateBatchReportsDegenerateScenesIndividually(t *testing.T) {
	sim := NewLocalSimulator(nil)
	broken := robot.Robot{ID: "broken", Body: &body.Body{}}
	mismatched := walker(t, "mismatched", 0.5)
	mismatched.Brain.Oscillators = mismatched.Brain.Oscillators[:1]

	results, err := sim.SimulateBatch(context.Background(), fastParams(),
		scenesFor(Flat(), walker(t, "ok", 0.5), broken, mismatched))
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.True(t, errors.Is(results[1].Err, ErrDegenerateBody))
	assert.True(t, errors.Is(results[2].Err, ErrDegenerateBody))
	assert.Empty(t, results[1].States)
}

func TestSimulateBatchFailureLeavesLaterScenesRunning(t *testing.T) {
	p := fastParams()
	p.NumSimulators = 1
	broken := robot.Robot{ID: "broken", Body: &body.Body{}}

	results, err := NewLocalSimulator(nil).SimulateBatch(context.Background(), p,
		scenesFor(Flat(), broken, walker(t, "a", 0.5), walker(t, "b", 1)))
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.ErrorIs(t, results[0].Err, ErrDegenerateBody)
	for _, r := range results[1:] {
		require.NoError(t, r.Err)
		assert.NotEmpty(t, r.States)
	}
}

func TestSimulateBatchRejectsInvalidParameters(t *testing.T) {
	sim := NewLocalSimulator(nil)
	p := fastParams()
	p.NumSimulators = 0
	_, err := sim.SimulateBatch(context.Background(), p, scenesFor(Flat(), walker(t, "a", 1)))
	require.Error(t, err)

	p = fastParams()
	p.SimulationTimestep = 1
	_, err = sim.SimulateBatch(context.Background(), p, scenesFor(Flat(), walker(t, "a", 1)))
	require.Error(t, err)
}

func TestSimulateBatchHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocalSimulator(nil).SimulateBatch(ctx, fastParams(), scenesFor(Flat(), walker(t, "a", 1)))
	require.ErrorIs(t, err, context.Canceled)
}

func TestTerrains(t *testing.T) {
	flat, err := NewTerrain("flat", 0, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, flat.Height(12, -3))

	rugged, err := NewTerrain("rugged", 5, 0.1, 2)
	require.NoError(t, err)
	h := rugged.Height(0.7, 1.9)
	assert.LessOrEqual(t, h, 0.1)
	assert.GreaterOrEqual(t, h, -0.1)
	again, err := Rugged(5, 0.1, 2)
	require.NoError(t, err)
	assert.Equal(t, h, again.Height(0.7, 1.9))

	_, err = NewTerrain("lava", 0, 0, 0)
	require.Error(t, err)
	_, err = Rugged(1, 0.1, 0)
	require.Error(t, err)
}
