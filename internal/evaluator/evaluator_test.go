package evaluator

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"morphofit/internal/fitness"
	"morphofit/internal/genotype"
	"morphofit/internal/metrics"
	"morphofit/internal/model"
	"morphofit/internal/robot"
	"morphofit/internal/sampler"
	"morphofit/internal/sim"
)

func quickParams() sim.BatchParameters {
	p := sim.StandardBatchParameters()
	p.SimulationTime = 1
	p.SimulationTimestep = 0.01
	p.NumSimulators = 2
	return p
}

func newSampler(t *testing.T) *sampler.Sampler {
	t.Helper()
	s, err := sampler.New(sampler.Config{Simulator: sim.NewLocalSimulator(nil), Parameters: quickParams()})
	require.NoError(t, err)
	return s
}

func composer(t *testing.T, name string) fitness.Composer {
	t.Helper()
	c, err := fitness.New(name, fitness.DefaultWeights())
	require.NoError(t, err)
	return c
}

func walkerGenotype(id string, amplitude float64) model.Genotype {
	hinge := func(slot int) model.BodyGene {
		return model.BodyGene{
			Kind: model.PartActiveHinge,
			Slot: slot,
			Children: []model.BodyGene{
				{Kind: model.PartBrickLarge, BoneLength: 0.2},
			},
		}
	}
	return model.Genotype{
		ID: id,
		Body: model.BodyGene{
			Kind:     model.PartCore,
			Children: []model.BodyGene{hinge(0), hinge(2)},
		},
		Brain: []model.BrainGene{
			{Amplitude: amplitude, Frequency: 1},
			{Amplitude: amplitude, Phase: 1, Frequency: 1},
		},
	}
}

func brokenGenotype(id string) model.Genotype {
	return model.Genotype{
		ID: id,
		Body: model.BodyGene{
			Kind:     model.PartCore,
			Children: []model.BodyGene{{Kind: "wheel"}},
		},
	}
}

func TestEvaluateReturnsOneResultPerCandidateInOrder(t *testing.T) {
	e, err := New(Config{Sampler: newSampler(t), Composer: composer(t, fitness.CombinedMorphologyName)})
	require.NoError(t, err)

	candidates := []model.Genotype{walkerGenotype("a", 0.8), walkerGenotype("b", 0), walkerGenotype("c", 0.4)}
	results, err := e.Evaluate(context.Background(), candidates, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, candidates[i].ID, r.GenotypeID)
		assert.False(t, r.Failed)
		assert.False(t, math.IsNaN(r.Fitness))
		assert.Equal(t, 2, r.Morphology.Actuators)
		assert.Equal(t, 4, r.Morphology.StructuralParts)
	}
	assert.Equal(t, []float64{results[0].Fitness, results[1].Fitness, results[2].Fitness}, Scores(results))
}

func TestEvaluateIsDeterministic(t *testing.T) {
	e, err := New(Config{Sampler: newSampler(t), Composer: composer(t, fitness.XYDisplacementName)})
	require.NoError(t, err)

	candidates := []model.Genotype{walkerGenotype("a", 0.8), walkerGenotype("b", 0.3)}
	first, err := e.Evaluate(context.Background(), candidates, 3)
	require.NoError(t, err)
	second, err := e.Evaluate(context.Background(), candidates, 3)
	require.NoError(t, err)
	assert.Equal(t, Scores(first), Scores(second))
}

func TestEvaluateStagedUsesGenerationThreshold(t *testing.T) {
	e, err := New(Config{
		Sampler:             newSampler(t),
		Composer:            composer(t, fitness.StagedCurriculumName),
		GenerationThreshold: 10,
	})
	require.NoError(t, err)

	candidates := []model.Genotype{walkerGenotype("a", 0.8)}
	early, err := e.Evaluate(context.Background(), candidates, 0)
	require.NoError(t, err)
	late, err := e.Evaluate(context.Background(), candidates, 10)
	require.NoError(t, err)

	// Early generations reward height closeness, which is bounded by one.
	assert.LessOrEqual(t, early[0].Fitness, 1.0)
	assert.NotEqual(t, early[0].Fitness, late[0].Fitness)
}

func TestEvaluateRejectsEmptyBatch(t *testing.T) {
	e, err := New(Config{Sampler: newSampler(t), Composer: composer(t, fitness.XYDisplacementName)})
	require.NoError(t, err)

	_, err = e.Evaluate(context.Background(), nil, 0)
	assert.ErrorIs(t, err, ErrEmptyBatch)
	_, err = e.EvaluatePositions(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestEvaluateSentinelPolicyMarksFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e, err := New(Config{
		Sampler:  newSampler(t),
		Composer: composer(t, fitness.XYDisplacementName),
		Metrics:  m,
	})
	require.NoError(t, err)

	candidates := []model.Genotype{walkerGenotype("a", 0.8), brokenGenotype("b"), walkerGenotype("c", 0.2)}
	results, err := e.Evaluate(context.Background(), candidates, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.False(t, results[0].Failed)
	assert.True(t, results[1].Failed)
	assert.ErrorIs(t, results[1].Err, genotype.ErrInvalidBody)
	assert.True(t, math.IsInf(results[1].Fitness, -1))
	assert.False(t, results[2].Failed)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CandidatesTotal.WithLabelValues(fitness.XYDisplacementName, metrics.StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CandidatesTotal.WithLabelValues(fitness.XYDisplacementName, metrics.StatusFailed)))
}

func TestEvaluateFailBatchPolicyReportsEveryFailure(t *testing.T) {
	e, err := New(Config{
		Sampler:       newSampler(t),
		Composer:      composer(t, fitness.XYDisplacementName),
		FailurePolicy: PolicyFailBatch,
	})
	require.NoError(t, err)

	candidates := []model.Genotype{brokenGenotype("a"), walkerGenotype("b", 0.5), brokenGenotype("c")}
	results, err := e.Evaluate(context.Background(), candidates, 0)
	require.Error(t, err)
	require.Len(t, results, 3)

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	require.Len(t, batchErr.Failures, 2)
	assert.Equal(t, 0, batchErr.Failures[0].Index)
	assert.Equal(t, 2, batchErr.Failures[1].Index)
	assert.ErrorIs(t, err, genotype.ErrInvalidBody)
	assert.False(t, results[1].Failed)
}

func TestEvaluateSurfacesSimulationFailurePerCandidate(t *testing.T) {
	develop := func(g model.Genotype) (robot.Robot, error) {
		r, err := genotype.Develop(g)
		if err != nil || g.ID != "mismatched" {
			return r, err
		}
		r.Brain.Oscillators = r.Brain.Oscillators[:1]
		return r, nil
	}
	e, err := New(Config{
		Sampler:  newSampler(t),
		Composer: composer(t, fitness.XYDisplacementName),
		Develop:  develop,
	})
	require.NoError(t, err)

	results, err := e.Evaluate(context.Background(), []model.Genotype{walkerGenotype("ok", 0.5), walkerGenotype("mismatched", 0.5)}, 0)
	require.NoError(t, err)
	assert.False(t, results[0].Failed)
	assert.True(t, results[1].Failed)
	assert.ErrorIs(t, results[1].Err, sim.ErrDegenerateBody)
}

func TestEvaluateCachesMorphologySummaries(t *testing.T) {
	e, err := New(Config{
		Sampler:             newSampler(t),
		Composer:            composer(t, fitness.CombinedMorphologyName),
		MorphologyCacheSize: 8,
	})
	require.NoError(t, err)

	g := walkerGenotype("a", 0.8)
	_, err = e.Evaluate(context.Background(), []model.Genotype{g, g}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, e.summaries.Len())
}

func TestEvaluatePositionsReturnsFullTrajectories(t *testing.T) {
	e, err := New(Config{Sampler: newSampler(t), Composer: composer(t, fitness.XYDisplacementName)})
	require.NoError(t, err)

	samples, err := e.EvaluatePositions(context.Background(), []model.Genotype{walkerGenotype("a", 0.8), brokenGenotype("b")})
	require.NoError(t, err)
	require.Len(t, samples, 2)
	require.NoError(t, samples[0].Err)
	assert.Greater(t, len(samples[0].Trajectory), 2)
	assert.ErrorIs(t, samples[1].Err, genotype.ErrInvalidBody)
}

func TestNewValidatesConfig(t *testing.T) {
	s := newSampler(t)
	c := composer(t, fitness.XYDisplacementName)

	_, err := New(Config{Composer: c})
	assert.Error(t, err)
	_, err = New(Config{Sampler: s})
	assert.Error(t, err)
	_, err = New(Config{Sampler: s, Composer: c, FailurePolicy: "retry"})
	assert.ErrorIs(t, err, ErrUnknownPolicy)
	_, err = New(Config{Sampler: s, Composer: c, GenerationThreshold: -1})
	assert.Error(t, err)
}
