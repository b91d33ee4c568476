// Package evaluator scores batches of genotypes: develop, simulate, reduce
// each trajectory to a fitness.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"morphofit/internal/fitness"
	"morphofit/internal/genotype"
	"morphofit/internal/metrics"
	"morphofit/internal/model"
	"morphofit/internal/morphology"
	"morphofit/internal/robot"
	"morphofit/internal/sampler"
)

const (
	// PolicySentinel marks failed candidates and scores them SentinelFitness.
	PolicySentinel = "sentinel"
	// PolicyFailBatch returns a *BatchError when any candidate fails.
	PolicyFailBatch = "fail_batch"
)

var (
	ErrEmptyBatch    = errors.New("evaluation batch is empty")
	ErrUnknownPolicy = errors.New("unknown failure policy")

	// SentinelFitness ranks below every legitimate score.
	SentinelFitness = math.Inf(-1)
)

// Result is the evaluation outcome of one candidate.
type Result struct {
	Index      int
	GenotypeID string
	Fitness    float64
	Morphology morphology.Summary
	Begin      model.Pose
	End        model.Pose
	Failed     bool
	Err        error
}

// CandidateError ties a failure to the candidate that caused it.
type CandidateError struct {
	Index      int
	GenotypeID string
	Err        error
}

func (e CandidateError) Error() string {
	return fmt.Sprintf("candidate %d (%s): %v", e.Index, e.GenotypeID, e.Err)
}

func (e CandidateError) Unwrap() error {
	return e.Err
}

// BatchError reports every failed candidate of a batch.
type BatchError struct {
	Failures []CandidateError
}

func (e *BatchError) Error() string {
	if len(e.Failures) == 1 {
		return "evaluation failed: " + e.Failures[0].Error()
	}
	return fmt.Sprintf("evaluation failed for %d candidates; first: %v", len(e.Failures), e.Failures[0])
}

func (e *BatchError) Unwrap() []error {
	out := make([]error, len(e.Failures))
	for i := range e.Failures {
		out[i] = e.Failures[i]
	}
	return out
}

type Config struct {
	Sampler             *sampler.Sampler
	Composer            fitness.Composer
	GenerationThreshold int
	FailurePolicy       string
	// Develop defaults to genotype.Develop.
	Develop             func(model.Genotype) (robot.Robot, error)
	MorphologyCacheSize int
	Metrics             *metrics.EvaluationMetrics
	Logger              *zap.Logger
}

type Evaluator struct {
	sampler   *sampler.Sampler
	composer  fitness.Composer
	threshold int
	policy    string
	develop   func(model.Genotype) (robot.Robot, error)
	summaries *lru.Cache[string, morphology.Summary]
	metrics   *metrics.EvaluationMetrics
	logger    *zap.Logger
}

func New(cfg Config) (*Evaluator, error) {
	if cfg.Sampler == nil {
		return nil, fmt.Errorf("sampler is required")
	}
	if cfg.Composer == nil {
		return nil, fmt.Errorf("fitness composer is required")
	}
	if cfg.GenerationThreshold < 0 {
		return nil, fmt.Errorf("generation threshold must be >= 0, got %d", cfg.GenerationThreshold)
	}
	switch cfg.FailurePolicy {
	case "":
		cfg.FailurePolicy = PolicySentinel
	case PolicySentinel, PolicyFailBatch:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, cfg.FailurePolicy)
	}
	if cfg.Develop == nil {
		cfg.Develop = genotype.Develop
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	e := &Evaluator{
		sampler:   cfg.Sampler,
		composer:  cfg.Composer,
		threshold: cfg.GenerationThreshold,
		policy:    cfg.FailurePolicy,
		develop:   cfg.Develop,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.With(zap.String("composer", cfg.Composer.Name())),
	}
	if cfg.MorphologyCacheSize > 0 {
		cache, err := lru.New[string, morphology.Summary](cfg.MorphologyCacheSize)
		if err != nil {
			return nil, err
		}
		e.summaries = cache
	}
	return e, nil
}

func (e *Evaluator) Composer() fitness.Composer {
	return e.composer
}

// Evaluate scores candidates at generation. The result always holds one
// entry per candidate in input order. Under PolicyFailBatch a non-nil
// *BatchError accompanies the results when any candidate failed.
func (e *Evaluator) Evaluate(ctx context.Context, candidates []model.Genotype, generation int) ([]Result, error) {
	start := time.Now()
	results, err := e.evaluate(ctx, candidates, generation)
	e.metrics.ObserveBatch(e.composer.Name(), time.Since(start), err)
	if err != nil {
		return results, err
	}

	var failures []CandidateError
	best := math.Inf(-1)
	for i := range results {
		r := &results[i]
		e.metrics.ObserveCandidate(e.composer.Name(), r.Fitness, r.Err)
		if r.Err != nil {
			r.Failed = true
			r.Fitness = SentinelFitness
			failures = append(failures, CandidateError{Index: i, GenotypeID: r.GenotypeID, Err: r.Err})
			e.logger.Warn("candidate failed",
				zap.Int("index", i),
				zap.String("genotype", r.GenotypeID),
				zap.Error(r.Err),
			)
			continue
		}
		best = math.Max(best, r.Fitness)
	}

	e.logger.Info("evaluated batch",
		zap.Int("generation", generation),
		zap.Int("candidates", len(candidates)),
		zap.Int("failed", len(failures)),
		zap.Float64("best", best),
		zap.Duration("elapsed", time.Since(start)),
	)

	if len(failures) > 0 && e.policy == PolicyFailBatch {
		return results, &BatchError{Failures: failures}
	}
	return results, nil
}

func (e *Evaluator) evaluate(ctx context.Context, candidates []model.Genotype, generation int) ([]Result, error) {
	if len(candidates) == 0 {
		return nil, ErrEmptyBatch
	}

	results := make([]Result, len(candidates))
	robots, slots := e.developAll(candidates, results)

	if len(robots) > 0 {
		samples, err := e.sampler.Sample(ctx, robots)
		if err != nil {
			return results, err
		}
		fctx := model.FitnessContext{GenerationIndex: generation, GenerationThreshold: e.threshold}
		for j, sample := range samples {
			e.score(&results[slots[j]], sample, fctx)
		}
	}
	return results, nil
}

// developAll develops every candidate, recording development failures in
// results. It returns the developed robots and their candidate indices.
func (e *Evaluator) developAll(candidates []model.Genotype, results []Result) ([]robot.Robot, []int) {
	robots := make([]robot.Robot, 0, len(candidates))
	slots := make([]int, 0, len(candidates))
	for i, g := range candidates {
		results[i] = Result{Index: i, GenotypeID: g.ID}
		r, err := e.develop(g)
		if err != nil {
			results[i].Err = fmt.Errorf("develop: %w", err)
			continue
		}
		summary, err := e.summarize(g, r)
		if err != nil {
			results[i].Err = fmt.Errorf("morphology: %w", err)
			continue
		}
		results[i].Morphology = summary
		robots = append(robots, r)
		slots = append(slots, i)
	}
	return robots, slots
}

func (e *Evaluator) summarize(g model.Genotype, r robot.Robot) (morphology.Summary, error) {
	if e.summaries == nil {
		return morphology.Analyze(r.Body)
	}
	key := genotype.Fingerprint(g)
	if summary, ok := e.summaries.Get(key); ok {
		return summary, nil
	}
	summary, err := morphology.Analyze(r.Body)
	if err != nil {
		return morphology.Summary{}, err
	}
	e.summaries.Add(key, summary)
	return summary, nil
}

func (e *Evaluator) score(r *Result, sample sampler.Sample, fctx model.FitnessContext) {
	if sample.Err != nil {
		r.Err = fmt.Errorf("simulate: %w", sample.Err)
		return
	}
	begin, end, err := sample.Trajectory.Endpoints()
	if err != nil {
		r.Err = fmt.Errorf("trajectory: %w", err)
		return
	}
	r.Begin, r.End = begin, end
	score, err := e.composer.Score(fitness.Input{
		Begin:      begin,
		End:        end,
		Morphology: r.Morphology,
		Context:    fctx,
	})
	if err != nil {
		r.Err = fmt.Errorf("score: %w", err)
		return
	}
	r.Fitness = score
}

// EvaluatePositions simulates candidates and returns every robot's full
// trajectory, one sample per candidate in input order.
func (e *Evaluator) EvaluatePositions(ctx context.Context, candidates []model.Genotype) ([]sampler.Sample, error) {
	if len(candidates) == 0 {
		return nil, ErrEmptyBatch
	}
	out := make([]sampler.Sample, len(candidates))
	robots := make([]robot.Robot, 0, len(candidates))
	slots := make([]int, 0, len(candidates))
	for i, g := range candidates {
		r, err := e.develop(g)
		if err != nil {
			out[i].Err = fmt.Errorf("develop: %w", err)
			continue
		}
		robots = append(robots, r)
		slots = append(slots, i)
	}
	if len(robots) == 0 {
		return out, nil
	}
	samples, err := e.sampler.Sample(ctx, robots)
	if err != nil {
		return nil, err
	}
	for j, sample := range samples {
		out[slots[j]] = sample
	}
	return out, nil
}

// Scores returns the fitness of every result in order.
func Scores(results []Result) []float64 {
	out := make([]float64, len(results))
	for i, r := range results {
		out[i] = r.Fitness
	}
	return out
}
