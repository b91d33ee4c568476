// Package morphofit is the programmatic entry point used by morphofitctl:
// evaluate seeded populations, query stored runs, replay and export them.
package morphofit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"morphofit/internal/config"
	"morphofit/internal/evaluator"
	"morphofit/internal/export"
	"morphofit/internal/fitness"
	"morphofit/internal/genotype"
	"morphofit/internal/kinematics"
	"morphofit/internal/logging"
	"morphofit/internal/metrics"
	"morphofit/internal/model"
	"morphofit/internal/sampler"
	"morphofit/internal/sim"
	"morphofit/internal/storage"
)

const (
	defaultExportsDir = "exports"
	configSnapshot    = "config.yaml"
)

var ErrNoRuns = errors.New("no runs available")

type Options struct {
	// Config defaults to the embedded defaults.
	Config *config.Config
	// Simulator defaults to sim.LocalSimulator.
	Simulator  sim.Simulator
	Logger     *zap.Logger
	Registerer prometheus.Registerer
	ExportsDir string
}

type Client struct {
	cfg        *config.Config
	store      storage.Store
	sampler    *sampler.Sampler
	composer   fitness.Composer
	metrics    *metrics.EvaluationMetrics
	logger     *zap.Logger
	exportsDir string

	initMu      sync.Mutex
	initialized bool
}

type EvaluateRequest struct {
	// RunID is generated when empty.
	RunID      string
	Generation int
	// Population overrides the configured size when > 0.
	Population int
	// Seed overrides the configured seed when set.
	Seed *int64
}

type EvaluateSummary struct {
	RunID      string
	Generation int
	Results    []evaluator.Result
	Best       evaluator.Result
	Failed     int
	Stored     int
}

// RunQuery names a stored run, or the most recently created one.
type RunQuery struct {
	RunID  string
	Latest bool
	Limit  int
}

type TopItem struct {
	Rank       int
	Individual model.Individual
}

type RerunRequest struct {
	RunQuery
	// Generation is the fitness context of the replay. Negative selects
	// the highest generation among the replayed individuals.
	Generation int
	Headless   bool
}

type RerunItem struct {
	Rank          int
	Individual    model.Individual
	Result        evaluator.Result
	StoredFitness float64
}

type PositionsRequest struct {
	RunQuery
	// Save persists every trajectory in the store.
	Save bool
}

type PositionsItem struct {
	Rank       int
	GenotypeID string
	Trajectory model.Trajectory
	Path       kinematics.PathSummary
	Err        error
}

type ExportRequest struct {
	RunQuery
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
	Files     []string
}

func New(opts Options) (*Client, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load("")
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		built, err := logging.New(cfg.Logging)
		if err != nil {
			return nil, err
		}
		logger = built
	}

	composer, err := cfg.Composer()
	if err != nil {
		return nil, err
	}
	terrain, err := cfg.BuildTerrain()
	if err != nil {
		return nil, err
	}
	simulator := opts.Simulator
	if simulator == nil {
		simulator = sim.NewLocalSimulator(logger.Named("sim"))
	}
	s, err := sampler.New(sampler.Config{
		Simulator:  simulator,
		Terrain:    terrain,
		Parameters: cfg.Simulation,
		Logger:     logger.Named("sampler"),
	})
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.Storage.Kind, cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}

	var m *metrics.EvaluationMetrics
	if opts.Registerer != nil {
		m = metrics.New(opts.Registerer)
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	return &Client{
		cfg:        cfg,
		store:      store,
		sampler:    s,
		composer:   composer,
		metrics:    m,
		logger:     logger,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	_ = c.logger.Sync()
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	c.initialized = true
	return nil
}

func (c *Client) Config() *config.Config {
	return c.cfg
}

// Composers lists every selectable fitness composer.
func (c *Client) Composers() []string {
	return fitness.Names()
}

// Evaluate scores one seeded random generation and stores every candidate
// that did not fail.
func (c *Client) Evaluate(ctx context.Context, req EvaluateRequest) (EvaluateSummary, error) {
	if req.Generation < 0 {
		return EvaluateSummary{}, errors.New("generation must be >= 0")
	}
	if err := c.Init(ctx); err != nil {
		return EvaluateSummary{}, err
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	size := c.cfg.Population.Size
	if req.Population > 0 {
		size = req.Population
	}
	seed := c.cfg.Population.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}

	candidates, err := genotype.RandomPopulation(seed, size, c.cfg.Population.RandomConfig)
	if err != nil {
		return EvaluateSummary{}, err
	}
	ev, err := c.newEvaluator(c.sampler)
	if err != nil {
		return EvaluateSummary{}, err
	}
	results, err := ev.Evaluate(ctx, candidates, req.Generation)
	if err != nil {
		return EvaluateSummary{}, err
	}

	summary := EvaluateSummary{RunID: req.RunID, Generation: req.Generation, Results: results}
	summary.Best.Fitness = math.Inf(-1)
	individuals := make([]model.Individual, 0, len(results))
	for i, r := range results {
		if r.Failed {
			summary.Failed++
			continue
		}
		if r.Fitness > summary.Best.Fitness {
			summary.Best = r
		}
		individuals = append(individuals, model.Individual{
			VersionedRecord: model.CurrentVersion(),
			Genotype:        candidates[i],
			Fitness:         r.Fitness,
		})
	}
	if err := c.store.SaveGeneration(ctx, req.RunID, req.Generation, individuals); err != nil {
		return EvaluateSummary{}, fmt.Errorf("save generation: %w", err)
	}
	summary.Stored = len(individuals)

	c.logger.Info("stored generation",
		zap.String("run_id", req.RunID),
		zap.Int("generation", req.Generation),
		zap.Int("stored", summary.Stored),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (c *Client) Runs(ctx context.Context) ([]string, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c.store.Runs(ctx)
}

// Top returns the best stored individuals, highest fitness first.
func (c *Client) Top(ctx context.Context, q RunQuery) ([]TopItem, error) {
	individuals, err := c.top(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]TopItem, len(individuals))
	for i, ind := range individuals {
		out[i] = TopItem{Rank: i + 1, Individual: ind}
	}
	return out, nil
}

// Rerun re-evaluates the best stored individuals with the configured
// composer.
func (c *Client) Rerun(ctx context.Context, req RerunRequest) ([]RerunItem, error) {
	individuals, err := c.top(ctx, req.RunQuery)
	if err != nil {
		return nil, err
	}
	if len(individuals) == 0 {
		return nil, nil
	}

	generation := req.Generation
	if generation < 0 {
		for _, ind := range individuals {
			generation = max(generation, ind.Generation)
		}
	}
	params := c.sampler.Parameters()
	params.Headless = req.Headless
	s, err := c.sampler.WithParameters(params)
	if err != nil {
		return nil, err
	}
	ev, err := c.newEvaluator(s)
	if err != nil {
		return nil, err
	}

	results, err := ev.Evaluate(ctx, genotypes(individuals), generation)
	if err != nil {
		return nil, err
	}
	out := make([]RerunItem, len(results))
	for i, r := range results {
		out[i] = RerunItem{
			Rank:          i + 1,
			Individual:    individuals[i],
			Result:        r,
			StoredFitness: individuals[i].Fitness,
		}
	}
	return out, nil
}

// Positions simulates the best stored individuals and returns their full
// trajectories.
func (c *Client) Positions(ctx context.Context, req PositionsRequest) ([]PositionsItem, error) {
	individuals, err := c.top(ctx, req.RunQuery)
	if err != nil {
		return nil, err
	}
	if len(individuals) == 0 {
		return nil, nil
	}
	ev, err := c.newEvaluator(c.sampler)
	if err != nil {
		return nil, err
	}

	samples, err := ev.EvaluatePositions(ctx, genotypes(individuals))
	if err != nil {
		return nil, err
	}
	out := make([]PositionsItem, len(samples))
	for i, sample := range samples {
		ind := individuals[i]
		item := PositionsItem{Rank: i + 1, GenotypeID: ind.Genotype.ID, Trajectory: sample.Trajectory, Err: sample.Err}
		if item.Err == nil {
			item.Path, item.Err = kinematics.Summarize(sample.Trajectory)
		}
		if item.Err == nil && req.Save {
			if err := c.store.SaveTrajectory(ctx, ind.RunID, ind.Genotype.ID, sample.Trajectory); err != nil {
				return nil, fmt.Errorf("save trajectory %s: %w", ind.Genotype.ID, err)
			}
		}
		out[i] = item
	}
	return out, nil
}

// Export writes the fitness rows and per-generation aggregates of a run,
// the path summaries of its stored trajectories and a snapshot of the
// effective configuration.
func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRun(ctx, req.RunQuery)
	if err != nil {
		return ExportSummary{}, err
	}
	if runID == "" {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	outDir := req.OutDir
	if outDir == "" {
		outDir = c.exportsDir
	}
	dir := filepath.Join(outDir, runID)

	rows, err := c.store.FitnessRows(ctx, runID)
	if err != nil {
		return ExportSummary{}, err
	}
	if len(rows) == 0 {
		return ExportSummary{}, fmt.Errorf("no fitness rows for run id: %s", runID)
	}
	files, err := export.WriteRunFiles(dir, rows)
	if err != nil {
		return ExportSummary{}, err
	}

	var paths []export.PathRow
	for _, row := range rows {
		trajectory, ok, err := c.store.GetTrajectory(ctx, runID, row.GenotypeID)
		if err != nil {
			return ExportSummary{}, err
		}
		if !ok {
			continue
		}
		path, err := kinematics.Summarize(trajectory)
		if err != nil {
			return ExportSummary{}, fmt.Errorf("summarize %s: %w", row.GenotypeID, err)
		}
		paths = append(paths, export.NewPathRow(row.GenotypeID, path))
	}
	if len(paths) > 0 {
		pathFile, err := export.WritePathFile(dir, paths)
		if err != nil {
			return ExportSummary{}, err
		}
		files = append(files, pathFile)
	}

	snapshot := filepath.Join(dir, configSnapshot)
	if err := c.cfg.WriteYAML(snapshot); err != nil {
		return ExportSummary{}, err
	}
	files = append(files, snapshot)

	return ExportSummary{RunID: runID, Directory: filepath.Clean(dir), Files: files}, nil
}

func (c *Client) newEvaluator(s *sampler.Sampler) (*evaluator.Evaluator, error) {
	return evaluator.New(evaluator.Config{
		Sampler:             s,
		Composer:            c.composer,
		GenerationThreshold: c.cfg.Fitness.GenerationThreshold,
		FailurePolicy:       c.cfg.Evaluator.FailurePolicy,
		MorphologyCacheSize: c.cfg.Evaluator.MorphologyCacheSize,
		Metrics:             c.metrics,
		Logger:              c.logger.Named("evaluator"),
	})
}

func (c *Client) top(ctx context.Context, q RunQuery) ([]model.Individual, error) {
	if q.Limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}
	runID, err := c.resolveRun(ctx, q)
	if err != nil {
		return nil, err
	}
	return c.store.TopIndividuals(ctx, storage.TopQuery{RunID: runID, Limit: q.Limit})
}

// resolveRun returns the queried run ID. A query with neither RunID nor
// Latest spans every run and resolves to "".
func (c *Client) resolveRun(ctx context.Context, q RunQuery) (string, error) {
	if q.RunID != "" && q.Latest {
		return "", errors.New("use either run id or latest")
	}
	if err := c.Init(ctx); err != nil {
		return "", err
	}
	if !q.Latest {
		return q.RunID, nil
	}
	runs, err := c.store.Runs(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", ErrNoRuns
	}
	return runs[len(runs)-1], nil
}

func genotypes(individuals []model.Individual) []model.Genotype {
	out := make([]model.Genotype, len(individuals))
	for i, ind := range individuals {
		out[i] = ind.Genotype
	}
	return out
}
