package storage

import (
	"context"
	"errors"

	"morphofit/internal/model"
)

var (
	ErrNotInitialized   = errors.New("store is not initialized")
	ErrInvalidLimit     = errors.New("top query limit must be > 0")
	ErrNonFiniteFitness = errors.New("individual fitness is not finite")
)

// TopQuery selects the best individuals of a run. An empty RunID spans
// every run in the store.
type TopQuery struct {
	RunID string
	Limit int
}

// Store persists evaluated individuals and their trajectories.
type Store interface {
	Init(ctx context.Context) error
	SaveGeneration(ctx context.Context, runID string, generation int, individuals []model.Individual) error
	// TopIndividuals returns at most q.Limit individuals, highest fitness
	// first. Ties keep the earlier generation, then the lower genotype ID.
	TopIndividuals(ctx context.Context, q TopQuery) ([]model.Individual, error)
	// FitnessRows returns every stored fitness of a run ordered by
	// generation. An empty runID spans every run.
	FitnessRows(ctx context.Context, runID string) ([]model.FitnessRow, error)
	Runs(ctx context.Context) ([]string, error)
	SaveTrajectory(ctx context.Context, runID, genotypeID string, trajectory model.Trajectory) error
	GetTrajectory(ctx context.Context, runID, genotypeID string) (model.Trajectory, bool, error)
}
