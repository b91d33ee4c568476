package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"morphofit/internal/model"
)

type trajectoryKey struct {
	runID      string
	genotypeID string
}

type MemoryStore struct {
	mu           sync.RWMutex
	initialized  bool
	runs         []string
	individuals  map[string][]model.Individual
	trajectories map[trajectoryKey][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = nil
	s.individuals = make(map[string][]model.Individual)
	s.trajectories = make(map[trajectoryKey][]byte)
	return nil
}

// SaveGeneration replaces any individuals previously stored for the same
// run and generation.
func (s *MemoryStore) SaveGeneration(_ context.Context, runID string, generation int, individuals []model.Individual) error {
	// Round-trip through the codec so memory and sqlite reject the same records.
	stored := make([]model.Individual, 0, len(individuals))
	for _, ind := range individuals {
		ind.RunID = runID
		ind.Generation = generation
		payload, err := EncodeIndividual(ind)
		if err != nil {
			return err
		}
		decoded, err := DecodeIndividual(payload)
		if err != nil {
			return fmt.Errorf("decode individual %s: %w", ind.Genotype.ID, err)
		}
		stored = append(stored, decoded)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}

	existing, ok := s.individuals[runID]
	if !ok {
		s.runs = append(s.runs, runID)
	}
	kept := existing[:0]
	for _, ind := range existing {
		if ind.Generation != generation {
			kept = append(kept, ind)
		}
	}
	s.individuals[runID] = append(kept, stored...)
	return nil
}

func (s *MemoryStore) TopIndividuals(_ context.Context, q TopQuery) ([]model.Individual, error) {
	if q.Limit <= 0 {
		return nil, ErrInvalidLimit
	}
	all, err := s.collect(q.RunID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		return rankBefore(all[i], all[j])
	})
	if len(all) > q.Limit {
		all = all[:q.Limit]
	}
	return all, nil
}

func (s *MemoryStore) FitnessRows(_ context.Context, runID string) ([]model.FitnessRow, error) {
	all, err := s.collect(runID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].RunID != all[j].RunID {
			return all[i].RunID < all[j].RunID
		}
		return all[i].Generation < all[j].Generation
	})
	rows := make([]model.FitnessRow, len(all))
	for i, ind := range all {
		rows[i] = ind.FitnessRow()
	}
	return rows, nil
}

func (s *MemoryStore) Runs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	return append([]string(nil), s.runs...), nil
}

func (s *MemoryStore) SaveTrajectory(_ context.Context, runID, genotypeID string, trajectory model.Trajectory) error {
	payload, err := EncodeTrajectory(trajectory)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	s.trajectories[trajectoryKey{runID: runID, genotypeID: genotypeID}] = payload
	return nil
}

func (s *MemoryStore) GetTrajectory(_ context.Context, runID, genotypeID string) (model.Trajectory, bool, error) {
	s.mu.RLock()
	if !s.initialized {
		s.mu.RUnlock()
		return nil, false, ErrNotInitialized
	}
	payload, ok := s.trajectories[trajectoryKey{runID: runID, genotypeID: genotypeID}]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	trajectory, err := DecodeTrajectory(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode trajectory %s/%s: %w", runID, genotypeID, err)
	}
	return trajectory, true, nil
}

func (s *MemoryStore) collect(runID string) ([]model.Individual, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, ErrNotInitialized
	}

	if runID != "" {
		return append([]model.Individual(nil), s.individuals[runID]...), nil
	}
	var all []model.Individual
	for _, id := range s.runs {
		all = append(all, s.individuals[id]...)
	}
	return all, nil
}

// rankBefore orders individuals highest fitness first, then earlier
// generation, then lower genotype ID.
func rankBefore(a, b model.Individual) bool {
	if a.Fitness != b.Fitness {
		return a.Fitness > b.Fitness
	}
	if a.Generation != b.Generation {
		return a.Generation < b.Generation
	}
	return a.Genotype.ID < b.Genotype.ID
}
