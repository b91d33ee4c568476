package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"morphofit/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveGeneration(ctx context.Context, runID string, generation int, individuals []model.Individual) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payloads := make([][]byte, len(individuals))
	for i, ind := range individuals {
		ind.RunID = runID
		ind.Generation = generation
		if payloads[i], err = EncodeIndividual(ind); err != nil {
			return err
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO runs (run_id) VALUES (?) ON CONFLICT(run_id) DO NOTHING`, runID); err != nil {
		return fmt.Errorf("register run %s: %w", runID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM individuals WHERE run_id = ? AND generation = ?`, runID, generation); err != nil {
		return err
	}
	for i, ind := range individuals {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO individuals (run_id, generation, position, genotype_id, fitness, schema_version, codec_version, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, generation, i, ind.Genotype.ID, ind.Fitness, ind.SchemaVersion, ind.CodecVersion, payloads[i])
		if err != nil {
			return fmt.Errorf("insert individual %s: %w", ind.Genotype.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) TopIndividuals(ctx context.Context, q TopQuery) ([]model.Individual, error) {
	if q.Limit <= 0 {
		return nil, ErrInvalidLimit
	}
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT genotype_id, payload FROM individuals
		WHERE ? = '' OR run_id = ?
		ORDER BY fitness DESC, generation ASC, genotype_id ASC
		LIMIT ?
	`, q.RunID, q.RunID, q.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Individual
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		ind, err := DecodeIndividual(payload)
		if err != nil {
			return nil, fmt.Errorf("decode individual %s: %w", id, err)
		}
		out = append(out, ind)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) FitnessRows(ctx context.Context, runID string) ([]model.FitnessRow, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT run_id, generation, genotype_id, fitness FROM individuals
		WHERE ? = '' OR run_id = ?
		ORDER BY run_id, generation, position
	`, runID, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FitnessRow
	for rows.Next() {
		var row model.FitnessRow
		if err := rows.Scan(&row.RunID, &row.Generation, &row.GenotypeID, &row.Fitness); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Runs(ctx context.Context) ([]string, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT run_id FROM runs ORDER BY created_seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveTrajectory(ctx context.Context, runID, genotypeID string, trajectory model.Trajectory) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeTrajectory(trajectory)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO trajectories (run_id, genotype_id, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id, genotype_id) DO UPDATE SET
			payload = excluded.payload
	`, runID, genotypeID, payload)
	return err
}

func (s *SQLiteStore) GetTrajectory(ctx context.Context, runID, genotypeID string) (model.Trajectory, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM trajectories WHERE run_id = ? AND genotype_id = ?`, runID, genotypeID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	trajectory, err := DecodeTrajectory(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode trajectory %s/%s: %w", runID, genotypeID, err)
	}
	return trajectory, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS individuals (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			position INTEGER NOT NULL,
			genotype_id TEXT NOT NULL,
			fitness REAL NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (run_id, generation, position)
		);
		CREATE INDEX IF NOT EXISTS individuals_fitness ON individuals (fitness DESC);
		CREATE TABLE IF NOT EXISTS runs (
			created_seq INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE
		);
		INSERT OR IGNORE INTO runs (run_id)
			SELECT run_id FROM individuals WHERE true GROUP BY run_id ORDER BY MIN(rowid);
		CREATE TABLE IF NOT EXISTS trajectories (
			run_id TEXT NOT NULL,
			genotype_id TEXT NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (run_id, genotype_id)
		);
	`)
	return err
}
