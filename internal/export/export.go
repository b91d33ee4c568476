// Package export writes stored evaluation results as CSV tables.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"morphofit/internal/kinematics"
	"morphofit/internal/model"
)

const (
	FitnessFile     = "fitness.csv"
	GenerationsFile = "generations.csv"
	PathsFile       = "paths.csv"
)

// PoseRow is one sampled pose of a trajectory.
type PoseRow struct {
	GenotypeID string  `csv:"genotype_id"`
	Sample     int     `csv:"sample"`
	X          float64 `csv:"x"`
	Y          float64 `csv:"y"`
	Z          float64 `csv:"z"`
}

// PathRow is the path summary of one genotype's trajectory.
type PathRow struct {
	GenotypeID   string  `csv:"genotype_id"`
	Samples      int     `csv:"samples"`
	PathLength   float64 `csv:"path_length"`
	Displacement float64 `csv:"displacement"`
	MeanHeight   float64 `csv:"mean_height"`
	HeightStdDev float64 `csv:"height_std_dev"`
	MinHeight    float64 `csv:"min_height"`
	MaxHeight    float64 `csv:"max_height"`
}

func NewPathRow(genotypeID string, s kinematics.PathSummary) PathRow {
	return PathRow{
		GenotypeID:   genotypeID,
		Samples:      s.Samples,
		PathLength:   s.PathLength,
		Displacement: s.Displacement,
		MeanHeight:   s.MeanHeight,
		HeightStdDev: s.HeightStdDev,
		MinHeight:    s.MinHeight,
		MaxHeight:    s.MaxHeight,
	}
}

// Aggregate reduces fitness rows to max and mean fitness per run and
// generation, ordered by run then generation.
func Aggregate(rows []model.FitnessRow) []model.GenerationAggregate {
	type key struct {
		run        string
		generation int
	}
	groups := make(map[key][]float64)
	for _, row := range rows {
		k := key{run: row.RunID, generation: row.Generation}
		groups[k] = append(groups[k], row.Fitness)
	}

	out := make([]model.GenerationAggregate, 0, len(groups))
	for k, values := range groups {
		out = append(out, model.GenerationAggregate{
			RunID:       k.run,
			Generation:  k.generation,
			MaxFitness:  floats.Max(values),
			MeanFitness: stat.Mean(values, nil),
			Count:       len(values),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RunID != out[j].RunID {
			return out[i].RunID < out[j].RunID
		}
		return out[i].Generation < out[j].Generation
	})
	return out
}

func WriteFitnessRows(w io.Writer, rows []model.FitnessRow) error {
	return gocsv.Marshal(rows, w)
}

func WriteAggregates(w io.Writer, aggregates []model.GenerationAggregate) error {
	return gocsv.Marshal(aggregates, w)
}

func WriteTrajectory(w io.Writer, genotypeID string, trajectory model.Trajectory) error {
	rows := make([]PoseRow, len(trajectory))
	for i, p := range trajectory {
		rows[i] = PoseRow{GenotypeID: genotypeID, Sample: i, X: p.Position.X, Y: p.Position.Y, Z: p.Position.Z}
	}
	return gocsv.Marshal(rows, w)
}

func WritePathRows(w io.Writer, rows []PathRow) error {
	return gocsv.Marshal(rows, w)
}

// WriteRunFiles writes FitnessFile and GenerationsFile into dir and
// returns their paths.
func WriteRunFiles(dir string, rows []model.FitnessRow) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	fitnessPath := filepath.Join(dir, FitnessFile)
	if err := writeFile(fitnessPath, func(w io.Writer) error { return WriteFitnessRows(w, rows) }); err != nil {
		return nil, err
	}
	generationsPath := filepath.Join(dir, GenerationsFile)
	if err := writeFile(generationsPath, func(w io.Writer) error { return WriteAggregates(w, Aggregate(rows)) }); err != nil {
		return nil, err
	}
	return []string{fitnessPath, generationsPath}, nil
}

// WritePathFile writes PathsFile into dir and returns its path.
func WritePathFile(dir string, rows []PathRow) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, PathsFile)
	if err := writeFile(path, func(w io.Writer) error { return WritePathRows(w, rows) }); err != nil {
		return "", err
	}
	return path, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
