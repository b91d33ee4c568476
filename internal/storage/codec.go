package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"morphofit/internal/model"
)

var ErrVersionMismatch = errors.New("record version mismatch")

var (
	trajectoryEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	trajectoryDecoder, _ = zstd.NewReader(nil)
)

func EncodeIndividual(ind model.Individual) ([]byte, error) {
	if math.IsNaN(ind.Fitness) || math.IsInf(ind.Fitness, 0) {
		return nil, fmt.Errorf("%w: %s", ErrNonFiniteFitness, ind.Genotype.ID)
	}
	return json.Marshal(ind)
}

func DecodeIndividual(data []byte) (model.Individual, error) {
	var ind model.Individual
	if err := json.Unmarshal(data, &ind); err != nil {
		return model.Individual{}, err
	}
	if err := checkVersion(ind.VersionedRecord); err != nil {
		return model.Individual{}, err
	}
	if err := checkVersion(ind.Genotype.VersionedRecord); err != nil {
		return model.Individual{}, err
	}
	return ind, nil
}

// trajectoryRecord stores each pose as x, y, z, qw, qx, qy, qz.
type trajectoryRecord struct {
	model.VersionedRecord
	Poses [][7]float64 `json:"poses"`
}

// EncodeTrajectory serializes a trajectory as zstd-compressed JSON.
func EncodeTrajectory(t model.Trajectory) ([]byte, error) {
	record := trajectoryRecord{
		VersionedRecord: model.CurrentVersion(),
		Poses:           make([][7]float64, len(t)),
	}
	for i, p := range t {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("pose %d: %w", i, err)
		}
		q := p.Orientation
		record.Poses[i] = [7]float64{p.Position.X, p.Position.Y, p.Position.Z, q.Real, q.Imag, q.Jmag, q.Kmag}
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return trajectoryEncoder.EncodeAll(raw, nil), nil
}

func DecodeTrajectory(data []byte) (model.Trajectory, error) {
	raw, err := trajectoryDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress trajectory: %w", err)
	}
	var record trajectoryRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return nil, err
	}
	out := make(model.Trajectory, len(record.Poses))
	for i, v := range record.Poses {
		out[i] = model.Pose{
			Position:    r3.Vec{X: v[0], Y: v[1], Z: v[2]},
			Orientation: quat.Number{Real: v[3], Imag: v[4], Jmag: v[5], Kmag: v[6]},
		}
	}
	return out, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v != model.CurrentVersion() {
		return ErrVersionMismatch
	}
	return nil
}
