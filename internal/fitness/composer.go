// Package fitness turns the endpoints of a simulated trajectory into a
// scalar fitness. Composers are pure: the same Input and Weights always
// produce the same score.
package fitness

import (
	"errors"
	"fmt"
	"math"

	"morphofit/internal/model"
	"morphofit/internal/morphology"
)

var (
	ErrUnknownComposer = errors.New("unknown fitness composer")
	ErrInvalidWeight   = errors.New("invalid fitness weight")
	ErrNonFiniteScore  = errors.New("fitness is not finite")
)

// Z closeness modes for the combined composer.
const (
	ZClosenessSmooth = "smooth"
	ZClosenessCutoff = "cutoff"
)

// Input is everything a composer may read for one robot.
type Input struct {
	Begin      model.Pose
	End        model.Pose
	Morphology morphology.Summary
	Context    model.FitnessContext
}

// Composer scores one robot.
type Composer interface {
	Name() string
	Score(in Input) (float64, error)
}

// Weights is the immutable experiment configuration shared by all
// composers. Each composer reads only the fields it needs.
type Weights struct {
	TargetZ        float64                `yaml:"target_z"`
	ZWeight        float64                `yaml:"z_weight"`
	XYWeight       float64                `yaml:"xy_weight"`
	ZCloseness     string                 `yaml:"z_closeness"`
	CutoffDistance float64                `yaml:"cutoff_distance"`
	Proportion     ProportionBand         `yaml:"proportion"`
	Falling        FallingConfig          `yaml:"falling"`
	Ratio          morphology.RatioConfig `yaml:"ratio"`
}

// FallingConfig holds the constants of both falling penalty variants.
type FallingConfig struct {
	Factor float64 `yaml:"factor"`
	Scale  float64 `yaml:"scale"`
}

func DefaultWeights() Weights {
	return Weights{
		TargetZ:        0.5,
		ZWeight:        1,
		XYWeight:       1,
		ZCloseness:     ZClosenessSmooth,
		CutoffDistance: 0.1,
		Proportion:     DefaultProportionBand(),
		Falling:        FallingConfig{Factor: 0.5, Scale: 2},
		Ratio:          morphology.DefaultRatioConfig(),
	}
}

func (w Weights) Validate() error {
	named := []struct {
		name  string
		value float64
		min   float64
	}{
		{"target_z", w.TargetZ, math.Inf(-1)},
		{"z_weight", w.ZWeight, 0},
		{"xy_weight", w.XYWeight, 0},
		{"cutoff_distance", w.CutoffDistance, 0},
		{"proportion.low", w.Proportion.Low, 0},
		{"proportion.high", w.Proportion.High, 0},
		{"proportion.factor", w.Proportion.Factor, 0},
		{"falling.factor", w.Falling.Factor, 0},
		{"falling.scale", w.Falling.Scale, 0},
	}
	for _, item := range named {
		if math.IsNaN(item.value) || math.IsInf(item.value, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidWeight, item.name)
		}
		if item.value < item.min {
			return fmt.Errorf("%w: %s must be >= %g, got %g", ErrInvalidWeight, item.name, item.min, item.value)
		}
	}
	if w.Proportion.Low > w.Proportion.High {
		return fmt.Errorf("%w: proportion band low %g exceeds high %g", ErrInvalidWeight, w.Proportion.Low, w.Proportion.High)
	}
	switch w.ZCloseness {
	case ZClosenessSmooth, ZClosenessCutoff:
	default:
		return fmt.Errorf("%w: unsupported z closeness mode %q", ErrInvalidWeight, w.ZCloseness)
	}
	if err := w.Ratio.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWeight, err)
	}
	return nil
}

func checkInput(in Input) error {
	if err := in.Begin.Validate(); err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := in.End.Validate(); err != nil {
		return fmt.Errorf("end: %w", err)
	}
	return nil
}

func checkScore(name string, score float64) (float64, error) {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("%w: %s produced %v", ErrNonFiniteScore, name, score)
	}
	return score, nil
}
