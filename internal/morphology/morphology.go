// Package morphology derives design-balance signals from a developed body.
package morphology

import (
	"errors"
	"fmt"
	"math"

	"morphofit/internal/body"
)

var ErrNoCore = errors.New("body has no core")

// Summary counts the parts of one developed body. StructuralParts excludes
// the core and includes actuated parts.
type Summary struct {
	Actuators       int `json:"actuators"`
	StructuralParts int `json:"structural_parts"`
}

// Analyze counts the actuated and structural parts of b.
func Analyze(b *body.Body) (Summary, error) {
	if b == nil || b.Core == nil {
		return Summary{}, ErrNoCore
	}
	parts := body.Parts(b.Core, b.Core)
	hinges := body.Find[*body.ActiveHinge](b.Core, b.Core)
	return Summary{
		Actuators:       len(hinges),
		StructuralParts: len(parts),
	}, nil
}

// RatioConfig controls how a Summary is turned into an actuation ratio.
// BaselineParts is the number of structural parts expected on any robot
// regardless of size; they are discounted from the denominator.
type RatioConfig struct {
	BaselineParts int     `yaml:"baseline_parts"`
	FallbackRatio float64 `yaml:"fallback_ratio"`
	Epsilon       float64 `yaml:"epsilon"`
}

func DefaultRatioConfig() RatioConfig {
	return RatioConfig{
		BaselineParts: 4,
		FallbackRatio: 0.5,
		Epsilon:       1e-9,
	}
}

func (c RatioConfig) Validate() error {
	if c.BaselineParts < 0 {
		return fmt.Errorf("baseline parts must be >= 0, got %d", c.BaselineParts)
	}
	if math.IsNaN(c.FallbackRatio) || math.IsInf(c.FallbackRatio, 0) || c.FallbackRatio < 0 {
		return fmt.Errorf("fallback ratio must be finite and >= 0, got %f", c.FallbackRatio)
	}
	if math.IsNaN(c.Epsilon) || math.IsInf(c.Epsilon, 0) || c.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be finite and > 0, got %g", c.Epsilon)
	}
	return nil
}

// ActuationRatio is actuators per structural part beyond the baseline, or
// the fallback ratio for bodies no larger than the baseline.
func ActuationRatio(s Summary, cfg RatioConfig) float64 {
	if s.StructuralParts <= cfg.BaselineParts {
		return cfg.FallbackRatio
	}
	eps := cfg.Epsilon
	if eps <= 0 {
		eps = DefaultRatioConfig().Epsilon
	}
	return float64(s.Actuators) / math.Max(float64(s.StructuralParts-cfg.BaselineParts), eps)
}
