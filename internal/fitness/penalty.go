package fitness

import (
	"morphofit/internal/kinematics"
	"morphofit/internal/model"
)

// ProportionBand scales fitness down when the actuation ratio leaves
// [Low, High]. The bounds themselves are not penalized.
type ProportionBand struct {
	Low    float64 `yaml:"low"`
	High   float64 `yaml:"high"`
	Factor float64 `yaml:"factor"`
}

func DefaultProportionBand() ProportionBand {
	return ProportionBand{Low: 0.25, High: 0.70, Factor: 0.5}
}

func (b ProportionBand) Apply(ratio float64) float64 {
	if ratio < b.Low || ratio > b.High {
		return b.Factor
	}
	return 1.0
}

// MultiplicativeFalling scales fitness by Factor whenever the robot ended
// lower than it started.
type MultiplicativeFalling struct {
	Factor float64 `yaml:"factor"`
}

func (f MultiplicativeFalling) Apply(begin, end model.Pose) float64 {
	if kinematics.VerticalDrop(begin, end) > 0 {
		return f.Factor
	}
	return 1.0
}

// AdditiveFalling is subtracted from fitness: Scale times the height lost,
// or zero when the robot did not end lower.
type AdditiveFalling struct {
	Scale float64 `yaml:"scale"`
}

func (f AdditiveFalling) Apply(begin, end model.Pose) float64 {
	drop := kinematics.VerticalDrop(begin, end)
	if drop > 0 {
		return f.Scale * drop
	}
	return 0
}
