package fitness

import (
	"morphofit/internal/kinematics"
	"morphofit/internal/model"
)

// scoreFunc adapts a plain endpoint function into a Composer.
type scoreFunc struct {
	name string
	fn   func(begin, end model.Pose) float64
}

func (s scoreFunc) Name() string {
	return s.name
}

func (s scoreFunc) Score(in Input) (float64, error) {
	if err := checkInput(in); err != nil {
		return 0, err
	}
	return checkScore(s.name, s.fn(in.Begin, in.End))
}

// risePenalty is the negative part of the vertical drop. Subtracting it
// rewards robots that ended higher.
func risePenalty(begin, end model.Pose) float64 {
	if drop := kinematics.VerticalDrop(begin, end); drop < 0 {
		return drop
	}
	return 0
}

func zValueZDisplacement(begin, end model.Pose) float64 {
	return kinematics.HeightSquared(end) - risePenalty(begin, end)
}

func standardComposers(w Weights) map[string]Composer {
	falling := AdditiveFalling{Scale: w.Falling.Scale}
	return map[string]Composer{
		XYDisplacementName:  scoreFunc{XYDisplacementName, kinematics.PlanarDisplacement},
		XYZDisplacementName: scoreFunc{XYZDisplacementName, kinematics.SpatialDisplacement},
		XYDisplacementPenalizeFallName: scoreFunc{XYDisplacementPenalizeFallName, func(begin, end model.Pose) float64 {
			return kinematics.PlanarDisplacement(begin, end) - falling.Apply(begin, end)
		}},
		ZValueName: scoreFunc{ZValueName, func(_, end model.Pose) float64 {
			return kinematics.HeightSquared(end)
		}},
		ZValueXYDisplacementName: scoreFunc{ZValueXYDisplacementName, func(begin, end model.Pose) float64 {
			return kinematics.HeightSquared(end) + kinematics.PlanarDisplacement(begin, end)
		}},
		ZValueZDisplacementName: scoreFunc{ZValueZDisplacementName, zValueZDisplacement},
		ZValueXYZDisplacementName: scoreFunc{ZValueXYZDisplacementName, func(begin, end model.Pose) float64 {
			return zValueZDisplacement(begin, end) + kinematics.PlanarDisplacement(begin, end)
		}},
	}
}
