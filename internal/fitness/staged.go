package fitness

import (
	"morphofit/internal/kinematics"
)

// StagedCurriculum first rewards reaching the target height and, once the
// generation threshold is reached, rewards planar travel. Falling is
// subtracted in both stages, so the score can go negative.
type StagedCurriculum struct {
	TargetZ float64
	Falling AdditiveFalling
}

func NewStagedCurriculum(w Weights) StagedCurriculum {
	return StagedCurriculum{
		TargetZ: w.TargetZ,
		Falling: AdditiveFalling{Scale: w.Falling.Scale},
	}
}

func (StagedCurriculum) Name() string {
	return StagedCurriculumName
}

func (c StagedCurriculum) Score(in Input) (float64, error) {
	if err := checkInput(in); err != nil {
		return 0, err
	}
	penalty := c.Falling.Apply(in.Begin, in.End)
	if in.Context.GenerationIndex < in.Context.GenerationThreshold {
		return checkScore(c.Name(), kinematics.TargetZCloseness(in.End, c.TargetZ)-penalty)
	}
	return checkScore(c.Name(), kinematics.PlanarDisplacement(in.Begin, in.End)-penalty)
}
