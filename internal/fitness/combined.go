package fitness

import (
	"math"

	"morphofit/internal/kinematics"
	"morphofit/internal/model"
	"morphofit/internal/morphology"
)

// CombinedMorphology weighs height closeness against planar travel and
// scales the result down for unbalanced bodies and for falling. Penalties
// never flip the sign.
type CombinedMorphology struct {
	TargetZ        float64
	ZWeight        float64
	XYWeight       float64
	ZCloseness     string
	CutoffDistance float64
	Proportion     ProportionBand
	Falling        MultiplicativeFalling
	Ratio          morphology.RatioConfig
}

func NewCombinedMorphology(w Weights) CombinedMorphology {
	return CombinedMorphology{
		TargetZ:        w.TargetZ,
		ZWeight:        w.ZWeight,
		XYWeight:       w.XYWeight,
		ZCloseness:     w.ZCloseness,
		CutoffDistance: w.CutoffDistance,
		Proportion:     w.Proportion,
		Falling:        MultiplicativeFalling{Factor: w.Falling.Factor},
		Ratio:          w.Ratio,
	}
}

func (CombinedMorphology) Name() string {
	return CombinedMorphologyName
}

func (c CombinedMorphology) Score(in Input) (float64, error) {
	if err := checkInput(in); err != nil {
		return 0, err
	}
	ratio := morphology.ActuationRatio(in.Morphology, c.Ratio)
	proportion := c.Proportion.Apply(ratio)
	falling := c.Falling.Apply(in.Begin, in.End)

	weighted := c.ZWeight*c.zSub(in.End) + c.XYWeight*kinematics.PlanarDisplacement(in.Begin, in.End)
	return checkScore(c.Name(), proportion*falling*weighted)
}

func (c CombinedMorphology) zSub(end model.Pose) float64 {
	if c.ZCloseness == ZClosenessCutoff && math.Abs(end.Position.Z-c.TargetZ) > c.CutoffDistance {
		return 0
	}
	return kinematics.TargetZCloseness(end, c.TargetZ)
}
