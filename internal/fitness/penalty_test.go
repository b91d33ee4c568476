package fitness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"morphofit/internal/model"
)

func TestProportionBandBoundariesAreNotPenalized(t *testing.T) {
	band := DefaultProportionBand()
	cases := []struct {
		ratio float64
		want  float64
	}{
		{0, 0.5},
		{0.2499999, 0.5},
		{0.25, 1.0},
		{0.5, 1.0},
		{0.70, 1.0},
		{0.7000001, 0.5},
		{3, 0.5},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, band.Apply(tc.ratio), "ratio=%v", tc.ratio)
	}
}

func TestMultiplicativeFalling(t *testing.T) {
	f := MultiplicativeFalling{Factor: 0.5}
	assert.Equal(t, 0.5, f.Apply(model.NewPose(0, 0, 1), model.NewPose(0, 0, 0.99)))
	assert.Equal(t, 1.0, f.Apply(model.NewPose(0, 0, 1), model.NewPose(0, 0, 1)))
	assert.Equal(t, 1.0, f.Apply(model.NewPose(0, 0, 1), model.NewPose(0, 0, 2)))
}

func TestAdditiveFalling(t *testing.T) {
	f := AdditiveFalling{Scale: 2}
	assert.Zero(t, f.Apply(model.NewPose(0, 0, 1), model.NewPose(5, 5, 1)))
	assert.Zero(t, f.Apply(model.NewPose(0, 0, 1), model.NewPose(0, 0, 1.7)))
	assert.InDelta(t, 1.2, f.Apply(model.NewPose(0, 0, 1), model.NewPose(0, 0, 0.4)), 1e-12)
}
