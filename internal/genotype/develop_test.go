package genotype

import (
	"errors"
	"math"
	"testing"

	"morphofit/internal/model"
	"morphofit/internal/morphology"
)

func spiderGenotype() model.Genotype {
	leg := func(slot int) model.BodyGene {
		return model.BodyGene{
			Kind: model.PartActiveHinge,
			Slot: slot,
			Children: []model.BodyGene{{
				Kind:       model.PartBrickLarge,
				BoneLength: 0.2,
			}},
		}
	}
	return model.Genotype{
		ID: "spider",
		Body: model.BodyGene{
			Kind:     model.PartCore,
			Children: []model.BodyGene{leg(0), leg(1), leg(2), leg(3)},
		},
		Brain: []model.BrainGene{
			{Amplitude: 0.8, Phase: 0, Frequency: 1},
			{Amplitude: 2.5, Phase: math.Pi, Frequency: 1},
		},
	}
}

func TestDevelopBuildsBodyAndBrain(t *testing.T) {
	r, err := Develop(spiderGenotype())
	if err != nil {
		t.Fatalf("develop: %v", err)
	}
	if r.ID != "spider" {
		t.Fatalf("unexpected robot id: %s", r.ID)
	}
	summary, err := morphology.Analyze(r.Body)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if summary.Actuators != 4 || summary.StructuralParts != 8 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(r.Brain.Oscillators) != 4 {
		t.Fatalf("expected one oscillator per hinge, got %d", len(r.Brain.Oscillators))
	}
	if r.Brain.Oscillators[1].Amplitude != maxAmplitude {
		t.Fatalf("expected clamped amplitude, got %f", r.Brain.Oscillators[1].Amplitude)
	}
	if r.Brain.Oscillators[3].Amplitude != 0 || r.Brain.Oscillators[3].Frequency != defaultFrequency {
		t.Fatalf("expected passive default oscillator, got %+v", r.Brain.Oscillators[3])
	}
}

func TestDevelopRejectsInvalidBodies(t *testing.T) {
	cases := map[string]model.Genotype{
		"non-core root": {Body: model.BodyGene{Kind: model.PartBrick}},
		"nested core": {Body: model.BodyGene{Kind: model.PartCore, Children: []model.BodyGene{
			{Kind: model.PartCore},
		}}},
		"unknown kind": {Body: model.BodyGene{Kind: model.PartCore, Children: []model.BodyGene{
			{Kind: "wheel"},
		}}},
		"slot out of range": {Body: model.BodyGene{Kind: model.PartCore, Children: []model.BodyGene{
			{Kind: model.PartActiveHinge, Children: []model.BodyGene{{Kind: model.PartBrick, Slot: 2}}},
		}}},
		"duplicate slot": {Body: model.BodyGene{Kind: model.PartCore, Children: []model.BodyGene{
			{Kind: model.PartBrick, Slot: 1},
			{Kind: model.PartBrick, Slot: 1},
		}}},
	}
	for name, g := range cases {
		if _, err := Develop(g); !errors.Is(err, ErrInvalidBody) {
			t.Fatalf("%s: expected invalid body error, got %v", name, err)
		}
	}
}

func TestDevelopRejectsNonFiniteBrain(t *testing.T) {
	g := spiderGenotype()
	g.Brain[0].Phase = math.NaN()
	if _, err := Develop(g); err == nil {
		t.Fatal("expected non-finite brain error")
	}
}
