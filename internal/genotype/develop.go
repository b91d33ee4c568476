package genotype

import (
	"errors"
	"fmt"
	"math"

	"morphofit/internal/body"
	"morphofit/internal/model"
	"morphofit/internal/robot"
)

var ErrInvalidBody = errors.New("invalid body genotype")

const (
	defaultFrequency = 1.0
	maxAmplitude     = 1.0
)

// Develop builds the robot a genotype encodes. Hinges without a brain gene
// are left passive; surplus brain genes are ignored.
func Develop(g model.Genotype) (robot.Robot, error) {
	if g.Body.Kind != model.PartCore {
		return robot.Robot{}, fmt.Errorf("%w: root must be %s, got %q", ErrInvalidBody, model.PartCore, g.Body.Kind)
	}

	b := &body.Body{Core: body.NewCore(g.Body.Rotation)}
	for i, child := range g.Body.Children {
		if err := attachGene(b.Core, child); err != nil {
			return robot.Robot{}, fmt.Errorf("genotype %s child %d: %w", g.ID, i, err)
		}
	}

	hinges := b.ActiveHinges()
	brain := robot.Brain{Oscillators: make([]robot.Oscillator, len(hinges))}
	for i := range brain.Oscillators {
		if i >= len(g.Brain) {
			brain.Oscillators[i] = robot.Oscillator{Frequency: defaultFrequency}
			continue
		}
		osc, err := developOscillator(g.Brain[i])
		if err != nil {
			return robot.Robot{}, fmt.Errorf("genotype %s brain gene %d: %w", g.ID, i, err)
		}
		brain.Oscillators[i] = osc
	}

	return robot.Robot{ID: g.ID, Body: b, Brain: brain}, nil
}

func attachGene(parent body.Part, gene model.BodyGene) error {
	part, err := newPart(gene)
	if err != nil {
		return err
	}
	if err := parent.Attach(gene.Slot, part); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidBody, gene.Kind, err)
	}
	for _, child := range gene.Children {
		if err := attachGene(part, child); err != nil {
			return err
		}
	}
	return nil
}

func newPart(gene model.BodyGene) (body.Part, error) {
	if math.IsNaN(gene.Rotation) || math.IsInf(gene.Rotation, 0) {
		return nil, fmt.Errorf("%w: non-finite rotation", ErrInvalidBody)
	}
	switch gene.Kind {
	case model.PartBrick:
		return body.NewBrick(gene.Rotation), nil
	case model.PartBrickLarge:
		if gene.BoneLength < 0 || math.IsNaN(gene.BoneLength) || math.IsInf(gene.BoneLength, 0) {
			return nil, fmt.Errorf("%w: bone length %v", ErrInvalidBody, gene.BoneLength)
		}
		return body.NewBrickLarge(gene.Rotation, gene.BoneLength), nil
	case model.PartActiveHinge:
		return body.NewActiveHinge(gene.Rotation), nil
	case model.PartCore:
		return nil, fmt.Errorf("%w: core may only be the root", ErrInvalidBody)
	default:
		return nil, fmt.Errorf("%w: unknown part kind %q", ErrInvalidBody, gene.Kind)
	}
}

func developOscillator(gene model.BrainGene) (robot.Oscillator, error) {
	for _, v := range []float64{gene.Amplitude, gene.Phase, gene.Frequency} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return robot.Oscillator{}, errors.New("non-finite brain parameter")
		}
	}
	frequency := gene.Frequency
	if frequency <= 0 {
		frequency = defaultFrequency
	}
	return robot.Oscillator{
		Amplitude: math.Max(-maxAmplitude, math.Min(maxAmplitude, gene.Amplitude)),
		Phase:     gene.Phase,
		Frequency: frequency,
	}, nil
}
