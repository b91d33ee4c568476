// Package body models the developed structure of a modular robot as a tree
// of parts rooted at a core.
package body

import (
	"errors"
	"fmt"

	"morphofit/internal/model"
)

var (
	ErrInvalidSlot  = errors.New("invalid attachment slot")
	ErrSlotOccupied = errors.New("attachment slot occupied")
)

const (
	coreMass        = 0.07
	brickMass       = 0.06043
	activeHingeMass = 0.07144

	// StandardBoneLength is the edge length of a regular brick.
	StandardBoneLength = 0.075
)

// Part is one module of a body.
type Part interface {
	Kind() string
	Rotation() float64
	Mass() float64
	// Length is the extent of the part along its attachment axis.
	Length() float64
	Slots() int
	Children() []Part
	Attach(slot int, child Part) error
}

type module struct {
	rotation float64
	children []Part
}

func newModule(rotation float64, slots int) module {
	return module{rotation: rotation, children: make([]Part, slots)}
}

func (m *module) Rotation() float64 { return m.rotation }

func (m *module) Slots() int { return len(m.children) }

// Children returns the attached parts in slot order.
func (m *module) Children() []Part {
	out := make([]Part, 0, len(m.children))
	for _, child := range m.children {
		if child != nil {
			out = append(out, child)
		}
	}
	return out
}

func (m *module) Attach(slot int, child Part) error {
	if child == nil {
		return errors.New("child part is required")
	}
	if slot < 0 || slot >= len(m.children) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidSlot, slot, len(m.children))
	}
	if m.children[slot] != nil {
		return fmt.Errorf("%w: %d", ErrSlotOccupied, slot)
	}
	m.children[slot] = child
	return nil
}

// Core is the root of every body. It carries the controller and reports the
// robot pose.
type Core struct{ module }

func NewCore(rotation float64) *Core {
	return &Core{module: newModule(rotation, 4)}
}

func (*Core) Kind() string    { return model.PartCore }
func (*Core) Mass() float64   { return coreMass }
func (*Core) Length() float64 { return 0.15 }

// Brick is a passive structural cube.
type Brick struct{ module }

func NewBrick(rotation float64) *Brick {
	return &Brick{module: newModule(rotation, 3)}
}

func (*Brick) Kind() string    { return model.PartBrick }
func (*Brick) Mass() float64   { return brickMass }
func (*Brick) Length() float64 { return StandardBoneLength }

// BrickLarge is a passive brick stretched along its attachment axis.
type BrickLarge struct {
	module
	boneLength float64
}

func NewBrickLarge(rotation, boneLength float64) *BrickLarge {
	if boneLength <= 0 {
		boneLength = StandardBoneLength
	}
	return &BrickLarge{module: newModule(rotation, 3), boneLength: boneLength}
}

func (*BrickLarge) Kind() string { return model.PartBrickLarge }

func (b *BrickLarge) Mass() float64 {
	return (42.65 + (b.boneLength-StandardBoneLength)*0.44531428571) / 1000
}

func (b *BrickLarge) Length() float64 { return b.boneLength }

func (b *BrickLarge) BoneLength() float64 { return b.boneLength }

// ActiveHinge is the only actuated part.
type ActiveHinge struct{ module }

func NewActiveHinge(rotation float64) *ActiveHinge {
	return &ActiveHinge{module: newModule(rotation, 1)}
}

func (*ActiveHinge) Kind() string    { return model.PartActiveHinge }
func (*ActiveHinge) Mass() float64   { return activeHingeMass }
func (*ActiveHinge) Length() float64 { return 0.1 }
