package sim

import (
	"fmt"

	"github.com/ojrac/opensimplex-go"
)

// Terrain is the ground height field shared by every robot of a batch.
type Terrain interface {
	Name() string
	Height(x, y float64) float64
}

type flatTerrain struct{}

// Flat returns an infinite plane at z = 0.
func Flat() Terrain { return flatTerrain{} }

func (flatTerrain) Name() string                { return "flat" }
func (flatTerrain) Height(_, _ float64) float64 { return 0 }

type ruggedTerrain struct {
	noise     opensimplex.Noise
	seed      int64
	amplitude float64
	scale     float64
}

// Rugged returns a smooth noise height field in [-amplitude, amplitude].
// Scale is the horizontal feature size in meters.
func Rugged(seed int64, amplitude, scale float64) (Terrain, error) {
	if amplitude < 0 {
		return nil, fmt.Errorf("terrain amplitude must be >= 0, got %f", amplitude)
	}
	if scale <= 0 {
		return nil, fmt.Errorf("terrain scale must be > 0, got %f", scale)
	}
	return ruggedTerrain{
		noise:     opensimplex.New(seed),
		seed:      seed,
		amplitude: amplitude,
		scale:     scale,
	}, nil
}

func (t ruggedTerrain) Name() string {
	return fmt.Sprintf("rugged(seed=%d,amplitude=%g,scale=%g)", t.seed, t.amplitude, t.scale)
}

func (t ruggedTerrain) Height(x, y float64) float64 {
	return t.amplitude * t.noise.Eval2(x/t.scale, y/t.scale)
}

// NewTerrain builds a terrain by kind name.
func NewTerrain(kind string, seed int64, amplitude, scale float64) (Terrain, error) {
	switch kind {
	case "", "flat":
		return Flat(), nil
	case "rugged":
		return Rugged(seed, amplitude, scale)
	default:
		return nil, fmt.Errorf("unsupported terrain: %s", kind)
	}
}
