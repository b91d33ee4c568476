package genotype

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"morphofit/internal/model"
)

// RandomConfig bounds randomly sampled genotypes.
type RandomConfig struct {
	MaxParts      int     `yaml:"max_parts"`
	MinBoneLength float64 `yaml:"min_bone_length"`
	MaxBoneLength float64 `yaml:"max_bone_length"`
	MaxFrequency  float64 `yaml:"max_frequency"`
}

func DefaultRandomConfig() RandomConfig {
	return RandomConfig{
		MaxParts:      12,
		MinBoneLength: 0.075,
		MaxBoneLength: 0.3,
		MaxFrequency:  2.0,
	}
}

var partKinds = []string{model.PartBrick, model.PartBrickLarge, model.PartActiveHinge}

var slotCount = map[string]int{
	model.PartCore:        4,
	model.PartBrick:       3,
	model.PartBrickLarge:  3,
	model.PartActiveHinge: 1,
}

// Random samples a developable genotype. The ID is the content fingerprint.
func Random(rng *rand.Rand, cfg RandomConfig) (model.Genotype, error) {
	rng = ensureRNG(rng)
	if cfg.MaxParts <= 0 {
		return model.Genotype{}, fmt.Errorf("max parts must be > 0")
	}
	if cfg.MinBoneLength <= 0 || cfg.MaxBoneLength < cfg.MinBoneLength {
		return model.Genotype{}, fmt.Errorf("invalid bone length range [%f, %f]", cfg.MinBoneLength, cfg.MaxBoneLength)
	}

	root := model.BodyGene{Kind: model.PartCore}
	budget := 1 + rng.Intn(cfg.MaxParts)
	grow(rng, cfg, &root, &budget)
	hinges := countKind(root, model.PartActiveHinge)

	brain := make([]model.BrainGene, hinges)
	for i := range brain {
		brain[i] = model.BrainGene{
			Amplitude: rng.Float64(),
			Phase:     rng.Float64() * 2 * math.Pi,
			Frequency: 0.25 + rng.Float64()*(cfg.MaxFrequency-0.25),
		}
	}

	g := model.Genotype{
		VersionedRecord: model.CurrentVersion(),
		Body:            root,
		Brain:           brain,
	}
	g.ID = Fingerprint(g)
	return g, nil
}

// RandomPopulation samples n genotypes from one seeded source.
func RandomPopulation(seed int64, n int, cfg RandomConfig) ([]model.Genotype, error) {
	rng := rand.New(rand.NewSource(seed))
	out := make([]model.Genotype, 0, n)
	for i := 0; i < n; i++ {
		g, err := Random(rng, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func grow(rng *rand.Rand, cfg RandomConfig, gene *model.BodyGene, budget *int) {
	for slot := 0; slot < slotCount[gene.Kind] && *budget > 0; slot++ {
		if gene.Kind != model.PartCore && rng.Float64() < 0.4 {
			continue
		}
		child := model.BodyGene{
			Kind:     partKinds[rng.Intn(len(partKinds))],
			Slot:     slot,
			Rotation: float64(rng.Intn(4)) * math.Pi / 2,
		}
		if child.Kind == model.PartBrickLarge {
			child.BoneLength = cfg.MinBoneLength + rng.Float64()*(cfg.MaxBoneLength-cfg.MinBoneLength)
		}
		*budget--
		grow(rng, cfg, &child, budget)
		gene.Children = append(gene.Children, child)
	}
}

func countKind(gene model.BodyGene, kind string) int {
	n := 0
	if gene.Kind == kind {
		n++
	}
	for _, child := range gene.Children {
		n += countKind(child, kind)
	}
	return n
}

func ensureRNG(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
