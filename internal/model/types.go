package model

// Versions stamped on every record written by this module.
const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

func CurrentVersion() VersionedRecord {
	return VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

// Part kinds shared by genotype body genes and developed bodies.
const (
	PartCore        = "core"
	PartBrick       = "brick"
	PartBrickLarge  = "brick_large"
	PartActiveHinge = "active_hinge"
)

// Genotype is the evolvable encoding a robot is developed from.
type Genotype struct {
	VersionedRecord
	ID    string      `json:"id"`
	Body  BodyGene    `json:"body"`
	Brain []BrainGene `json:"brain,omitempty"`
}

// BodyGene describes one module and the modules attached to it. The root
// gene must be a core.
type BodyGene struct {
	Kind       string     `json:"kind"`
	Slot       int        `json:"slot"`
	Rotation   float64    `json:"rotation"`
	BoneLength float64    `json:"bone_length,omitempty"`
	Children   []BodyGene `json:"children,omitempty"`
}

// BrainGene parameterizes the oscillator driving one active hinge, in
// depth-first hinge order.
type BrainGene struct {
	Amplitude float64 `json:"amplitude"`
	Phase     float64 `json:"phase"`
	Frequency float64 `json:"frequency"`
}

// Individual is an evaluated genotype as persisted by a run.
type Individual struct {
	VersionedRecord
	RunID      string   `json:"run_id"`
	Generation int      `json:"generation"`
	Genotype   Genotype `json:"genotype"`
	Fitness    float64  `json:"fitness"`
}

// FitnessRow is the flat per-individual row used for exports.
type FitnessRow struct {
	RunID      string  `json:"run_id" csv:"run_id"`
	Generation int     `json:"generation" csv:"generation_index"`
	GenotypeID string  `json:"genotype_id" csv:"genotype_id"`
	Fitness    float64 `json:"fitness" csv:"fitness"`
}

// GenerationAggregate summarizes one generation of one run.
type GenerationAggregate struct {
	RunID       string  `csv:"run_id"`
	Generation  int     `csv:"generation_index"`
	MaxFitness  float64 `csv:"max_fitness"`
	MeanFitness float64 `csv:"mean_fitness"`
	Count       int     `csv:"count"`
}

func (i Individual) FitnessRow() FitnessRow {
	return FitnessRow{RunID: i.RunID, Generation: i.Generation, GenotypeID: i.Genotype.ID, Fitness: i.Fitness}
}
