package fitness

import (
	"fmt"
	"sort"
	"strings"
)

const (
	StagedCurriculumName   = "staged_curriculum"
	CombinedMorphologyName = "combined_morphology"

	XYDisplacementName             = "xy_displacement"
	XYZDisplacementName            = "xyz_displacement"
	XYDisplacementPenalizeFallName = "xy_displacement_penalize_z_displacement"
	ZValueName                     = "z_value"
	ZValueXYDisplacementName       = "z_value_xy_displacement"
	ZValueZDisplacementName        = "z_value_z_displacement"
	ZValueXYZDisplacementName      = "z_value_xy_displacement_z_displacement"
)

var composerAliases = map[string]string{
	"staged":   StagedCurriculumName,
	"split":    StagedCurriculumName,
	"combined": CombinedMorphologyName,
}

// New validates w and returns the composer registered under name.
func New(name string, w Weights) (Composer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	key := normalizeName(name)
	if alias, ok := composerAliases[key]; ok {
		key = alias
	}
	switch key {
	case StagedCurriculumName:
		return NewStagedCurriculum(w), nil
	case CombinedMorphologyName:
		return NewCombinedMorphology(w), nil
	}
	if c, ok := standardComposers(w)[key]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownComposer, name)
}

// Names lists every selectable composer name, sorted.
func Names() []string {
	names := []string{StagedCurriculumName, CombinedMorphologyName}
	for name := range standardComposers(DefaultWeights()) {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(raw string) string {
	name := strings.TrimSpace(strings.ToLower(raw))
	return strings.ReplaceAll(name, "-", "_")
}
