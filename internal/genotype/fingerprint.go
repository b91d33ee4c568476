package genotype

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"

	"morphofit/internal/model"
)

// Fingerprint hashes the body and brain genes. Genotypes that develop into
// the same robot share a fingerprint regardless of their ID.
func Fingerprint(g model.Genotype) string {
	payload, err := json.Marshal(struct {
		Body  model.BodyGene    `json:"body"`
		Brain []model.BrainGene `json:"brain"`
	}{g.Body, g.Brain})
	if err != nil {
		return ""
	}
	sum := sha1.Sum(payload)
	return hex.EncodeToString(sum[:])
}
