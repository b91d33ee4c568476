// Package config loads experiment configuration from YAML.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"morphofit/internal/evaluator"
	"morphofit/internal/fitness"
	"morphofit/internal/genotype"
	"morphofit/internal/logging"
	"morphofit/internal/sim"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds every experiment parameter.
type Config struct {
	Fitness    FitnessConfig       `yaml:"fitness"`
	Simulation sim.BatchParameters `yaml:"simulation"`
	Terrain    TerrainConfig       `yaml:"terrain"`
	Population PopulationConfig    `yaml:"population"`
	Evaluator  EvaluatorConfig     `yaml:"evaluator"`
	Storage    StorageConfig       `yaml:"storage"`
	Logging    logging.Config      `yaml:"logging"`
	Metrics    MetricsConfig       `yaml:"metrics"`
}

// FitnessConfig selects the composer and its weights.
type FitnessConfig struct {
	Composer            string `yaml:"composer"`
	GenerationThreshold int    `yaml:"generation_threshold"`

	fitness.Weights `yaml:",inline"`
}

type TerrainConfig struct {
	Kind      string  `yaml:"kind"` // "flat" or "rugged"
	Seed      int64   `yaml:"seed"`
	Amplitude float64 `yaml:"amplitude"`
	Scale     float64 `yaml:"scale"`
}

// PopulationConfig controls the seeded random population evaluated by
// the CLI.
type PopulationConfig struct {
	Size int   `yaml:"size"`
	Seed int64 `yaml:"seed"`

	genotype.RandomConfig `yaml:",inline"`
}

type EvaluatorConfig struct {
	FailurePolicy       string `yaml:"failure_policy"`
	MorphologyCacheSize int    `yaml:"morphology_cache_size"`
}

type StorageConfig struct {
	Kind   string `yaml:"kind"`
	DBPath string `yaml:"db_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid section.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Composer(); err != nil {
		errs = append(errs, fmt.Errorf("fitness: %w", err))
	}
	if c.Fitness.GenerationThreshold < 0 {
		errs = append(errs, fmt.Errorf("fitness: generation_threshold must be >= 0, got %d", c.Fitness.GenerationThreshold))
	}
	if err := c.Simulation.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("simulation: %w", err))
	}
	if _, err := c.BuildTerrain(); err != nil {
		errs = append(errs, fmt.Errorf("terrain: %w", err))
	}
	if c.Population.Size <= 0 {
		errs = append(errs, fmt.Errorf("population: size must be > 0, got %d", c.Population.Size))
	}
	switch c.Evaluator.FailurePolicy {
	case evaluator.PolicySentinel, evaluator.PolicyFailBatch:
	default:
		errs = append(errs, fmt.Errorf("evaluator: %w: %q", evaluator.ErrUnknownPolicy, c.Evaluator.FailurePolicy))
	}
	if c.Evaluator.MorphologyCacheSize < 0 {
		errs = append(errs, fmt.Errorf("evaluator: morphology_cache_size must be >= 0"))
	}
	switch c.Storage.Kind {
	case "memory":
	case "sqlite":
		if c.Storage.DBPath == "" {
			errs = append(errs, errors.New("storage: db_path is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage: unsupported kind %q", c.Storage.Kind))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics: addr is required when enabled"))
	}
	return errors.Join(errs...)
}

// Composer builds the configured fitness composer.
func (c *Config) Composer() (fitness.Composer, error) {
	return fitness.New(c.Fitness.Composer, c.Fitness.Weights)
}

func (c *Config) BuildTerrain() (sim.Terrain, error) {
	return sim.NewTerrain(c.Terrain.Kind, c.Terrain.Seed, c.Terrain.Amplitude, c.Terrain.Scale)
}

// WriteYAML writes the effective configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
