// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all population-model configuration parameters.
type Config struct {
	Population PopulationConfig `yaml:"population"`
	Breeding   BreedingConfig   `yaml:"breeding"`
	Speciation SpeciationConfig `yaml:"speciation"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Archive    ArchiveConfig    `yaml:"archive"`
}

// PopulationConfig holds tier thresholds and the global entity cap.
type PopulationConfig struct {
	GlobalCap           int `yaml:"global_cap"`           // hard cap on live entities process-wide
	LineageThreshold    int `yaml:"lineage_threshold"`    // Individual -> Lineage at this alive count
	PopulationThreshold int `yaml:"population_threshold"` // Lineage -> Population at this alive count
	IndividualThreshold int `yaml:"individual_threshold"` // Lineage -> Individual below this alive count
	LineageStandouts    int `yaml:"lineage_standouts"`    // standouts kept through the first compression
	PopulationStandouts int `yaml:"population_standouts"` // standouts kept through the second compression
}

// BreedingConfig holds inheritance and pass-scheduling parameters.
type BreedingConfig struct {
	BlendWeight         float64 `yaml:"blend_weight"`           // selected-parent weight in the value blend
	MutationSigma       float64 `yaml:"mutation_sigma"`         // stddev of trait mutation noise
	RateSigma           float64 `yaml:"rate_sigma"`             // stddev of mutation-rate perturbation
	MaturityAge         int     `yaml:"maturity_age"`           // minimum age (ticks) to breed in a pass
	BreedChance         float64 `yaml:"breed_chance"`           // per-pair chance of breeding each pass
	MaxBirthsPerLineage int     `yaml:"max_births_per_lineage"` // births per lineage per pass
}

// SpeciationConfig holds drift and isolation thresholds.
type SpeciationConfig struct {
	Baseline          float64 `yaml:"baseline"`            // species-wide trait baseline
	MinIsolationTicks int     `yaml:"min_isolation_ticks"` // isolation gate
	DriftThreshold    float64 `yaml:"drift_threshold"`     // drift gate
	ChanceScale       float64 `yaml:"chance_scale"`        // p = (drift - threshold) * scale
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow int `yaml:"stats_window"` // passes between stats log lines
}

// ArchiveConfig holds end-of-run archive settings.
type ArchiveConfig struct {
	Path string `yaml:"path"` // sqlite file path; empty disables the archive
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded
// defaults if path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
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
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return cfg, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
