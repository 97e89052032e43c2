// Package domain provides core business rules for the pipeline bounded context.
package domain

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Direction identifies which side of a deal a pipeline tracks.
type Direction string

const (
	// DirectionAcquisition tracks buying an asset into inventory.
	DirectionAcquisition Direction = "ACQUISITION"
	// DirectionDisposal tracks selling or handing over an owned asset.
	DirectionDisposal Direction = "DISPOSAL"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionAcquisition || d == DirectionDisposal
}

// StageDefinition describes one ordered step of a pipeline. Definitions are
// immutable registry data; pipeline instances hold only state, never
// structure.
type StageDefinition struct {
	ID                    string   `yaml:"id" json:"id"`
	Order                 int      `yaml:"order" json:"order"`
	Name                  string   `yaml:"name" json:"name"`
	RequiredDocumentTypes []string `yaml:"requiredDocuments" json:"requiredDocumentTypes"`
}

// directionConfig is the per-direction registry entry.
type directionConfig struct {
	AllowOutOfOrder bool              `yaml:"allowOutOfOrder"`
	Stages          []StageDefinition `yaml:"stages"`
}

// Registry is the static, validated description of the stages for each
// direction.
type Registry struct {
	directions map[Direction]directionConfig
}

//go:embed stages.yaml
var defaultStagesYAML []byte

// registryFile mirrors the YAML layout of the stage registry.
type registryFile struct {
	Acquisition directionConfig `yaml:"acquisition"`
	Disposal    directionConfig `yaml:"disposal"`
}

// DefaultRegistry loads the embedded stage registry.
func DefaultRegistry() (*Registry, error) {
	return NewRegistryFromYAML(defaultStagesYAML)
}

// NewRegistryFromYAML parses and validates a stage registry definition.
// A malformed registry is a deployment error and must fail startup.
func NewRegistryFromYAML(raw []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse stage registry: %w", err)
	}

	reg := &Registry{directions: map[Direction]directionConfig{
		DirectionAcquisition: normalizeConfig(file.Acquisition),
		DirectionDisposal:    normalizeConfig(file.Disposal),
	}}

	for direction, cfg := range reg.directions {
		if err := validateStages(direction, cfg.Stages); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// NewRegistry builds a registry directly from definitions. Intended for
// tests and for callers that manage registry content themselves.
func NewRegistry(acquisition, disposal []StageDefinition, acquisitionOutOfOrder, disposalOutOfOrder bool) (*Registry, error) {
	reg := &Registry{directions: map[Direction]directionConfig{
		DirectionAcquisition: normalizeConfig(directionConfig{AllowOutOfOrder: acquisitionOutOfOrder, Stages: acquisition}),
		DirectionDisposal:    normalizeConfig(directionConfig{AllowOutOfOrder: disposalOutOfOrder, Stages: disposal}),
	}}

	for direction, cfg := range reg.directions {
		if err := validateStages(direction, cfg.Stages); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

func normalizeConfig(cfg directionConfig) directionConfig {
	stages := make([]StageDefinition, len(cfg.Stages))
	copy(stages, cfg.Stages)
	sort.Slice(stages, func(i, j int) bool { return stages[i].Order < stages[j].Order })
	cfg.Stages = stages
	return cfg
}

// validateStages enforces the registry invariant: orders form a contiguous
// sequence starting at 1 with unique stage ids.
func validateStages(direction Direction, stages []StageDefinition) error {
	if len(stages) == 0 {
		return fmt.Errorf("stage registry: direction %s has no stages", direction)
	}

	seen := make(map[string]struct{}, len(stages))
	for i, stage := range stages {
		if stage.ID == "" {
			return fmt.Errorf("stage registry: direction %s has a stage without an id", direction)
		}
		if _, dup := seen[stage.ID]; dup {
			return fmt.Errorf("stage registry: direction %s has duplicate stage id %q", direction, stage.ID)
		}
		seen[stage.ID] = struct{}{}

		if stage.Order != i+1 {
			return fmt.Errorf("stage registry: direction %s orders are not contiguous at %q (got %d, want %d)",
				direction, stage.ID, stage.Order, i+1)
		}
	}

	return nil
}

// StagesFor returns the ordered stage definitions for a direction.
func (r *Registry) StagesFor(direction Direction) ([]StageDefinition, error) {
	cfg, ok := r.directions[direction]
	if !ok {
		return nil, fmt.Errorf("unknown pipeline direction %q", direction)
	}
	out := make([]StageDefinition, len(cfg.Stages))
	copy(out, cfg.Stages)
	return out, nil
}

// StageFor resolves a stage id within a direction.
func (r *Registry) StageFor(direction Direction, stageID string) (StageDefinition, error) {
	cfg, ok := r.directions[direction]
	if !ok {
		return StageDefinition{}, fmt.Errorf("unknown pipeline direction %q", direction)
	}
	for _, stage := range cfg.Stages {
		if stage.ID == stageID {
			return stage, nil
		}
	}
	return StageDefinition{}, &UnknownStageError{Direction: direction, StageID: stageID}
}

// AllowsOutOfOrder reports whether stages of a direction may be worked
// without every lower-order stage being completed first.
func (r *Registry) AllowsOutOfOrder(direction Direction) bool {
	return r.directions[direction].AllowOutOfOrder
}
