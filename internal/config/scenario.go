package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"assocdesign/internal/design"
	apperrors "assocdesign/internal/errors"

	"gopkg.in/yaml.v3"
)

// Scenario is the YAML description of one design study.
type Scenario struct {
	Name string `yaml:"name"`

	Seed                *uint64  `yaml:"seed"`
	Workers             *int     `yaml:"workers"`
	NStarts             *int     `yaml:"n_starts"`
	LogLikFloor         *float64 `yaml:"loglik_floor"`
	NSub                int      `yaml:"n_sub"`
	NExp                int      `yaml:"n_exp"`
	CommonRandomNumbers bool     `yaml:"common_random_numbers"`

	Models    []ModelConfig    `yaml:"models"`
	SimModels []SimModelConfig `yaml:"sim_models"`
	FitModels []FitModelConfig `yaml:"fit_models"`
	Design    DesignConfig     `yaml:"design"`
	Criterion CriterionConfig  `yaml:"criterion"`
}

// ModelConfig names an evolution/observation pair.
type ModelConfig struct {
	Name        string `yaml:"name"`
	Evolution   string `yaml:"evolution"`
	Observation string `yaml:"observation"`
}

// SimModelConfig is a simulation model and its sampling prior tree.
type SimModelConfig struct {
	Model string    `yaml:"model"`
	Prior yaml.Node `yaml:"prior"`
}

// FitModelConfig is a fitting model, its free parameters and fixed values.
type FitModelConfig struct {
	Model string             `yaml:"model"`
	Prior []PriorEntryConfig `yaml:"prior"`
	Fixed yaml.Node          `yaml:"fixed"`
}

// PriorEntryConfig is one free parameter. Missing bounds are infinite; a
// missing prior is flat on the bounds.
type PriorEntryConfig struct {
	Name  string   `yaml:"name"`
	Group string   `yaml:"group"`
	Prior string   `yaml:"prior"`
	Lower *float64 `yaml:"lower"`
	Upper *float64 `yaml:"upper"`
	Init  *float64 `yaml:"init"`
}

// DesignConfig selects a generator, its constant variables and the search
// space.
type DesignConfig struct {
	Generator string             `yaml:"generator"`
	Constants map[string]float64 `yaml:"constants"`
	Space     []design.Variable  `yaml:"space"`
}

// CriterionConfig names a criterion and carries its options unparsed.
type CriterionConfig struct {
	Name    string    `yaml:"name"`
	Options yaml.Node `yaml:"options"`
}

// LoadScenario reads and decodes a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to read scenario %s", path)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, apperrors.Wrapf(err, "scenario %s", path)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// ParseScenario decodes scenario YAML. Unknown fields are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, apperrors.WithCode(apperrors.CodeConfigInvalid, err)
	}
	return &s, nil
}
