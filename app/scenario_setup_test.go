package app

import (
	"errors"
	"math"
	"testing"

	"assocdesign/domain/core"
	"assocdesign/domain/params"
	"assocdesign/internal/config"
	apperrors "assocdesign/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const tinyScenarioYAML = `
name: tiny
n_sub: 2
n_exp: 3
workers: 2
models:
  - {name: rw, evolution: rw, observation: linear}
sim_models:
  - model: rw
    prior:
      evo: {alpha: "uniform(0,1)"}
      obs: {sd: 0.2}
fit_models:
  - model: rw
    prior:
      - {name: alpha, group: evo, lower: 0, upper: 1, init: 0.5}
      - {name: w0, group: evo, prior: "normal(0,1)"}
    fixed:
      obs: {sd: 0.2}
design:
  generator: periodic
  constants: {n_trials: 20}
  space:
    - {name: period, min: 2, max: 10, integer: true}
criterion:
  name: paramest
  options: {param: alpha}
`

func TestNewSetup(t *testing.T) {
	s, err := config.ParseScenario([]byte(tinyScenarioYAML))
	require.NoError(t, err)
	setup, err := NewSetup(s, &config.Config{Seed: 7, NStarts: 4, Workers: 1, LogLikFloor: -50}, nil)
	require.NoError(t, err)

	assert.Equal(t, "tiny", setup.Scenario)
	assert.Equal(t, uint64(7), setup.Seed)
	assert.Equal(t, 2, setup.Workers, "scenario overrides the environment")
	assert.Equal(t, 4, setup.NStarts)
	assert.Equal(t, "periodic", setup.Generator.Name())
	assert.Equal(t, 20.0, setup.Constants["n_trials"])
	assert.Equal(t, []string{"period"}, setup.Space.Names())
	assert.Equal(t, "paramest", setup.Criterion.Name())

	require.Len(t, setup.SimModels, 1)
	require.Len(t, setup.FitModels, 1)
	spec := setup.FitModels[0].Spec
	assert.Equal(t, -50.0, spec.LogLikFloor)
	require.Len(t, spec.Prior, 2)
	assert.Equal(t, 0.5, spec.Prior[0].Init)
	assert.True(t, math.IsInf(spec.Prior[1].Lower, -1))
	assert.False(t, spec.Prior[1].HasInit())
	assert.InDelta(t, -0.5*math.Log(2*math.Pi), spec.Prior[1].LogPrior(0), 1e-12)
	sd, ok := spec.Fixed.Get(params.GroupObservation, "sd")
	assert.True(t, ok)
	assert.Equal(t, 0.2, sd)
}

func TestNewSetup_Errors(t *testing.T) {
	var misspelt yaml.Node
	require.NoError(t, misspelt.Encode(map[string]string{"param": "alpha", "errortype": "abs"}))

	tests := []struct {
		name   string
		mutate func(*config.Scenario)
		is     error
		code   string
	}{
		{"unknown evolution", func(s *config.Scenario) { s.Models[0].Evolution = "td" }, core.ErrUnknownComponent, apperrors.CodeUnknownComponent},
		{"unknown sim model", func(s *config.Scenario) { s.SimModels[0].Model = "krw" }, core.ErrUnknownComponent, apperrors.CodeUnknownComponent},
		{"unknown generator", func(s *config.Scenario) { s.Design.Generator = "latin" }, core.ErrUnknownComponent, apperrors.CodeUnknownComponent},
		{"unknown criterion", func(s *config.Scenario) { s.Criterion.Name = "entropy" }, core.ErrUnknownComponent, apperrors.CodeUnknownComponent},
		{"empty fit space", func(s *config.Scenario) { s.FitModels = nil }, core.ErrModelSpaceMisconfigured, apperrors.CodeModelSpace},
		{"bad bounds", func(s *config.Scenario) {
			lo := 2.0
			s.FitModels[0].Prior[0].Lower = &lo
		}, core.ErrInvalidParameter, apperrors.CodeInvalidParameter},
		{"no subjects", func(s *config.Scenario) { s.NSub = 0 }, nil, apperrors.CodeConfigInvalid},
		{"positive loglik floor", func(s *config.Scenario) { s.LogLikFloor = floatPtr(5) }, nil, apperrors.CodeConfigInvalid},
		{"zero loglik floor", func(s *config.Scenario) { s.LogLikFloor = floatPtr(0) }, nil, apperrors.CodeConfigInvalid},
		{"infinite loglik floor", func(s *config.Scenario) { s.LogLikFloor = floatPtr(math.Inf(-1)) }, nil, apperrors.CodeConfigInvalid},
		{"misspelt criterion option", func(s *config.Scenario) { s.Criterion.Options = misspelt }, core.ErrInvalidParameter, apperrors.CodeInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := config.ParseScenario([]byte(tinyScenarioYAML))
			require.NoError(t, err)
			tt.mutate(s)
			_, err = NewSetup(s, nil, nil)
			require.Error(t, err)
			if tt.is != nil {
				assert.True(t, errors.Is(err, tt.is), "%v", err)
			}
			assert.Equal(t, tt.code, apperrors.GetCode(err))
		})
	}
}

func TestNewSetup_FixedMustBeConstant(t *testing.T) {
	s, err := config.ParseScenario([]byte(tinyScenarioYAML))
	require.NoError(t, err)
	require.NoError(t, s.FitModels[0].Fixed.Encode(map[string]interface{}{
		"obs": map[string]interface{}{"sd": "uniform(0,1)"},
	}))
	_, err = NewSetup(s, nil, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), "obs.sd")
}

func TestNewSetup_ScenarioFloorOverridesEnvironment(t *testing.T) {
	s, err := config.ParseScenario([]byte(tinyScenarioYAML))
	require.NoError(t, err)
	s.LogLikFloor = floatPtr(-20)
	setup, err := NewSetup(s, &config.Config{Seed: 1, NStarts: 2, LogLikFloor: -50}, nil)
	require.NoError(t, err)
	assert.Equal(t, -20.0, setup.FitModels[0].Spec.LogLikFloor)
}

func floatPtr(v float64) *float64 { return &v }
