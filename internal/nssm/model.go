package nssm

import (
	"fmt"
	"math/rand/v2"

	"assocdesign/domain/core"
	"assocdesign/domain/params"
	"assocdesign/domain/trials"
)

// Kind distinguishes how a model is evaluated.
type Kind int

const (
	KindNSSM Kind = iota
	KindGeneric
)

func (k Kind) String() string {
	if k == KindGeneric {
		return "generic"
	}
	return "nssm"
}

// GenericSimulateFunc draws a response trace for one sequence.
type GenericSimulateFunc func(tr trials.Trials, p *params.Params, rng *rand.Rand) ([]float64, *Latents, error)

// GenericLogLikFunc scores observed responses.
type GenericLogLikFunc func(tr trials.Trials, p *params.Params) (float64, error)

// GenericLatentsFunc recomputes latent trajectories; optional.
type GenericLatentsFunc func(tr trials.Trials, p *params.Params) (*Latents, error)

// Model is an immutable model descriptor built once from configuration.
type Model struct {
	Name string
	Kind Kind

	EvolutionName   string
	ObservationName string
	Evolution       EvolutionFunc
	Observation     ObservationFunc

	SimulateFunc GenericSimulateFunc
	LogLikFunc   GenericLogLikFunc
	LatentsFunc  GenericLatentsFunc
}

// Simulate produces a noisy response trace and its latent trajectories.
func (m *Model) Simulate(tr trials.Trials, p *params.Params, rng *rand.Rand) ([]float64, *Latents, error) {
	switch m.Kind {
	case KindNSSM:
		return Simulate(tr, m.Evolution, m.Observation, p, rng)
	default:
		if m.SimulateFunc == nil {
			return nil, nil, fmt.Errorf("model %q has no simulate function", m.Name)
		}
		return m.SimulateFunc(tr, p, rng)
	}
}

// LogLik scores tr.Responses under p. Per-trial log densities are clipped at
// floor.
func (m *Model) LogLik(tr trials.Trials, p *params.Params, floor float64) (float64, error) {
	if !tr.HasResponses() {
		return 0, fmt.Errorf("model %q: sequence has no responses to score", m.Name)
	}
	switch m.Kind {
	case KindNSSM:
		sd, err := NoiseSD(p)
		if err != nil {
			return 0, err
		}
		lat, err := Predict(tr, m.Evolution, m.Observation, p)
		if err != nil {
			return 0, err
		}
		return GaussianLogLik(tr.Responses, lat.Obs.CRPred, sd, floor), nil
	default:
		if m.LogLikFunc == nil {
			return 0, fmt.Errorf("model %q has no log-likelihood function", m.Name)
		}
		return m.LogLikFunc(tr, p)
	}
}

// Latents recomputes trajectories at p. Generic models without a latents
// function return core.ErrLatentsUnavailable.
func (m *Model) Latents(tr trials.Trials, p *params.Params) (*Latents, error) {
	switch m.Kind {
	case KindNSSM:
		return Predict(tr, m.Evolution, m.Observation, p)
	default:
		if m.LatentsFunc == nil {
			return nil, fmt.Errorf("%w: model %q", core.ErrLatentsUnavailable, m.Name)
		}
		return m.LatentsFunc(tr, p)
	}
}

func (m *Model) String() string {
	if m.Kind == KindNSSM {
		return fmt.Sprintf("%s(%s/%s)", m.Name, m.EvolutionName, m.ObservationName)
	}
	return fmt.Sprintf("%s(generic)", m.Name)
}
