// Package nssm implements nonlinear state-space learning models: a batch
// evolution function that produces latent state trajectories over a whole
// trial sequence, and an observation function mapping those states to a
// predicted response per trial.
package nssm

import (
	"fmt"
	"math/rand/v2"

	"assocdesign/domain/core"
	"assocdesign/domain/params"
	"assocdesign/domain/trials"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// EvoResult holds named state trajectories. Each matrix is
// (trials+1) x cues: row t is the state before trial t, the last row the
// state after the final trial.
type EvoResult struct {
	States map[string]*mat.Dense
}

// State returns a named trajectory.
func (e *EvoResult) State(name string) (*mat.Dense, bool) {
	if e == nil {
		return nil, false
	}
	m, ok := e.States[name]
	return m, ok
}

// ObsResult is the predicted response per trial.
type ObsResult struct {
	CRPred []float64
}

// Latents bundles both halves of a model's output.
type Latents struct {
	Evo *EvoResult
	Obs *ObsResult
}

// EvolutionFunc runs once over the whole trial batch. It must be deterministic.
type EvolutionFunc func(tr trials.Trials, p params.Set) (*EvoResult, error)

// ObservationFunc maps latent trajectories onto predicted responses.
type ObservationFunc func(evo *EvoResult, tr trials.Trials, p params.Set) (*ObsResult, error)

// Predict runs evo over the batch and then obs on its result.
func Predict(tr trials.Trials, evo EvolutionFunc, obs ObservationFunc, p *params.Params) (*Latents, error) {
	er, err := evo(tr, p.Evo())
	if err != nil {
		return nil, fmt.Errorf("evolution: %w", err)
	}
	or, err := obs(er, tr, p.Obs())
	if err != nil {
		return nil, fmt.Errorf("observation: %w", err)
	}
	if len(or.CRPred) != tr.NTrials() {
		return nil, fmt.Errorf("observation produced %d predictions for %d trials", len(or.CRPred), tr.NTrials())
	}
	return &Latents{Evo: er, Obs: or}, nil
}

// Simulate adds i.i.d. Gaussian noise with standard deviation obs.sd to the
// prediction. The returned latents are exactly those of Predict.
func Simulate(tr trials.Trials, evo EvolutionFunc, obs ObservationFunc, p *params.Params, rng *rand.Rand) ([]float64, *Latents, error) {
	sd, err := NoiseSD(p)
	if err != nil {
		return nil, nil, err
	}
	lat, err := Predict(tr, evo, obs, p)
	if err != nil {
		return nil, nil, err
	}
	noise := distuv.Normal{Mu: 0, Sigma: sd, Src: rng}
	responses := make([]float64, len(lat.Obs.CRPred))
	for i, v := range lat.Obs.CRPred {
		responses[i] = v + noise.Rand()
	}
	return responses, lat, nil
}

// NoiseSD returns obs.sd, which must be strictly positive.
func NoiseSD(p *params.Params) (float64, error) {
	sd, err := p.Obs().Require("sd")
	if err != nil {
		return 0, err
	}
	if !(sd > 0) {
		return 0, core.NewInvalidParameterError("obs.sd", sd, "noise standard deviation must be positive")
	}
	return sd, nil
}
