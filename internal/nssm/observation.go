package nssm

import (
	"fmt"

	"assocdesign/domain/core"
	"assocdesign/domain/params"
	"assocdesign/domain/trials"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Linear maps the summed weights of the present cues onto a response.
//
// obs: beta0 (default 0), beta1 (default 1)
func Linear(evo *EvoResult, tr trials.Trials, p params.Set) (*ObsResult, error) {
	w, ok := evo.State(StateWeights)
	if !ok {
		return nil, fmt.Errorf("%w: linear observation needs state %q", core.ErrInvalidParameter, StateWeights)
	}
	beta0, beta1 := p.Or("beta0", 0), p.Or("beta1", 1)
	v := presentSum(w, tr)
	for t := range v {
		v[t] = beta0 + beta1*v[t]
	}
	return &ObsResult{CRPred: v}, nil
}

// Mix blends the summed weights with the summed associabilities of the present
// cues. mixCoef = 1 reduces to Linear.
//
// obs: mixCoef, beta0 (default 0), beta1 (default 1)
func Mix(evo *EvoResult, tr trials.Trials, p params.Set) (*ObsResult, error) {
	w, ok := evo.State(StateWeights)
	if !ok {
		return nil, fmt.Errorf("%w: mix observation needs state %q", core.ErrInvalidParameter, StateWeights)
	}
	a, ok := evo.State(StateAssociation)
	if !ok {
		return nil, fmt.Errorf("%w: mix observation needs state %q", core.ErrInvalidParameter, StateAssociation)
	}
	mix, err := p.Require("mixCoef")
	if err != nil {
		return nil, err
	}
	beta0, beta1 := p.Or("beta0", 0), p.Or("beta1", 1)
	v := presentSum(w, tr)
	s := presentSum(a, tr)
	for t := range v {
		v[t] = beta0 + beta1*(mix*v[t]+(1-mix)*s[t])
	}
	return &ObsResult{CRPred: v}, nil
}

// presentSum returns, per trial, the state summed over the cues present on
// that trial, using the state before the trial's update.
func presentSum(state *mat.Dense, tr trials.Trials) []float64 {
	T, C := tr.NTrials(), tr.NCues()
	out := make([]float64, T)
	cue := make([]float64, C)
	row := make([]float64, C)
	for t := 0; t < T; t++ {
		mat.Row(cue, t, tr.Cues)
		mat.Row(row, t, state)
		out[t] = floats.Dot(cue, row)
	}
	return out
}
