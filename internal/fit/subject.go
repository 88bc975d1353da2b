package fit

import (
	"fmt"
	"math/rand/v2"

	"assocdesign/domain/core"
	"assocdesign/domain/params"
	"assocdesign/domain/trials"
	"assocdesign/internal/nssm"
)

// Spec is everything a model fit needs besides the data.
type Spec struct {
	Prior       params.FitPrior
	Fixed       *params.Params
	// LogLikFloor clips per-trial log densities; zero means
	// nssm.DefaultLogLikFloor.
	LogLikFloor float64
}

// Result is one (model, subject) fit. Params holds the fitted values merged
// with the fixed ones; Latents is nil when the model cannot produce them.
type Result struct {
	Model string `json:"model"`
	*Estimate
	Fitted  *params.Params `json:"fitted"`
	Params  *params.Params `json:"params"`
	Latents *nssm.Latents  `json:"-"`
}

// Subject fits m to the responses in tr.
func Subject(m *nssm.Model, tr trials.Trials, spec Spec, opts Options, rng *rand.Rand) (*Result, error) {
	if !tr.HasResponses() {
		return nil, fmt.Errorf("fit %s: no responses", m.Name)
	}
	full := func(x []float64) *params.Params {
		return params.Merge(params.Unpack(x, spec.Prior), spec.Fixed)
	}
	floor := spec.LogLikFloor
	if floor == 0 {
		floor = nssm.DefaultLogLikFloor
	}
	loglik := func(x []float64) (float64, error) {
		return m.LogLik(tr, full(x), floor)
	}

	est, err := MAP(loglik, spec.Prior, tr.NTrials(), opts, rng)
	if err != nil {
		return nil, fmt.Errorf("fit %s: %w", m.Name, err)
	}

	res := &Result{
		Model:    m.Name,
		Estimate: est,
		Fitted:   params.Unpack(est.X, spec.Prior),
		Params:   full(est.X),
	}
	lat, err := m.Latents(tr, res.Params)
	switch {
	case err == nil:
		res.Latents = lat
	case core.IsRecoverable(err):
		opts.Logger.Warn("fit %s: %v", m.Name, err)
	default:
		return nil, fmt.Errorf("fit %s: latents at optimum: %w", m.Name, err)
	}
	return res, nil
}
