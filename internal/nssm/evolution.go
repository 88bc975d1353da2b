package nssm

import (
	"math"

	"assocdesign/domain/core"
	"assocdesign/domain/params"
	"assocdesign/domain/trials"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// State names shared by evolution and observation functions.
const (
	StateWeights     = "w"
	StateAssociation = "alpha"
	StateVariance    = "var"
)

// RescorlaWagner updates the weights of present cues by alpha times the
// prediction error of the summed weights.
//
// evo: alpha, w0 (default 0)
func RescorlaWagner(tr trials.Trials, p params.Set) (*EvoResult, error) {
	alpha, err := p.Require("alpha")
	if err != nil {
		return nil, err
	}
	w0 := p.Or("w0", 0)
	T, C := tr.NTrials(), tr.NCues()

	w := mat.NewDense(T+1, C, nil)
	cur := constant(C, w0)
	w.SetRow(0, cur)
	cue := make([]float64, C)
	for t := 0; t < T; t++ {
		mat.Row(cue, t, tr.Cues)
		delta := tr.Outcomes[t] - floats.Dot(cue, cur)
		floats.AddScaled(cur, alpha*delta, cue)
		w.SetRow(t+1, cur)
	}
	return &EvoResult{States: map[string]*mat.Dense{StateWeights: w}}, nil
}

// Hybrid is the Rescorla-Wagner/Pearce-Hall hybrid: each cue carries its own
// associability, which tracks the absolute prediction error and scales the
// weight update.
//
// evo: alphaInit, eta, kappa (default 1), w0 (default 0)
func Hybrid(tr trials.Trials, p params.Set) (*EvoResult, error) {
	alphaInit, err := p.Require("alphaInit")
	if err != nil {
		return nil, err
	}
	eta, err := p.Require("eta")
	if err != nil {
		return nil, err
	}
	kappa := p.Or("kappa", 1)
	w0 := p.Or("w0", 0)
	T, C := tr.NTrials(), tr.NCues()

	w := mat.NewDense(T+1, C, nil)
	a := mat.NewDense(T+1, C, nil)
	curW := constant(C, w0)
	curA := constant(C, alphaInit)
	w.SetRow(0, curW)
	a.SetRow(0, curA)
	cue := make([]float64, C)
	for t := 0; t < T; t++ {
		mat.Row(cue, t, tr.Cues)
		delta := tr.Outcomes[t] - floats.Dot(cue, curW)
		for j := 0; j < C; j++ {
			if cue[j] == 0 {
				continue
			}
			curW[j] += kappa * curA[j] * delta * cue[j]
			curA[j] = eta*math.Abs(delta) + (1-eta)*curA[j]
		}
		w.SetRow(t+1, curW)
		a.SetRow(t+1, curA)
	}
	return &EvoResult{States: map[string]*mat.Dense{StateWeights: w, StateAssociation: a}}, nil
}

// KalmanRW treats the weights as a Gaussian belief updated by a Kalman
// filter. Diffusion tauSq is added to the covariance before every trial.
//
// evo: tauSq, sigmaRSq, sigmaInit (default 1), w0 (default 0)
func KalmanRW(tr trials.Trials, p params.Set) (*EvoResult, error) {
	tauSq, err := p.Require("tauSq")
	if err != nil {
		return nil, err
	}
	sigmaRSq, err := p.Require("sigmaRSq")
	if err != nil {
		return nil, err
	}
	if !(sigmaRSq > 0) {
		return nil, core.NewInvalidParameterError("evo.sigmaRSq", sigmaRSq, "outcome noise variance must be positive")
	}
	sigmaInit := p.Or("sigmaInit", 1)
	w0 := p.Or("w0", 0)
	T, C := tr.NTrials(), tr.NCues()

	w := mat.NewDense(T+1, C, nil)
	v := mat.NewDense(T+1, C, nil)
	mean := mat.NewVecDense(C, constant(C, w0))
	cov := mat.NewSymDense(C, nil)
	for j := 0; j < C; j++ {
		cov.SetSym(j, j, sigmaInit)
	}
	w.SetRow(0, mean.RawVector().Data)
	v.SetRow(0, diag(cov))

	x := mat.NewVecDense(C, nil)
	sx := mat.NewVecDense(C, nil)
	gain := mat.NewVecDense(C, nil)
	for t := 0; t < T; t++ {
		for j := 0; j < C; j++ {
			cov.SetSym(j, j, cov.At(j, j)+tauSq)
			x.SetVec(j, tr.Cues.At(t, j))
		}
		delta := tr.Outcomes[t] - mat.Dot(x, mean)
		sx.MulVec(cov, x)
		lambda := mat.Dot(x, sx) + sigmaRSq
		gain.ScaleVec(1/lambda, sx)
		mean.AddScaledVec(mean, delta, gain)
		// cov <- cov - gain * (cov x)'
		cov.SymRankOne(cov, -lambda, gain)
		w.SetRow(t+1, mean.RawVector().Data)
		v.SetRow(t+1, diag(cov))
	}
	return &EvoResult{States: map[string]*mat.Dense{StateWeights: w, StateVariance: v}}, nil
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func diag(s *mat.SymDense) []float64 {
	n := s.SymmetricDim()
	out := make([]float64, n)
	for i := range out {
		out[i] = s.At(i, i)
	}
	return out
}
