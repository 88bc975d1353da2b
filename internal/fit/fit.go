// Package fit finds maximum-a-posteriori parameters for one model and one
// subject by multi-start bounded optimisation.
package fit

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"assocdesign/domain/core"
	"assocdesign/domain/params"
	"assocdesign/internal"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultStarts is the number of optimizer restarts per fit.
const DefaultStarts = 5

// LogLikFunc evaluates the log-likelihood of a packed parameter vector.
type LogLikFunc func(x []float64) (float64, error)

// Options controls one MAP fit.
type Options struct {
	NStarts       int
	MaxIterations int
	Verbose       bool
	Logger        *internal.Logger
}

func (o Options) withDefaults() Options {
	if o.NStarts <= 0 {
		o.NStarts = DefaultStarts
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = 500
	}
	return o
}

// Restart records one optimizer run.
type Restart struct {
	Index   int       `json:"index"`
	Init    []float64 `json:"init"`
	X       []float64 `json:"x,omitempty"`
	LogPost float64   `json:"logpost"`
	Method  string    `json:"method"`
	Evals   int       `json:"evals"`
	Err     error     `json:"-"`
}

// OK reports whether the restart produced a usable optimum.
func (r Restart) OK() bool {
	return r.Err == nil && r.X != nil && !math.IsNaN(r.LogPost) && !math.IsInf(r.LogPost, 0)
}

// Estimate is the MAP point of one fit with its derived quantities.
type Estimate struct {
	X        []float64
	LogLik   float64
	LogPost  float64
	BIC      float64
	AIC      float64
	K        int
	NObs     int
	Hessian  *mat.SymDense
	Restarts []Restart
}

// MAP maximises loglik(x) + sum_i logprior_i(x_i) inside the fitting-prior
// bounds. nObs is the number of observations used by BIC.
func MAP(loglik LogLikFunc, fp params.FitPrior, nObs int, opts Options, rng *rand.Rand) (*Estimate, error) {
	opts = opts.withDefaults()
	log := opts.Logger
	lower, upper := fp.Bounds()
	tf := newTransform(lower, upper)

	logpost := func(x []float64) float64 {
		lp := fp.LogPrior(x)
		if math.IsInf(lp, -1) || math.IsNaN(lp) {
			return math.Inf(-1)
		}
		ll, err := loglik(x)
		if err != nil || math.IsNaN(ll) {
			return math.Inf(-1)
		}
		return ll + lp
	}

	restarts := make([]Restart, opts.NStarts)
	for s := range restarts {
		init := initialPoint(fp, rng)
		restarts[s] = runRestart(s, init, tf, logpost, opts)
		if opts.Verbose {
			if restarts[s].OK() {
				log.Info("restart %d/%d: logpost=%.4f method=%s evals=%d", s+1, opts.NStarts, restarts[s].LogPost, restarts[s].Method, restarts[s].Evals)
			} else {
				log.Warn("restart %d/%d failed: %v", s+1, opts.NStarts, restarts[s].Err)
			}
		}
	}

	best, ok := Best(restarts)
	if !ok {
		return nil, fmt.Errorf("%w (%d restarts): %v", core.ErrFitFailed, len(restarts), firstErr(restarts))
	}

	x := append([]float64(nil), best.X...)
	ll, err := loglik(x)
	if err != nil {
		return nil, fmt.Errorf("re-evaluating optimum: %w", err)
	}
	k := len(fp)
	n := float64(nObs)
	est := &Estimate{
		X:        x,
		LogLik:   ll,
		LogPost:  best.LogPost,
		BIC:      float64(k)*math.Log(n) - 2*ll,
		AIC:      2*float64(k) - 2*ll,
		K:        k,
		NObs:     nObs,
		Restarts: restarts,
	}
	est.Hessian = hessian(x, tf, logpost)
	return est, nil
}

// Best folds restarts into the one with the highest log-posterior. Only a
// strictly greater value replaces the current best, so ties keep the earliest
// restart. Failed restarts never win.
func Best(restarts []Restart) (Restart, bool) {
	var best Restart
	found := false
	for _, r := range restarts {
		if !r.OK() {
			continue
		}
		if !found || r.LogPost > best.LogPost {
			best, found = r, true
		}
	}
	return best, found
}

func firstErr(restarts []Restart) error {
	for _, r := range restarts {
		if r.Err != nil {
			return r.Err
		}
	}
	return errors.New("no finite optimum")
}

// initialPoint uses Init where configured, otherwise a uniform draw inside
// the bounds. Half-open or unbounded coordinates fall back to an
// exponential offset from the finite bound or a standard normal draw.
func initialPoint(fp params.FitPrior, rng *rand.Rand) []float64 {
	x := make([]float64, len(fp))
	for i, e := range fp {
		// Draw for every entry so the stream position does not depend on
		// which entries carry an Init.
		var draw float64
		loFinite, hiFinite := !math.IsInf(e.Lower, 0), !math.IsInf(e.Upper, 0)
		switch {
		case loFinite && hiFinite:
			draw = distuv.Uniform{Min: e.Lower, Max: e.Upper, Src: rng}.Rand()
		case loFinite:
			draw = e.Lower + distuv.Exponential{Rate: 1, Src: rng}.Rand()
		case hiFinite:
			draw = e.Upper - distuv.Exponential{Rate: 1, Src: rng}.Rand()
		default:
			draw = distuv.Normal{Mu: 0, Sigma: 1, Src: rng}.Rand()
		}
		if e.HasInit() {
			x[i] = e.Init
		} else {
			x[i] = draw
		}
	}
	return x
}

func runRestart(index int, init []float64, tf transform, logpost func([]float64) float64, opts Options) Restart {
	r := Restart{Index: index, Init: init, LogPost: math.Inf(-1)}
	if len(init) == 0 {
		r.X, r.LogPost, r.Method = []float64{}, logpost(init), "none"
		return r
	}

	buf := make([]float64, len(init))
	negLogPost := func(z []float64) float64 {
		v := -logpost(tf.toBox(buf, z))
		if math.IsNaN(v) {
			return math.Inf(1)
		}
		return v
	}
	problem := optimize.Problem{
		Func: negLogPost,
		Grad: func(grad, z []float64) {
			fd.Gradient(grad, negLogPost, z, &fd.Settings{Formula: fd.Central})
		},
	}
	settings := &optimize.Settings{
		GradientThreshold: 1e-6,
		MajorIterations:   opts.MaxIterations,
		Converger:         &optimize.FunctionConverge{Absolute: 1e-9, Relative: 1e-9, Iterations: 25},
	}

	z0 := tf.fromBox(init)
	res, err := optimize.Minimize(problem, z0, settings, &optimize.LBFGS{})
	r.Method = "lbfgs"
	if err != nil || res == nil || !finite(res.F) {
		start := z0
		if res != nil && finite(res.F) {
			start = res.X
		}
		nm, nmErr := optimize.Minimize(optimize.Problem{Func: negLogPost}, start, settings, &optimize.NelderMead{})
		switch {
		case nmErr == nil && nm != nil && finite(nm.F):
			res, err = nm, nil
			r.Method = "neldermead"
		case res != nil && finite(res.F):
			// Gradient search stopped early but left a usable point.
			err = nil
		default:
			if nmErr != nil {
				err = nmErr
			}
			if err == nil {
				err = errors.New("non-finite objective")
			}
		}
	}
	if err != nil {
		r.Err = err
		return r
	}
	r.Evals = res.Stats.FuncEvaluations
	r.X = tf.clamp(tf.toBox(nil, res.X))
	r.LogPost = -res.F
	return r
}

// hessian approximates the Hessian of the negative log-posterior at x in
// the original coordinates. Finite-difference points are clamped into the box.
func hessian(x []float64, tf transform, logpost func([]float64) float64) *mat.SymDense {
	if len(x) == 0 {
		return nil
	}
	at := make([]float64, len(x))
	f := func(p []float64) float64 {
		copy(at, p)
		return -logpost(tf.clamp(at))
	}
	var h mat.SymDense
	fd.Hessian(&h, f, x, &fd.Settings{Formula: fd.Central})
	return &h
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
