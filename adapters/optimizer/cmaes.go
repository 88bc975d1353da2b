// Package optimizer adapts gonum's CMA-ES to ports.Optimizer. The search runs
// in the unit cube; raw bounds are applied on every evaluation.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"

	"assocdesign/internal"
	"assocdesign/internal/rng"
	"assocdesign/ports"

	"gonum.org/v1/gonum/optimize"
)

// DefaultMaxEvaluations caps a search when the request sets no budget.
const DefaultMaxEvaluations = 100

// CMAES is a covariance matrix adaptation search.
type CMAES struct {
	InitStepSize float64
	// Population is the number of samples per generation; 0 picks
	// 4 + 3*dim/2.
	Population int
	Logger     *internal.Logger
}

// NewCMAES returns a CMA-ES optimizer with the defaults used for design
// searches.
func NewCMAES(logger *internal.Logger) *CMAES {
	return &CMAES{InitStepSize: 0.3, Logger: logger}
}

func (c *CMAES) Name() string { return "cmaes" }

// Minimize runs CMA-ES until the evaluation budget is spent or the sampling
// distribution collapses. The first objective error stops the search.
func (c *CMAES) Minimize(ctx context.Context, obj ports.Objective, req ports.OptimizationRequest) (*ports.OptimizationResult, error) {
	dim := req.Bounds.Dim()
	if dim == 0 {
		return nil, errors.New("cmaes: empty search space")
	}
	if len(req.Bounds.Upper) != dim {
		return nil, fmt.Errorf("cmaes: %d lower and %d upper bounds", dim, len(req.Bounds.Upper))
	}
	for i := 0; i < dim; i++ {
		if !(req.Bounds.Lower[i] < req.Bounds.Upper[i]) {
			return nil, fmt.Errorf("cmaes: bound %d has lower %g >= upper %g", i, req.Bounds.Lower[i], req.Bounds.Upper[i])
		}
	}
	maxEvals := req.MaxEvaluations
	if maxEvals <= 0 {
		maxEvals = DefaultMaxEvaluations
	}
	log := c.Logger.With("cmaes")

	initX := make([]float64, dim)
	for i := range initX {
		initX[i] = 0.5
	}
	if len(req.Init) == dim {
		initX = normalize(req.Bounds, req.Init)
	}

	res := &ports.OptimizationResult{Loss: math.Inf(1)}
	var runErr error
	problem := optimize.Problem{
		Func: func(u []float64) float64 {
			if runErr != nil {
				return math.Inf(1)
			}
			if err := ctx.Err(); err != nil {
				runErr = err
				return math.Inf(1)
			}
			x := denormalize(req.Bounds, u)
			loss, err := obj(ctx, x)
			if err != nil {
				runErr = err
				return math.Inf(1)
			}
			res.Evaluations++
			if loss < res.Loss {
				res.Loss = loss
				res.X = x
			}
			res.History = append(res.History, ports.OptimizationStep{
				Evaluation: res.Evaluations,
				X:          x,
				Loss:       loss,
				Best:       res.Loss,
			})
			log.Debug("eval %d/%d: loss=%.5f best=%.5f", res.Evaluations, maxEvals, loss, res.Loss)
			return loss
		},
	}

	popSize := c.Population
	if popSize == 0 {
		popSize = 4 + 3*dim/2
	}
	step := c.InitStepSize
	if step == 0 {
		step = 0.3
	}
	method := &optimize.CmaEsChol{
		InitStepSize: step,
		Population:   popSize,
		Src:          rng.Stream(req.Seed, rng.StageOptimizer),
	}
	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Concurrent:      0,
	}

	log.Info("starting CMA-ES with %d variables, population=%d, max_evals=%d", dim, popSize, maxEvals)
	result, err := optimize.Minimize(problem, initX, settings, method)
	if runErr != nil {
		return nil, runErr
	}
	if err != nil && res.Evaluations == 0 {
		return nil, fmt.Errorf("cmaes: %w", err)
	}
	if err != nil {
		log.Warn("optimization ended: %v", err)
	}
	if result != nil {
		res.Status = result.Status.String()
	}
	return res, nil
}

// normalize maps raw values into the unit cube.
func normalize(b ports.Bounds, x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - b.Lower[i]) / (b.Upper[i] - b.Lower[i])
	}
	return out
}

// denormalize maps unit-cube values back to raw bounds, clamping samples that
// fall outside.
func denormalize(b ports.Bounds, u []float64) []float64 {
	out := make([]float64, len(u))
	for i, v := range u {
		v = math.Max(0, math.Min(1, v))
		out[i] = b.Lower[i] + v*(b.Upper[i]-b.Lower[i])
	}
	return out
}
