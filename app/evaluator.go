package app

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"assocdesign/domain/core"
	"assocdesign/domain/params"
	"assocdesign/domain/run"
	"assocdesign/internal"
	"assocdesign/internal/batch"
	"assocdesign/internal/criteria"
	"assocdesign/internal/design"
	"assocdesign/internal/fit"
	"assocdesign/internal/nssm"
	"assocdesign/internal/rng"
	"assocdesign/internal/simulate"
	"assocdesign/ports"
)

// SimModel is a simulation model with its sampling prior.
type SimModel struct {
	Model *nssm.Model
	Prior params.Node
}

// Setup is the immutable configuration of a design evaluator.
type Setup struct {
	Scenario  string
	Generator design.Generator
	// Constants are design variables that are never searched.
	Constants design.Vars
	Space     design.Space

	NSub int
	NExp int

	SimModels []SimModel
	FitModels []batch.Job
	Criterion criteria.Criterion

	Workers int
	NStarts int
	Seed    uint64
	// CommonRandomNumbers reuses Seed for every evaluation, so that two
	// design points are compared on the same random draws.
	CommonRandomNumbers bool
	KeepOutputs         bool
	Verbose             bool
	Logger              *internal.Logger
}

// Constraints is reserved for optimizers with coupled constraints; always nil.
type Constraints []float64

// Evaluator is the objective function consumed by a design optimizer.
type Evaluator struct {
	setup Setup
	calls atomic.Uint64
	log   *internal.Logger
}

// NewEvaluator validates the setup. Criterion checks run here, before any
// simulation work.
func NewEvaluator(s Setup) (*Evaluator, error) {
	if s.Generator == nil {
		return nil, fmt.Errorf("%w: no design generator", core.ErrInvalidDesign)
	}
	if s.NSub <= 0 || s.NExp <= 0 {
		return nil, fmt.Errorf("need at least one subject and one experiment, got %d x %d", s.NSub, s.NExp)
	}
	if len(s.SimModels) == 0 || len(s.FitModels) == 0 {
		return nil, core.NewModelSpaceError(fmt.Sprintf("%d simulation and %d fit models", len(s.SimModels), len(s.FitModels)))
	}
	if s.Criterion == nil {
		return nil, fmt.Errorf("no criterion configured")
	}
	if s.NStarts <= 0 {
		s.NStarts = fit.DefaultStarts
	}
	priors := make([]params.FitPrior, len(s.FitModels))
	for i, j := range s.FitModels {
		if err := j.Spec.Prior.Validate(); err != nil {
			return nil, fmt.Errorf("fit model %s: %w", j.Model.Name, err)
		}
		priors[i] = j.Spec.Prior
	}
	if err := s.Criterion.Validate(criteria.Setup{
		NSimModels: len(s.SimModels),
		NFitModels: len(s.FitModels),
		FitPriors:  priors,
	}); err != nil {
		return nil, err
	}
	if err := s.Space.Validate(); err != nil {
		return nil, err
	}
	center, err := s.Space.Point(s.Space.Center())
	if err != nil {
		return nil, err
	}
	if _, err := design.Bind(s.Generator, s.Constants.Merge(center)); err != nil {
		return nil, err
	}
	e := &Evaluator{setup: s, log: s.Logger.With("evaluator")}
	for _, m := range s.SimModels {
		e.log.Debug("sim model %s: prior %s", m.Model.Name, params.Describe(m.Prior))
	}
	return e, nil
}

// Setup returns the evaluator configuration.
func (e *Evaluator) Setup() Setup {
	return e.setup
}

// Evaluate scores one design point. Unless CommonRandomNumbers is set, every
// call derives a fresh seed from the run seed and a call counter.
func (e *Evaluator) Evaluate(ctx context.Context, point design.Vars) (float64, Constraints, *Outcome, error) {
	seed := e.setup.Seed
	if !e.setup.CommonRandomNumbers {
		seed = rng.Derive(e.setup.Seed, e.calls.Add(1)-1)
	}
	return e.EvaluateSeeded(ctx, point, seed)
}

// EvaluateSeeded scores one design point with an explicit seed. The same
// point and seed always give the same loss, whatever the worker count.
func (e *Evaluator) EvaluateSeeded(ctx context.Context, point design.Vars, seed uint64) (float64, Constraints, *Outcome, error) {
	return e.evaluate(ctx, point, seed, e.setup.KeepOutputs)
}

// Report evaluates a point with the run seed and always keeps the outputs.
func (e *Evaluator) Report(ctx context.Context, point design.Vars) (*Outcome, error) {
	_, _, out, err := e.evaluate(ctx, point, e.setup.Seed, true)
	return out, err
}

func (e *Evaluator) evaluate(ctx context.Context, point design.Vars, seed uint64, keep bool) (float64, Constraints, *Outcome, error) {
	s := e.setup
	start := time.Now()
	if err := e.checkPoint(point); err != nil {
		return 0, nil, nil, err
	}
	vars := s.Constants.Merge(point)

	priors := make([]params.Node, len(s.SimModels))
	simModels := make([]*nssm.Model, len(s.SimModels))
	for i, m := range s.SimModels {
		priors[i] = m.Prior
		simModels[i] = m.Model
	}
	truth, err := simulate.SampleTruth(priors, s.NSub, s.NExp, seed)
	if err != nil {
		return 0, nil, nil, err
	}

	gen, err := design.Bind(s.Generator, vars)
	if err != nil {
		return 0, nil, nil, err
	}
	grid, err := simulate.Data(ctx, s.NSub, s.NExp, gen, simModels, truth, seed)
	if err != nil {
		return 0, nil, nil, err
	}

	fits := make([]batch.Grid, len(simModels))
	for m := range simModels {
		g, err := batch.FitAll(ctx, grid.Slice(m), s.FitModels, batch.Options{
			Workers:  s.Workers,
			Seed:     seed,
			SimIndex: m,
			Fit:      fit.Options{NStarts: s.NStarts, Verbose: s.Verbose},
			Logger:   s.Logger,
		})
		if err != nil {
			return 0, nil, nil, fmt.Errorf("fitting data of %s: %w", simModels[m].Name, err)
		}
		fits[m] = g
	}

	fitPriors := make([]params.FitPrior, len(s.FitModels))
	for i, j := range s.FitModels {
		fitPriors[i] = j.Spec.Prior
	}
	loss, diag, err := s.Criterion.Score(criteria.Input{
		NSub:      s.NSub,
		NExp:      s.NExp,
		Truth:     truth,
		Fits:      fits,
		FitPriors: fitPriors,
	})
	if err != nil {
		return 0, nil, nil, fmt.Errorf("scoring: %w", err)
	}
	elapsed := time.Since(start)
	e.log.Info("loss=%.5f vars=%s in %v", loss, formatVars(point), elapsed.Round(time.Millisecond))

	if !keep {
		return loss, nil, nil, nil
	}
	out := &Outcome{
		Manifest: run.NewEvaluationManifest(s.Scenario, vars, e.simNames(), e.fitNames(), s.Criterion.Name(),
			run.Shape{NSub: s.NSub, NExp: s.NExp, NStarts: s.NStarts}, seed),
		Loss:        loss,
		Diagnostics: diag,
		Truth:       truth,
		Simulated:   grid,
		Fits:        fits,
		SimModels:   e.simNames(),
		FitModels:   e.fitNames(),
		FitPriors:   fitPriors,
		Runtime:     elapsed,
	}
	return loss, nil, out, nil
}

// Objective adapts the evaluator to a flat search vector laid out by Space.
func (e *Evaluator) Objective() ports.Objective {
	return func(ctx context.Context, x []float64) (float64, error) {
		vars, err := e.setup.Space.Point(x)
		if err != nil {
			return 0, err
		}
		loss, _, _, err := e.Evaluate(ctx, vars)
		return loss, err
	}
}

// checkPoint rejects names outside the search space when one is configured.
func (e *Evaluator) checkPoint(point design.Vars) error {
	if e.setup.Space.Dim() == 0 {
		return nil
	}
	known := make(map[string]bool, e.setup.Space.Dim())
	for _, n := range e.setup.Space.Names() {
		known[n] = true
	}
	for k := range point {
		if !known[k] {
			return fmt.Errorf("%w: %q is not a search variable", core.ErrInvalidDesign, k)
		}
	}
	return nil
}

func (e *Evaluator) simNames() []string {
	out := make([]string, len(e.setup.SimModels))
	for i, m := range e.setup.SimModels {
		out[i] = m.Model.Name
	}
	return out
}

func (e *Evaluator) fitNames() []string {
	out := make([]string, len(e.setup.FitModels))
	for i, j := range e.setup.FitModels {
		out[i] = j.Model.Name
	}
	return out
}

func formatVars(v design.Vars) string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := "{"
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%.4g", k, v[k])
	}
	return s + "}"
}
