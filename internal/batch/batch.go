// Package batch fits every candidate model to every simulated subject and
// experiment, in parallel across independent units.
package batch

import (
	"context"
	"fmt"

	"assocdesign/domain/trials"
	"assocdesign/internal"
	"assocdesign/internal/fit"
	"assocdesign/internal/nssm"
	"assocdesign/internal/rng"
)

// Job is one candidate model with its fitting prior and fixed parameters.
type Job struct {
	Model *nssm.Model
	Spec  fit.Spec
}

// Options controls a batch fit.
type Options struct {
	Workers int
	// Seed is the run seed; each unit derives its own stream from it.
	Seed uint64
	// SimIndex identifies which simulation model produced the data, so that
	// fits of different data slices draw from different streams.
	SimIndex int
	Fit      fit.Options
	Logger   *internal.Logger
}

// Grid holds fit results indexed [experiment][model][subject].
type Grid [][][]*fit.Result

// At returns one result.
func (g Grid) At(exp, model, sub int) *fit.Result {
	return g[exp][model][sub]
}

// FitAll fits every job to data, which is indexed [subject][experiment].
// Results do not depend on the worker count: every unit draws its restart
// points from rng.Stream(seed, StageFit, sim, model, exp, sub).
func FitAll(ctx context.Context, data [][]trials.Trials, jobs []Job, opts Options) (Grid, error) {
	nSub := len(data)
	if nSub == 0 || len(jobs) == 0 {
		return Grid{}, nil
	}
	nExp := len(data[0])
	for s := range data {
		if len(data[s]) != nExp {
			return nil, fmt.Errorf("subject %d has %d experiments, want %d", s, len(data[s]), nExp)
		}
	}
	nMod := len(jobs)

	grid := make(Grid, nExp)
	for e := range grid {
		grid[e] = make([][]*fit.Result, nMod)
		for m := range grid[e] {
			grid[e][m] = make([]*fit.Result, nSub)
		}
	}

	log := opts.Logger.With("batch")
	fitOpts := opts.Fit
	if fitOpts.Logger == nil {
		fitOpts.Logger = opts.Logger.With("fit")
	}

	// Units are ordered model-major, then experiment, then subject.
	units := nMod * nExp * nSub
	exec := NewExecutor(opts.Workers, opts.Logger)
	log.Debug("fitting %d models x %d experiments x %d subjects on %d workers", nMod, nExp, nSub, exec.Workers())

	err := exec.Run(ctx, units, func(_ context.Context, i int) error {
		m := i / (nExp * nSub)
		e := (i / nSub) % nExp
		s := i % nSub
		job := jobs[m]
		r := rng.Stream(opts.Seed, rng.StageFit, opts.SimIndex, m, e, s)
		res, err := fit.Subject(job.Model, data[s][e], job.Spec, fitOpts, r)
		if err != nil {
			return fmt.Errorf("model %s, experiment %d, subject %d: %w", job.Model.Name, e, s, err)
		}
		grid[e][m][s] = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grid, nil
}
