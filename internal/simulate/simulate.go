// Package simulate draws ground-truth parameters, stimulus sequences and
// noisy responses for every simulated subject and experiment.
package simulate

import (
	"context"
	"fmt"

	"assocdesign/domain/params"
	"assocdesign/domain/trials"
	"assocdesign/internal/design"
	"assocdesign/internal/nssm"
	"assocdesign/internal/rng"
)

// Truth holds sampled ground-truth parameters indexed [model][subject][experiment].
type Truth [][][]*params.Params

// Grid is the simulated data of one design evaluation.
type Grid struct {
	NSub int
	NExp int
	// Stimuli is indexed [subject][experiment] and shared by every model.
	Stimuli [][]trials.Trials
	// Data and Latents are indexed [model][subject][experiment].
	Data    [][][]trials.Trials
	Latents [][][]*nssm.Latents
}

// NModels returns the number of simulation models.
func (g *Grid) NModels() int {
	return len(g.Data)
}

// Slice returns the [subject][experiment] data of one simulation model.
func (g *Grid) Slice(model int) [][]trials.Trials {
	return g.Data[model]
}

// SampleTruth draws nSub x nExp parameter sets for every prior, each cell
// from its own stream.
func SampleTruth(priors []params.Node, nSub, nExp int, seed uint64) (Truth, error) {
	out := make(Truth, len(priors))
	for m, prior := range priors {
		out[m] = make([][]*params.Params, nSub)
		for s := 0; s < nSub; s++ {
			out[m][s] = make([]*params.Params, nExp)
			for e := 0; e < nExp; e++ {
				p, err := params.Sample(prior, rng.Stream(seed, rng.StageSample, m, s, e))
				if err != nil {
					return nil, fmt.Errorf("sampling model %d, subject %d, experiment %d: %w", m, s, e, err)
				}
				out[m][s][e] = p
			}
		}
	}
	return out, nil
}

// Data draws one stimulus sequence per (experiment, subject) from gen and,
// for every model, simulates responses on that sequence with the subject's
// ground truth. With no models only the stimuli are produced.
func Data(ctx context.Context, nSub, nExp int, gen design.Func, models []*nssm.Model, truth Truth, seed uint64) (*Grid, error) {
	if nSub <= 0 || nExp <= 0 {
		return nil, fmt.Errorf("need at least one subject and one experiment, got %d x %d", nSub, nExp)
	}
	if len(models) > 0 && len(truth) != len(models) {
		return nil, fmt.Errorf("%d simulation models but ground truth for %d", len(models), len(truth))
	}

	g := &Grid{NSub: nSub, NExp: nExp, Stimuli: make([][]trials.Trials, nSub)}
	for s := range g.Stimuli {
		g.Stimuli[s] = make([]trials.Trials, nExp)
	}
	for e := 0; e < nExp; e++ {
		for s := 0; s < nSub; s++ {
			tr, err := gen(rng.Stream(seed, rng.StageDesign, e, s))
			if err != nil {
				return nil, fmt.Errorf("design for experiment %d, subject %d: %w", e, s, err)
			}
			g.Stimuli[s][e] = tr
		}
	}

	g.Data = make([][][]trials.Trials, len(models))
	g.Latents = make([][][]*nssm.Latents, len(models))
	for m, model := range models {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g.Data[m] = make([][]trials.Trials, nSub)
		g.Latents[m] = make([][]*nssm.Latents, nSub)
		for s := 0; s < nSub; s++ {
			g.Data[m][s] = make([]trials.Trials, nExp)
			g.Latents[m][s] = make([]*nssm.Latents, nExp)
			for e := 0; e < nExp; e++ {
				p := truth[m][s][e]
				resp, lat, err := model.Simulate(g.Stimuli[s][e], p, rng.Stream(seed, rng.StageNoise, m, s, e))
				if err != nil {
					return nil, fmt.Errorf("simulating %s, subject %d, experiment %d: %w", model.Name, s, e, err)
				}
				tr, err := g.Stimuli[s][e].WithResponses(resp)
				if err != nil {
					return nil, err
				}
				g.Data[m][s][e] = tr
				g.Latents[m][s][e] = lat
			}
		}
	}
	return g, nil
}
