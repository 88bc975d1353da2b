package app

import (
	"sort"
	"time"

	"assocdesign/domain/params"
	"assocdesign/domain/run"
	"assocdesign/internal/batch"
	"assocdesign/internal/criteria"
	"assocdesign/internal/simulate"
	"assocdesign/ports"
)

// Outcome is the full record of one design evaluation. It is only
// materialised when the evaluator is asked to keep outputs.
type Outcome struct {
	Manifest    *run.EvaluationManifest
	Loss        float64
	Diagnostics criteria.Diagnostics
	Truth       simulate.Truth
	Simulated   *simulate.Grid
	Fits        []batch.Grid
	SimModels   []string
	FitModels   []string
	FitPriors   []params.FitPrior
	Runtime     time.Duration
}

// Bundle flattens the outcome for exporters.
func (o *Outcome) Bundle() *ports.ExportBundle {
	b := &ports.ExportBundle{
		Manifest:  o.Manifest,
		SimModels: o.SimModels,
		FitModels: o.FitModels,
	}

	summary := map[string]float64{"loss": o.Loss, "runtime_seconds": o.Runtime.Seconds()}
	if o.Diagnostics != nil {
		for k, v := range o.Diagnostics.Summary() {
			summary[k] = v
		}
	}
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.Summary = append(b.Summary, ports.SummaryRecord{Key: k, Value: summary[k]})
	}

	if ms, ok := o.Diagnostics.(*criteria.ModSelDiagnostics); ok {
		b.Confusion = ms.Confusion
	}

	for m := range o.Truth {
		for s := range o.Truth[m] {
			for e, p := range o.Truth[m][s] {
				b.Truth = append(b.Truth, ports.TruthRecord{
					SimModel: o.SimModels[m], Experiment: e, Subject: s, Params: p.String(),
				})
			}
		}
	}

	for m, grid := range o.Fits {
		for e := range grid {
			for f := range grid[e] {
				for s, r := range grid[e][f] {
					if r == nil {
						continue
					}
					b.Fits = append(b.Fits, ports.FitRecord{
						SimModel:   o.SimModels[m],
						FitModel:   o.FitModels[f],
						Experiment: e,
						Subject:    s,
						LogLik:     r.LogLik,
						LogPost:    r.LogPost,
						BIC:        r.BIC,
						AIC:        r.AIC,
						K:          r.K,
						Params:     r.Fitted.String(),
					})
				}
			}
		}
	}
	return b
}
