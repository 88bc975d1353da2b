package criteria

import (
	"fmt"
	"math"
	"strings"

	"assocdesign/domain/core"
	"assocdesign/internal/fit"

	"github.com/montanaflynn/stats"
)

// ModSelOptions selects the information criterion and the loss transform.
type ModSelOptions struct {
	Criterion string `yaml:"criterion"`
	DoLogOdds bool   `yaml:"do_logodds"`
}

// ModSel scores how often the true model wins on the chosen information
// criterion.
type ModSel struct {
	opts ModSelOptions
}

// ModSelDiagnostics carries raw and corrected confusion figures.
type ModSelDiagnostics struct {
	Criterion string `json:"criterion"`
	// Confusion counts [true model][selected model].
	Confusion [][]float64 `json:"confusion"`
	// IC holds the subject-averaged criterion, [true][experiment][fit].
	IC     [][][]float64 `json:"ic"`
	AvgAcc float64       `json:"avg_acc"`
	AvgErr float64       `json:"avg_err"`

	Corrected         bool        `json:"corrected"`
	AdjustedConfusion [][]float64 `json:"adjusted_confusion,omitempty"`
	AdjustedAcc       float64     `json:"adjusted_acc"`
	AdjustedErr       float64     `json:"adjusted_err"`

	Loss        float64      `json:"loss"`
	Contingency *Contingency `json:"contingency,omitempty"`
}

func (d *ModSelDiagnostics) Summary() map[string]float64 {
	out := map[string]float64{
		"loss":    d.Loss,
		"avg_acc": d.AvgAcc,
		"avg_err": d.AvgErr,
	}
	if d.Corrected {
		out["adjusted_acc"] = d.AdjustedAcc
		out["adjusted_err"] = d.AdjustedErr
	}
	if d.Contingency != nil {
		out["odds_ratio"] = d.Contingency.OddsRatio
		out["cles"] = d.Contingency.CLES
	}
	return out
}

// NewModSel validates the options.
func NewModSel(o ModSelOptions) (*ModSel, error) {
	o.Criterion = strings.ToLower(o.Criterion)
	switch o.Criterion {
	case "":
		o.Criterion = "bic"
	case "aic", "bic":
	default:
		return nil, fmt.Errorf("%w: criterion %q, want aic or bic", core.ErrInvalidParameter, o.Criterion)
	}
	return &ModSel{opts: o}, nil
}

func (c *ModSel) Name() string { return "modsel" }

// Validate requires a square model space with at least two models.
func (c *ModSel) Validate(s Setup) error {
	if s.NSimModels != s.NFitModels {
		return core.NewModelSpaceError(fmt.Sprintf("modsel needs as many fit models as simulation models, got %d and %d", s.NFitModels, s.NSimModels))
	}
	if s.NFitModels < 2 {
		return core.NewModelSpaceError("modsel needs at least two candidate models")
	}
	return nil
}

func (c *ModSel) ic(r *fit.Result) float64 {
	if c.opts.Criterion == "aic" {
		return r.AIC
	}
	return r.BIC
}

func (c *ModSel) Score(in Input) (float64, Diagnostics, error) {
	nTrue := len(in.Fits)
	if nTrue == 0 {
		return 0, nil, core.NewModelSpaceError("no simulation models to score")
	}
	d := &ModSelDiagnostics{Criterion: c.opts.Criterion}
	d.Confusion = make([][]float64, nTrue)
	d.IC = make([][][]float64, nTrue)
	for m, grid := range in.Fits {
		if len(grid) != in.NExp {
			return 0, nil, fmt.Errorf("simulation model %d has %d experiments, want %d", m, len(grid), in.NExp)
		}
		nFit := 0
		if in.NExp > 0 {
			nFit = len(grid[0])
		}
		d.Confusion[m] = make([]float64, nFit)
		d.IC[m] = make([][]float64, in.NExp)
		for e := 0; e < in.NExp; e++ {
			avg := make([]float64, nFit)
			for f := 0; f < nFit; f++ {
				vals := make([]float64, in.NSub)
				for s := 0; s < in.NSub; s++ {
					vals[s] = c.ic(grid.At(e, f, s))
				}
				mean, err := stats.Mean(vals)
				if err != nil {
					return 0, nil, fmt.Errorf("averaging %s: %w", c.opts.Criterion, err)
				}
				avg[f] = mean
			}
			d.IC[m][e] = avg
			d.Confusion[m][argmin(avg)]++
		}
	}

	d.AvgAcc = accuracy(d.Confusion, d.Confusion)
	d.AvgErr = 1 - d.AvgAcc
	d.Loss = d.AvgErr

	if c.opts.DoLogOdds {
		rate := d.AvgErr
		if rate == 0 || rate == 1 {
			adj := copyMatrix(d.Confusion)
			if rate == 0 {
				adj[0][0] -= 0.5
			} else {
				adj[0][0] += 0.5
			}
			d.Corrected = true
			d.AdjustedConfusion = adj
			d.AdjustedAcc = accuracy(adj, d.Confusion)
			d.AdjustedErr = 1 - d.AdjustedAcc
			rate = d.AdjustedErr
		}
		d.Loss = math.Log(rate / (1 - rate))
	}

	if nTrue == 2 && len(d.Confusion[0]) == 2 {
		ct := NewContingency([2][2]float64{
			{d.Confusion[0][0], d.Confusion[0][1]},
			{d.Confusion[1][0], d.Confusion[1][1]},
		}, 0.95)
		d.Contingency = &ct
	}
	return d.Loss, d, nil
}

// argmin returns the first index of the minimum.
func argmin(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] < v[best] {
			best = i
		}
	}
	return best
}

// accuracy is the mean over rows of cm[i][i] / sum(totals[i]).
func accuracy(cm, totals [][]float64) float64 {
	if len(cm) == 0 {
		return 0
	}
	var sum float64
	for i := range cm {
		var total float64
		for _, v := range totals[i] {
			total += v
		}
		if total > 0 && i < len(cm[i]) {
			sum += cm[i][i] / total
		}
	}
	return sum / float64(len(cm))
}

func copyMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i := range m {
		out[i] = append([]float64(nil), m[i]...)
	}
	return out
}
