package criteria

import (
	"fmt"
	"math"

	"assocdesign/domain/core"
	"assocdesign/domain/params"

	"github.com/montanaflynn/stats"
)

// Error types for ParamEst.
const (
	ErrorSquared  = "sqr"
	ErrorAbsolute = "abs"
)

// ParamEstOptions selects the parameter whose recovery is scored.
type ParamEstOptions struct {
	Param     string `yaml:"param"`
	Group     string `yaml:"group"`
	ErrorType string `yaml:"error_type"`
}

// ParamEst scores how well one parameter is recovered. Simulation model i is
// paired with fit model i.
type ParamEst struct {
	opts ParamEstOptions
}

// ParamEstDiagnostics carries the signed errors, indexed
// [model][subject][experiment].
type ParamEstDiagnostics struct {
	Param        string        `json:"param"`
	ErrorType    string        `json:"error_type"`
	SignedErrors [][][]float64 `json:"signed_errors"`
	MeanSigned   float64       `json:"mean_signed_error"`
	StdDev       float64       `json:"std_dev"`
	Loss         float64       `json:"loss"`
}

func (d *ParamEstDiagnostics) Summary() map[string]float64 {
	return map[string]float64{
		"loss":              d.Loss,
		"mean_signed_error": d.MeanSigned,
		"std_dev":           d.StdDev,
	}
}

// NewParamEst validates the options.
func NewParamEst(o ParamEstOptions) (*ParamEst, error) {
	if o.Param == "" {
		return nil, fmt.Errorf("%w: paramest needs a target parameter", core.ErrInvalidParameter)
	}
	switch o.ErrorType {
	case "":
		o.ErrorType = ErrorSquared
	case ErrorSquared, ErrorAbsolute:
	default:
		return nil, fmt.Errorf("%w: error_type %q, want sqr or abs", core.ErrInvalidParameter, o.ErrorType)
	}
	return &ParamEst{opts: o}, nil
}

func (c *ParamEst) Name() string { return "paramest" }

// Validate requires paired model spaces and the target in every fitting prior.
func (c *ParamEst) Validate(s Setup) error {
	if s.NSimModels == 0 || s.NSimModels != s.NFitModels {
		return core.NewModelSpaceError(fmt.Sprintf("paramest pairs simulation and fit models, got %d and %d", s.NSimModels, s.NFitModels))
	}
	for _, fp := range s.FitPriors {
		if _, err := c.target(fp); err != nil {
			return err
		}
	}
	return nil
}

func (c *ParamEst) target(fp params.FitPrior) (params.Key, error) {
	var i int
	if c.opts.Group != "" {
		i = fp.Index(params.ParseGroup(c.opts.Group), c.opts.Param)
	} else {
		i = fp.IndexByName(c.opts.Param)
	}
	if i < 0 {
		return params.Key{}, core.NewParameterNotFoundError(c.opts.Group, c.opts.Param)
	}
	return fp[i].Key(), nil
}

func (c *ParamEst) Score(in Input) (float64, Diagnostics, error) {
	d := &ParamEstDiagnostics{Param: c.opts.Param, ErrorType: c.opts.ErrorType}
	var losses, signed []float64
	d.SignedErrors = make([][][]float64, len(in.Truth))
	for m := range in.Truth {
		key, err := c.target(in.FitPriors[m])
		if err != nil {
			return 0, nil, err
		}
		d.SignedErrors[m] = make([][]float64, in.NSub)
		for s := 0; s < in.NSub; s++ {
			d.SignedErrors[m][s] = make([]float64, in.NExp)
			for e := 0; e < in.NExp; e++ {
				truth, ok := in.Truth[m][s][e].Get(key.Group, key.Name)
				if !ok {
					return 0, nil, core.NewParameterNotFoundError(key.Group.String(), key.Name)
				}
				est, ok := in.Fits[m].At(e, m, s).Fitted.Get(key.Group, key.Name)
				if !ok {
					return 0, nil, core.NewParameterNotFoundError(key.Group.String(), key.Name)
				}
				diff := est - truth
				d.SignedErrors[m][s][e] = diff
				signed = append(signed, diff)
				if c.opts.ErrorType == ErrorAbsolute {
					losses = append(losses, math.Abs(diff))
				} else {
					losses = append(losses, diff*diff)
				}
			}
		}
	}

	loss, err := stats.Mean(losses)
	if err != nil {
		return 0, nil, fmt.Errorf("paramest loss: %w", err)
	}
	d.Loss = loss
	d.MeanSigned, _ = stats.Mean(signed)
	d.StdDev, _ = stats.StandardDeviation(signed)
	return loss, d, nil
}
