// Package criteria scores a completed simulate-and-fit run. Lower loss means
// a better design.
package criteria

import (
	"bytes"
	"fmt"
	"strings"

	"assocdesign/domain/core"
	"assocdesign/domain/params"
	"assocdesign/internal/batch"
	"assocdesign/internal/simulate"

	"gopkg.in/yaml.v3"
)

// Setup describes the model space a criterion will be scored on. It is known
// before any simulation runs, so Validate can fail fast.
type Setup struct {
	NSimModels int
	NFitModels int
	FitPriors  []params.FitPrior
}

// Input is everything a criterion reads after fitting.
type Input struct {
	NSub int
	NExp int
	// Truth is indexed [sim model][subject][experiment].
	Truth simulate.Truth
	// Fits holds one grid per simulation model, each indexed
	// [experiment][fit model][subject].
	Fits      []batch.Grid
	FitPriors []params.FitPrior
}

// Diagnostics is criterion-specific detail kept alongside the loss.
type Diagnostics interface {
	// Summary returns the scalar figures, for logs and exports.
	Summary() map[string]float64
}

// Criterion turns fit results into a scalar loss.
type Criterion interface {
	Name() string
	Validate(s Setup) error
	Score(in Input) (float64, Diagnostics, error)
}

// OptionDecoder fills a typed options struct. *yaml.Node satisfies it.
type OptionDecoder interface {
	Decode(v interface{}) error
}

// New builds a criterion by name. opts may be nil to use defaults. YAML
// options with keys the criterion does not know are rejected.
func New(name string, opts OptionDecoder) (Criterion, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "paramest", "loss_paramest_err":
		o := ParamEstOptions{ErrorType: ErrorSquared}
		if err := decodeOptions(opts, &o); err != nil {
			return nil, fmt.Errorf("%w: paramest options: %v", core.ErrInvalidParameter, err)
		}
		return NewParamEst(o)
	case "modsel", "loss_modsel_err":
		o := ModSelOptions{Criterion: "bic", DoLogOdds: true}
		if err := decodeOptions(opts, &o); err != nil {
			return nil, fmt.Errorf("%w: modsel options: %v", core.ErrInvalidParameter, err)
		}
		return NewModSel(o)
	default:
		return nil, core.NewUnknownComponentError("criterion", name)
	}
}

func decodeOptions(opts OptionDecoder, v interface{}) error {
	if opts == nil {
		return nil
	}
	n, ok := opts.(*yaml.Node)
	if !ok {
		return opts.Decode(v)
	}
	// Node.Decode ignores unknown keys; a round trip through a strict
	// decoder does not.
	data, err := yaml.Marshal(n)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(v)
}
