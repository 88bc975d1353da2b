package app

import (
	"math"

	"assocdesign/domain/core"
	"assocdesign/domain/params"
	"assocdesign/internal"
	"assocdesign/internal/batch"
	"assocdesign/internal/config"
	"assocdesign/internal/criteria"
	"assocdesign/internal/design"
	apperrors "assocdesign/internal/errors"
	"assocdesign/internal/fit"
	"assocdesign/internal/nssm"

	"gopkg.in/yaml.v3"
)

// NewSetup resolves every name in a scenario and returns an evaluator setup.
// Scenario values override the environment; cfg may be nil for defaults.
func NewSetup(s *config.Scenario, cfg *config.Config, logger *internal.Logger) (Setup, error) {
	if cfg == nil {
		cfg = &config.Config{Seed: 1, NStarts: fit.DefaultStarts, LogLikFloor: nssm.DefaultLogLikFloor}
	}
	setup := Setup{
		Scenario:            s.Name,
		NSub:                s.NSub,
		NExp:                s.NExp,
		Seed:                cfg.Seed,
		Workers:             cfg.Workers,
		NStarts:             cfg.NStarts,
		CommonRandomNumbers: s.CommonRandomNumbers,
		Logger:              logger,
	}
	if s.Seed != nil {
		setup.Seed = *s.Seed
	}
	if s.Workers != nil {
		setup.Workers = *s.Workers
	}
	if s.NStarts != nil {
		setup.NStarts = *s.NStarts
	}
	floor := cfg.LogLikFloor
	if s.LogLikFloor != nil {
		floor = *s.LogLikFloor
		if !(floor < 0) || math.IsInf(floor, -1) {
			return Setup{}, apperrors.ConfigInvalidf("loglik_floor must be finite and negative, got %g", floor)
		}
	}
	if s.NSub <= 0 || s.NExp <= 0 {
		return Setup{}, apperrors.ConfigInvalidf("n_sub and n_exp must be positive, got %d and %d", s.NSub, s.NExp)
	}

	models, err := scenarioModels(s.Models)
	if err != nil {
		return Setup{}, err
	}
	if len(s.SimModels) == 0 || len(s.FitModels) == 0 {
		return Setup{}, apperrors.Wrap(core.NewModelSpaceError("need at least one sim and one fit model"), "model space")
	}

	for _, sm := range s.SimModels {
		m, ok := models[sm.Model]
		if !ok {
			return Setup{}, apperrors.Wrap(core.NewUnknownComponentError("model", sm.Model), "sim_models")
		}
		prior, err := params.FromYAML(&sm.Prior)
		if err != nil {
			return Setup{}, apperrors.Wrapf(err, "sampling prior of %s", sm.Model)
		}
		setup.SimModels = append(setup.SimModels, SimModel{Model: m, Prior: prior})
	}

	for _, fm := range s.FitModels {
		m, ok := models[fm.Model]
		if !ok {
			return Setup{}, apperrors.Wrap(core.NewUnknownComponentError("model", fm.Model), "fit_models")
		}
		fp, err := fitPrior(fm.Prior)
		if err != nil {
			return Setup{}, apperrors.Wrapf(err, "fitting prior of %s", fm.Model)
		}
		fixed, err := fixedParams(&fm.Fixed)
		if err != nil {
			return Setup{}, apperrors.Wrapf(err, "fixed parameters of %s", fm.Model)
		}
		setup.FitModels = append(setup.FitModels, batch.Job{
			Model: m,
			Spec:  fit.Spec{Prior: fp, Fixed: fixed, LogLikFloor: floor},
		})
	}

	gen, err := design.Get(s.Design.Generator)
	if err != nil {
		return Setup{}, apperrors.Wrap(err, "design")
	}
	setup.Generator = gen
	setup.Constants = design.Vars(s.Design.Constants)
	setup.Space = design.Space{Vars: s.Design.Space}

	var opts criteria.OptionDecoder
	if !s.Criterion.Options.IsZero() {
		opts = &s.Criterion.Options
	}
	crit, err := criteria.New(s.Criterion.Name, opts)
	if err != nil {
		return Setup{}, apperrors.Wrap(err, "criterion")
	}
	setup.Criterion = crit
	return setup, nil
}

func scenarioModels(configs []config.ModelConfig) (map[string]*nssm.Model, error) {
	out := make(map[string]*nssm.Model, len(configs))
	for _, mc := range configs {
		if mc.Name == "" {
			return nil, apperrors.ConfigInvalid("model without a name")
		}
		if _, dup := out[mc.Name]; dup {
			return nil, apperrors.ConfigInvalidf("duplicate model %q", mc.Name)
		}
		m, err := nssm.NewModel(mc.Name, mc.Evolution, mc.Observation)
		if err != nil {
			return nil, apperrors.Wrapf(err, "model %s", mc.Name)
		}
		out[mc.Name] = m
	}
	return out, nil
}

func fitPrior(entries []config.PriorEntryConfig) (params.FitPrior, error) {
	fp := make(params.FitPrior, 0, len(entries))
	for _, e := range entries {
		lo, hi := math.Inf(-1), math.Inf(1)
		if e.Lower != nil {
			lo = *e.Lower
		}
		if e.Upper != nil {
			hi = *e.Upper
		}
		entry := params.FlatEntry(params.ParseGroup(e.Group), e.Name, lo, hi)
		if e.Prior != "" {
			lp, err := params.ParseLogPrior(e.Prior)
			if err != nil {
				return nil, err
			}
			entry.LogPrior = lp
		}
		if e.Init != nil {
			entry.Init = *e.Init
		}
		fp = append(fp, entry)
	}
	if err := fp.Validate(); err != nil {
		return nil, err
	}
	return fp, nil
}

// fixedParams accepts a tree of constants only.
func fixedParams(n *yaml.Node) (*params.Params, error) {
	if n.IsZero() {
		return params.New(), nil
	}
	tree, err := params.FromYAML(n)
	if err != nil {
		return nil, err
	}
	if path, ok := firstSampler(tree, ""); ok {
		return nil, apperrors.ConfigInvalidf("fixed parameter %s must be a number", path)
	}
	// Constant trees never touch the generator.
	return params.Sample(tree, nil)
}

func firstSampler(n params.Node, path string) (string, bool) {
	switch v := n.(type) {
	case params.Sampler:
		return path, true
	case *params.Mapping:
		for _, k := range v.Keys() {
			child, _ := v.Get(k)
			p := k
			if path != "" {
				p = path + "." + k
			}
			if found, ok := firstSampler(child, p); ok {
				return found, true
			}
		}
	}
	return "", false
}

