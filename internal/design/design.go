// Package design generates stimulus sequences from design variables.
package design

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"assocdesign/domain/core"
	"assocdesign/domain/trials"
)

// Vars is a flat named set of design-variable values.
type Vars map[string]float64

// Merge returns a copy of v overridden by each of more in turn.
func (v Vars) Merge(more ...Vars) Vars {
	out := make(Vars, len(v))
	for k, x := range v {
		out[k] = x
	}
	for _, m := range more {
		for k, x := range m {
			out[k] = x
		}
	}
	return out
}

// Generator draws one stimulus sequence for the given variable values.
type Generator interface {
	Name() string
	// Defaults lists every variable the generator reads with its default.
	Defaults() Vars
	Validate(v Vars) error
	Generate(v Vars, rng *rand.Rand) (trials.Trials, error)
}

// Func is a generator bound to fixed variable values.
type Func func(rng *rand.Rand) (trials.Trials, error)

// Bind validates vars (completed with defaults) and closes over them.
func Bind(g Generator, vars Vars) (Func, error) {
	full := g.Defaults().Merge(vars)
	if err := g.Validate(full); err != nil {
		return nil, err
	}
	return func(rng *rand.Rand) (trials.Trials, error) {
		return g.Generate(full, rng)
	}, nil
}

var generators = map[string]Generator{
	"periodic": Periodic{},
	"compound": Compound{},
}

// Get looks up a generator by name.
func Get(name string) (Generator, error) {
	g, ok := generators[strings.ToLower(name)]
	if !ok {
		return nil, core.NewUnknownComponentError("design generator", name)
	}
	return g, nil
}

// Names returns the registered generator names.
func Names() []string {
	out := make([]string, 0, len(generators))
	for k := range generators {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func count(v Vars, name string) (int, error) {
	x := math.Round(v[name])
	if x < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("%w: %s=%g must be a non-negative count", core.ErrInvalidDesign, name, v[name])
	}
	return int(x), nil
}

func probability(v Vars, name string) (float64, error) {
	p := v[name]
	if !(p >= 0 && p <= 1) {
		return 0, fmt.Errorf("%w: %s=%g must be a probability", core.ErrInvalidDesign, name, p)
	}
	return p, nil
}

func bernoulli(p float64, rng *rand.Rand) float64 {
	if rng.Float64() < p {
		return 1
	}
	return 0
}
