package params

import (
	"fmt"
	"math"

	"assocdesign/domain/core"
)

// PriorEntry describes one free parameter of a fitting prior.
type PriorEntry struct {
	Name     string
	Group    Group
	LogPrior LogDensity
	Lower    float64
	Upper    float64
	// Init is the starting value for every restart; NaN means draw one.
	Init float64
}

// Key returns the (group, name) identity of the entry.
func (e PriorEntry) Key() Key {
	return Key{Group: e.Group, Name: e.Name}
}

// HasInit reports whether a fixed starting value was configured.
func (e PriorEntry) HasInit() bool {
	return !math.IsNaN(e.Init)
}

// FlatEntry is a convenience constructor with a uniform prior and no init.
func FlatEntry(g Group, name string, lo, hi float64) PriorEntry {
	return PriorEntry{Name: name, Group: g, LogPrior: Flat(lo, hi), Lower: lo, Upper: hi, Init: math.NaN()}
}

// FitPrior is the ordered list of free parameters of one model. Its order
// defines the layout of every packed vector for that model.
type FitPrior []PriorEntry

// Validate checks bounds and (group, name) uniqueness.
func (fp FitPrior) Validate() error {
	seen := make(map[Key]bool, len(fp))
	for i, e := range fp {
		if e.Name == "" {
			return fmt.Errorf("%w: fitting prior entry %d has no name", core.ErrInvalidParameter, i)
		}
		if seen[e.Key()] {
			return fmt.Errorf("%w: duplicate fitting prior entry %s", core.ErrInvalidParameter, e.Key())
		}
		seen[e.Key()] = true
		if !(e.Lower < e.Upper) {
			return core.NewInvalidParameterError(e.Key().String(), e.Lower, fmt.Sprintf("lower bound must be below upper bound %g", e.Upper))
		}
		if e.HasInit() && (e.Init < e.Lower || e.Init > e.Upper) {
			return core.NewInvalidParameterError(e.Key().String(), e.Init, "init outside bounds")
		}
		if e.LogPrior == nil {
			return fmt.Errorf("%w: %s has no log prior", core.ErrInvalidParameter, e.Key())
		}
	}
	return nil
}

// Index returns the position of a parameter, or -1.
func (fp FitPrior) Index(g Group, name string) int {
	for i, e := range fp {
		if e.Group == g && e.Name == name {
			return i
		}
	}
	return -1
}

// IndexByName returns the first entry with that name in any group, or -1.
func (fp FitPrior) IndexByName(name string) int {
	for i, e := range fp {
		if e.Name == name {
			return i
		}
	}
	return -1
}

// Keys returns the ordered (group, name) pairs.
func (fp FitPrior) Keys() []Key {
	out := make([]Key, len(fp))
	for i, e := range fp {
		out[i] = e.Key()
	}
	return out
}

// Bounds returns the lower and upper bound vectors.
func (fp FitPrior) Bounds() (lower, upper []float64) {
	lower = make([]float64, len(fp))
	upper = make([]float64, len(fp))
	for i, e := range fp {
		lower[i], upper[i] = e.Lower, e.Upper
	}
	return lower, upper
}

// LogPrior sums the per-parameter log densities of a packed vector.
func (fp FitPrior) LogPrior(x []float64) float64 {
	var lp float64
	for i, e := range fp {
		lp += e.LogPrior(x[i])
	}
	return lp
}
