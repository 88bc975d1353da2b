package design

import (
	"fmt"
	"math"

	"assocdesign/domain/core"
)

// Variable is one optimizable design variable.
type Variable struct {
	Name    string  `yaml:"name"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Integer bool    `yaml:"integer"`
}

// Space is the ordered set of variables an optimizer searches over. The
// order fixes the layout of every search vector.
type Space struct {
	Vars []Variable
}

// Validate checks names and bounds.
func (s Space) Validate() error {
	seen := make(map[string]bool, len(s.Vars))
	for _, v := range s.Vars {
		if v.Name == "" {
			return fmt.Errorf("%w: design variable without a name", core.ErrInvalidDesign)
		}
		if seen[v.Name] {
			return fmt.Errorf("%w: duplicate design variable %q", core.ErrInvalidDesign, v.Name)
		}
		seen[v.Name] = true
		if !(v.Min < v.Max) || math.IsInf(v.Min, 0) || math.IsInf(v.Max, 0) {
			return fmt.Errorf("%w: %s needs finite bounds with min < max", core.ErrInvalidDesign, v.Name)
		}
	}
	return nil
}

// Dim returns the number of variables.
func (s Space) Dim() int {
	return len(s.Vars)
}

// Names returns the variable names in order.
func (s Space) Names() []string {
	out := make([]string, len(s.Vars))
	for i, v := range s.Vars {
		out[i] = v.Name
	}
	return out
}

// Center returns the midpoint of every range.
func (s Space) Center() []float64 {
	out := make([]float64, len(s.Vars))
	for i, v := range s.Vars {
		out[i] = (v.Min + v.Max) / 2
	}
	return out
}

// Clamp projects values into bounds and rounds integer variables.
func (s Space) Clamp(x []float64) []float64 {
	out := make([]float64, len(s.Vars))
	for i, v := range s.Vars {
		val := math.Min(math.Max(x[i], v.Min), v.Max)
		if v.Integer {
			val = math.Round(val)
		}
		out[i] = val
	}
	return out
}

// Point turns a raw search vector into named design variables.
func (s Space) Point(x []float64) (Vars, error) {
	if len(x) != len(s.Vars) {
		return nil, fmt.Errorf("%w: search point has %d values for %d variables", core.ErrInvalidDesign, len(x), len(s.Vars))
	}
	clamped := s.Clamp(x)
	out := make(Vars, len(s.Vars))
	for i, v := range s.Vars {
		out[v.Name] = clamped[i]
	}
	return out, nil
}

// Vector lays named values out in space order; missing names take the center.
func (s Space) Vector(vars Vars) []float64 {
	out := s.Center()
	for i, v := range s.Vars {
		if x, ok := vars[v.Name]; ok {
			out[i] = x
		}
	}
	return out
}
