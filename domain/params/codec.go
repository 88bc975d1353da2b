package params

import (
	"strings"

	"assocdesign/domain/core"
)

// Pack lays p out as a flat vector in fitting-prior order. Values are matched
// by (group, name), never by position.
func Pack(p *Params, fp FitPrior) ([]float64, error) {
	x := make([]float64, len(fp))
	for i, e := range fp {
		v, ok := p.Get(e.Group, e.Name)
		if !ok {
			return nil, core.NewParameterNotFoundError(e.Group.String(), e.Name)
		}
		x[i] = v
	}
	return x, nil
}

// PackAll returns every value of p in storage (depth-first) order.
func PackAll(p *Params) []float64 {
	entries := p.Entries()
	x := make([]float64, len(entries))
	for i, e := range entries {
		x[i] = e.Value
	}
	return x
}

// Unpack assigns x[i] to the i-th fitting-prior entry.
func Unpack(x []float64, fp FitPrior) *Params {
	out := New()
	for i, e := range fp {
		if i >= len(x) {
			break
		}
		out.Set(e.Group, e.Name, x[i])
	}
	return out
}

// Merge combines parameter sets left to right. Evolution and Observation
// values merge key by key with later sets winning. An Other value is copied
// wholesale: a later set that defines any key under the same top-level name
// replaces the earlier subtree.
func Merge(sets ...*Params) *Params {
	out := New()
	for _, s := range sets {
		if s == nil {
			continue
		}
		replaced := make(map[string]bool)
		for _, e := range s.entries {
			if e.Group == GroupOther {
				top := topLevel(e.Name)
				if !replaced[top] {
					out = withoutOther(out, top)
					replaced[top] = true
				}
			}
			out.Set(e.Group, e.Name, e.Value)
		}
	}
	return out
}

func topLevel(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

func withoutOther(p *Params, top string) *Params {
	keep := New()
	for _, e := range p.entries {
		if e.Group == GroupOther && topLevel(e.Name) == top {
			continue
		}
		keep.Set(e.Group, e.Name, e.Value)
	}
	return keep
}
