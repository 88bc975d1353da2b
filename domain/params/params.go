// Package params implements the parameter tree used to describe, sample,
// pack and unpack learning-model parameters.
//
// A prior specification is a tree of Nodes (Constant, Sampler, Mapping).
// Sampling a tree yields a Params value: ordered (group, name) -> float64
// storage where the group is one of the enumerated tags Evolution,
// Observation or Other. The fitting prior (FitPrior) fixes the order of the
// flat vectors handed to optimizers.
package params

import (
	"encoding/json"
	"fmt"
	"strings"

	"assocdesign/domain/core"
)

// Group tags which part of a model a parameter belongs to.
type Group int

const (
	GroupOther Group = iota
	GroupEvolution
	GroupObservation
)

// Short names used in configuration and in nested prior specifications.
const (
	EvolutionKey   = "evo"
	ObservationKey = "obs"
)

func (g Group) String() string {
	switch g {
	case GroupEvolution:
		return EvolutionKey
	case GroupObservation:
		return ObservationKey
	default:
		return ""
	}
}

// ParseGroup maps a configuration key onto a Group. Unknown keys are Other.
func ParseGroup(s string) Group {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case EvolutionKey, "evolution":
		return GroupEvolution
	case ObservationKey, "observation":
		return GroupObservation
	default:
		return GroupOther
	}
}

// Key identifies one scalar parameter.
type Key struct {
	Group Group
	Name  string
}

func (k Key) String() string {
	if k.Group == GroupOther {
		return k.Name
	}
	return k.Group.String() + "." + k.Name
}

// Entry is one stored parameter value.
type Entry struct {
	Key
	Value float64
}

// Params is an ordered set of parameter values. Insertion order is the
// depth-first order of the prior tree it was sampled from.
type Params struct {
	entries []Entry
	index   map[Key]int
}

// New returns an empty parameter set.
func New() *Params {
	return &Params{index: make(map[Key]int)}
}

// Set stores a value, keeping the original position of an existing key.
func (p *Params) Set(g Group, name string, v float64) {
	if p.index == nil {
		p.index = make(map[Key]int)
	}
	k := Key{Group: g, Name: name}
	if i, ok := p.index[k]; ok {
		p.entries[i].Value = v
		return
	}
	p.index[k] = len(p.entries)
	p.entries = append(p.entries, Entry{Key: k, Value: v})
}

// Get looks up a value.
func (p *Params) Get(g Group, name string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	i, ok := p.index[Key{Group: g, Name: name}]
	if !ok {
		return 0, false
	}
	return p.entries[i].Value, true
}

// Has reports whether the key is present.
func (p *Params) Has(g Group, name string) bool {
	_, ok := p.Get(g, name)
	return ok
}

// Len returns the number of stored values.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}

// Entries returns a copy of the stored values in order.
func (p *Params) Entries() []Entry {
	if p == nil {
		return nil
	}
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Group returns the values of one group as a Set.
func (p *Params) Group(g Group) Set {
	s := make(Set)
	if p == nil {
		return s
	}
	for _, e := range p.entries {
		if e.Group == g {
			s[e.Name] = e.Value
		}
	}
	return s
}

// Evo is shorthand for Group(GroupEvolution).
func (p *Params) Evo() Set { return p.Group(GroupEvolution) }

// Obs is shorthand for Group(GroupObservation).
func (p *Params) Obs() Set { return p.Group(GroupObservation) }

// Clone returns a deep copy.
func (p *Params) Clone() *Params {
	out := New()
	if p == nil {
		return out
	}
	for _, e := range p.entries {
		out.Set(e.Group, e.Name, e.Value)
	}
	return out
}

// Equal reports whether both sets hold the same keys with identical values.
// Order is ignored.
func (p *Params) Equal(o *Params) bool {
	if p.Len() != o.Len() {
		return false
	}
	for _, e := range p.Entries() {
		v, ok := o.Get(e.Group, e.Name)
		if !ok || v != e.Value {
			return false
		}
	}
	return true
}

// MarshalJSON writes {"evo": {...}, "obs": {...}, "<other>": v}.
func (p *Params) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{})
	for _, e := range p.Entries() {
		switch e.Group {
		case GroupEvolution, GroupObservation:
			sub, _ := out[e.Group.String()].(map[string]float64)
			if sub == nil {
				sub = make(map[string]float64)
				out[e.Group.String()] = sub
			}
			sub[e.Name] = e.Value
		default:
			out[e.Name] = e.Value
		}
	}
	return json.Marshal(out)
}

func (p *Params) String() string {
	parts := make([]string, 0, p.Len())
	for _, e := range p.Entries() {
		parts = append(parts, fmt.Sprintf("%s=%.4g", e.Key, e.Value))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Set is the flat view of one parameter group handed to model functions.
type Set map[string]float64

// Require returns the named value or a parameter-not-found error.
func (s Set) Require(name string) (float64, error) {
	v, ok := s[name]
	if !ok {
		return 0, core.NewParameterNotFoundError("", name)
	}
	return v, nil
}

// Or returns the named value or def when absent.
func (s Set) Or(name string, def float64) float64 {
	if v, ok := s[name]; ok {
		return v
	}
	return def
}
