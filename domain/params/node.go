package params

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"assocdesign/domain/core"
)

// Node is one element of a prior specification tree.
// The concrete types are Constant, Sampler and *Mapping.
type Node interface {
	isNode()
}

// Constant is a fixed scalar leaf.
type Constant float64

// Sampler is a leaf drawing one value per call from an explicit random source.
type Sampler struct {
	Label string
	Draw  func(rng *rand.Rand) float64
}

// Mapping is an ordered name -> Node grouping.
type Mapping struct {
	keys     []string
	children map[string]Node
}

func (Constant) isNode() {}
func (Sampler) isNode()  {}
func (*Mapping) isNode() {}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{children: make(map[string]Node)}
}

// Put adds or replaces a child, keeping the first insertion position.
func (m *Mapping) Put(name string, n Node) *Mapping {
	if _, ok := m.children[name]; !ok {
		m.keys = append(m.keys, name)
	}
	m.children[name] = n
	return m
}

// Get returns a child node.
func (m *Mapping) Get(name string) (Node, bool) {
	n, ok := m.children[name]
	return n, ok
}

// Keys returns child names in insertion order.
func (m *Mapping) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of children.
func (m *Mapping) Len() int {
	return len(m.keys)
}

func (s Sampler) String() string {
	if s.Label == "" {
		return "sampler"
	}
	return s.Label
}

// Sample draws one complete parameter set from a prior tree.
// The top-level children "evo" and "obs" become the Evolution and Observation
// groups; everything else lands in Other. Mappings below that are flattened
// into dotted names.
func Sample(root Node, rng *rand.Rand) (*Params, error) {
	out := New()
	switch n := root.(type) {
	case *Mapping:
		for _, key := range n.keys {
			child := n.children[key]
			group := GroupOther
			prefix := key
			if g := ParseGroup(key); g != GroupOther {
				if _, isMap := child.(*Mapping); isMap {
					group, prefix = g, ""
				}
			}
			if err := sampleInto(out, group, prefix, child, rng); err != nil {
				return nil, err
			}
		}
	default:
		return nil, core.NewUnsupportedParameterTypeError("<root>", root)
	}
	return out, nil
}

func sampleInto(out *Params, g Group, path string, n Node, rng *rand.Rand) error {
	switch v := n.(type) {
	case Constant:
		out.Set(g, path, float64(v))
	case Sampler:
		if v.Draw == nil {
			return core.NewUnsupportedParameterTypeError(qualify(g, path), v)
		}
		out.Set(g, path, v.Draw(rng))
	case *Mapping:
		for _, key := range v.keys {
			if err := sampleInto(out, g, join(path, key), v.children[key], rng); err != nil {
				return err
			}
		}
	default:
		return core.NewUnsupportedParameterTypeError(qualify(g, path), n)
	}
	return nil
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func qualify(g Group, path string) string {
	return Key{Group: g, Name: path}.String()
}

// Describe renders a prior tree for logs.
func Describe(n Node) string {
	switch v := n.(type) {
	case Constant:
		return fmt.Sprintf("%g", float64(v))
	case Sampler:
		return v.String()
	case *Mapping:
		parts := make([]string, 0, v.Len())
		for _, k := range v.keys {
			parts = append(parts, k+": "+Describe(v.children[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("<%T>", n)
	}
}
