package params

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"

	"assocdesign/domain/core"

	"gopkg.in/yaml.v3"
)

// FromYAML converts a decoded YAML node into a prior tree. Mapping order is
// preserved. Numbers become constants, strings must name a distribution.
func FromYAML(n *yaml.Node) (Node, error) {
	return fromYAML(n, "")
}

func fromYAML(n *yaml.Node, path string) (Node, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return NewMapping(), nil
		}
		return fromYAML(n.Content[0], path)
	case yaml.AliasNode:
		return fromYAML(n.Alias, path)
	case yaml.MappingNode:
		m := NewMapping()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			child, err := fromYAML(n.Content[i+1], join(path, key))
			if err != nil {
				return nil, err
			}
			m.Put(key, child)
		}
		return m, nil
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!int", "!!float":
			v, err := strconv.ParseFloat(n.Value, 64)
			if err != nil {
				return nil, fmt.Errorf("%w at %q: %v", core.ErrUnsupportedParameterType, path, err)
			}
			return Constant(v), nil
		case "!!str":
			s, err := ParseDistribution(n.Value)
			if err != nil {
				return nil, fmt.Errorf("at %q: %w", path, err)
			}
			return s, nil
		}
		return nil, fmt.Errorf("%w at %q: scalar tag %s", core.ErrUnsupportedParameterType, path, n.Tag)
	default:
		return nil, fmt.Errorf("%w at %q: yaml kind %d", core.ErrUnsupportedParameterType, path, n.Kind)
	}
}

// FromValue converts an in-memory value into a prior tree. Go maps have no
// order, so their keys are sorted; use Mapping directly when order matters.
func FromValue(v interface{}) (Node, error) {
	return fromValue(v, "")
}

func fromValue(v interface{}, path string) (Node, error) {
	switch t := v.(type) {
	case Node:
		return t, nil
	case float64:
		return Constant(t), nil
	case float32:
		return Constant(float64(t)), nil
	case int:
		return Constant(float64(t)), nil
	case int64:
		return Constant(float64(t)), nil
	case string:
		s, err := ParseDistribution(t)
		if err != nil {
			return nil, fmt.Errorf("at %q: %w", path, err)
		}
		return s, nil
	case func() float64:
		return Sampler{Label: "func", Draw: func(*rand.Rand) float64 { return t() }}, nil
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMapping()
		for _, k := range keys {
			child, err := fromValue(t[k], join(path, k))
			if err != nil {
				return nil, err
			}
			m.Put(k, child)
		}
		return m, nil
	default:
		return nil, core.NewUnsupportedParameterTypeError(path, v)
	}
}
