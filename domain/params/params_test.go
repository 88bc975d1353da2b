package params

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"assocdesign/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func hybridPrior() FitPrior {
	return FitPrior{
		FlatEntry(GroupEvolution, "alphaInit", 0, 1),
		FlatEntry(GroupEvolution, "eta", 0, 1),
		FlatEntry(GroupObservation, "beta1", -5, 5),
		FlatEntry(GroupObservation, "sd", 0.01, 2),
	}
}

func TestPackUnpack_RoundTrip(t *testing.T) {
	fp := hybridPrior()

	// Storage order differs from prior order on purpose.
	p := New()
	p.Set(GroupObservation, "sd", 0.2)
	p.Set(GroupEvolution, "eta", 0.123456789)
	p.Set(GroupObservation, "beta1", -1.5)
	p.Set(GroupEvolution, "alphaInit", 0.3)

	x, err := Pack(p, fp)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.3, 0.123456789, -1.5, 0.2}, x)

	back := Unpack(x, fp)
	for _, e := range fp {
		want, _ := p.Get(e.Group, e.Name)
		got, ok := back.Get(e.Group, e.Name)
		require.True(t, ok, "missing %s", e.Key())
		assert.Equal(t, want, got, "value for %s", e.Key())
	}
}

func TestPack_MatchesByGroupAndName(t *testing.T) {
	fp := FitPrior{
		FlatEntry(GroupEvolution, "w0", -1, 1),
		FlatEntry(GroupObservation, "w0", -1, 1),
	}
	p := New()
	p.Set(GroupObservation, "w0", 0.75)
	p.Set(GroupEvolution, "w0", -0.25)

	x, err := Pack(p, fp)
	require.NoError(t, err)
	assert.Equal(t, []float64{-0.25, 0.75}, x)
}

func TestPack_MissingParameter(t *testing.T) {
	p := New()
	p.Set(GroupEvolution, "alphaInit", 0.3)
	_, err := Pack(p, hybridPrior())
	assert.True(t, errors.Is(err, core.ErrParameterNotFound))
}

func TestSample_DrawsFreshValuesAndReproducesFromSeed(t *testing.T) {
	prior := NewMapping().
		Put(EvolutionKey, NewMapping().
			Put("alphaInit", Constant(0.3)).
			Put("eta", Uniform(0, 1))).
		Put(ObservationKey, NewMapping().
			Put("sd", Constant(0.2)).
			Put("beta1", Normal(1, 0.5)))

	rng := rand.New(rand.NewPCG(7, 11))
	a, err := Sample(prior, rng)
	require.NoError(t, err)
	b, err := Sample(prior, rng)
	require.NoError(t, err)

	av, _ := a.Get(GroupEvolution, "eta")
	bv, _ := b.Get(GroupEvolution, "eta")
	assert.NotEqual(t, av, bv, "sequential draws must differ")

	c, _ := a.Get(GroupEvolution, "alphaInit")
	assert.Equal(t, 0.3, c)

	again, err := Sample(prior, rand.New(rand.NewPCG(7, 11)))
	require.NoError(t, err)
	assert.True(t, a.Equal(again), "same seed must reproduce the same draw")

	assert.Equal(t, []Key{
		{GroupEvolution, "alphaInit"}, {GroupEvolution, "eta"},
		{GroupObservation, "sd"}, {GroupObservation, "beta1"},
	}, keysOf(a))
}

func TestSample_UnsupportedLeaf(t *testing.T) {
	prior := NewMapping().Put(EvolutionKey, NewMapping().Put("alpha", Sampler{Label: "broken"}))
	_, err := Sample(prior, rand.New(rand.NewPCG(1, 2)))
	assert.True(t, errors.Is(err, core.ErrUnsupportedParameterType))

	_, err = Sample(Constant(1), rand.New(rand.NewPCG(1, 2)))
	assert.True(t, errors.Is(err, core.ErrUnsupportedParameterType))
}

func TestSample_NestedOtherGroupsAreFlattened(t *testing.T) {
	prior := NewMapping().
		Put("design", NewMapping().Put("lag", Constant(2)).Put("inner", NewMapping().Put("k", Constant(3)))).
		Put("evo", Constant(9))

	p, err := Sample(prior, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	v, ok := p.Get(GroupOther, "design.inner.k")
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
	// A scalar named "evo" is not a group.
	v, ok = p.Get(GroupOther, "evo")
	assert.True(t, ok)
	assert.Equal(t, 9.0, v)
}

func TestPackAll_DepthFirstLeafOrder(t *testing.T) {
	prior := NewMapping().
		Put(EvolutionKey, NewMapping().Put("alpha", Constant(0.1)).Put("w0", Constant(0.2))).
		Put("design", NewMapping().Put("lag", Constant(2)).Put("inner", NewMapping().Put("k", Constant(3)).Put("j", Constant(4)))).
		Put(ObservationKey, NewMapping().Put("sd", Constant(0.3))).
		Put("z", Constant(5))

	p, err := Sample(prior, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 2, 3, 4, 0.3, 5}, PackAll(p))
	assert.Empty(t, PackAll(New()))
}

func TestMerge(t *testing.T) {
	fitted := New()
	fitted.Set(GroupEvolution, "alpha", 0.4)
	fitted.Set(GroupOther, "design.a", 1)
	fitted.Set(GroupOther, "design.b", 2)

	fixed := New()
	fixed.Set(GroupEvolution, "w0", 0)
	fixed.Set(GroupEvolution, "alpha", 0.9)
	fixed.Set(GroupObservation, "sd", 0.2)
	fixed.Set(GroupOther, "design.c", 3)

	m := Merge(fitted, fixed)

	alpha, _ := m.Get(GroupEvolution, "alpha")
	assert.Equal(t, 0.9, alpha, "later set wins on conflict")
	assert.True(t, m.Has(GroupEvolution, "w0"))
	assert.True(t, m.Has(GroupObservation, "sd"))

	// "design" was replaced wholesale.
	assert.False(t, m.Has(GroupOther, "design.a"))
	assert.False(t, m.Has(GroupOther, "design.b"))
	assert.True(t, m.Has(GroupOther, "design.c"))

	// Inputs untouched.
	a, _ := fitted.Get(GroupEvolution, "alpha")
	assert.Equal(t, 0.4, a)
}

func TestFitPrior_Validate(t *testing.T) {
	assert.NoError(t, hybridPrior().Validate())

	dup := append(hybridPrior(), FlatEntry(GroupEvolution, "eta", 0, 1))
	assert.True(t, errors.Is(dup.Validate(), core.ErrInvalidParameter))

	// Same name in a different group is allowed.
	ok := append(hybridPrior(), FlatEntry(GroupObservation, "eta", 0, 1))
	assert.NoError(t, ok.Validate())

	bad := FitPrior{FlatEntry(GroupEvolution, "alpha", 1, 0)}
	assert.Error(t, bad.Validate())

	badInit := FitPrior{FlatEntry(GroupEvolution, "alpha", 0, 1)}
	badInit[0].Init = 2
	assert.Error(t, badInit.Validate())
}

func TestParseDistribution(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"uniform(0, 1)", false},
		{"Normal(0,2)", false},
		{"beta(2,5)", false},
		{"gamma(2, 1)", false},
		{"lognormal(0,0.5)", false},
		{"exponential(3)", false},
		{"uniform(1,0)", true},
		{"normal(0,-1)", true},
		{"cauchy(0,1)", true},
		{"uniform(a,b)", true},
		{"0.5", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			s, err := ParseDistribution(tt.expr)
			if tt.wantErr {
				assert.True(t, errors.Is(err, core.ErrUnsupportedParameterType), "got %v", err)
				return
			}
			require.NoError(t, err)
			v := s.Draw(rand.New(rand.NewPCG(3, 4)))
			assert.False(t, math.IsNaN(v))
		})
	}
}

func TestFlatLogPrior(t *testing.T) {
	lp := Flat(0, 4)
	assert.InDelta(t, math.Log(0.25), lp(1), 1e-12)
	assert.True(t, math.IsInf(lp(5), -1))

	parsed, err := ParseLogPrior("uniform(0,4)")
	require.NoError(t, err)
	assert.InDelta(t, lp(2), parsed(2), 1e-12)
}

func TestFromYAML_PreservesOrder(t *testing.T) {
	src := `
evo:
  eta: uniform(0, 1)
  alphaInit: 0.3
obs:
  sd: 0.2
`
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))

	node, err := FromYAML(&doc)
	require.NoError(t, err)
	p, err := Sample(node, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	assert.Equal(t, []Key{{GroupEvolution, "eta"}, {GroupEvolution, "alphaInit"}, {GroupObservation, "sd"}}, keysOf(p))
}

func TestFromYAML_Unsupported(t *testing.T) {
	for _, src := range []string{"evo:\n  alpha: true\n", "evo:\n  alpha: [1, 2]\n", "evo:\n  alpha: fast\n"} {
		var doc yaml.Node
		require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
		_, err := FromYAML(&doc)
		assert.True(t, errors.Is(err, core.ErrUnsupportedParameterType), "source %q: %v", src, err)
	}
}

func TestFromValue(t *testing.T) {
	calls := 0
	node, err := FromValue(map[string]interface{}{
		"obs": map[string]interface{}{"sd": 0.2},
		"evo": map[string]interface{}{"alpha": func() float64 { calls++; return 0.5 }},
	})
	require.NoError(t, err)
	p, err := Sample(node, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	alpha, _ := p.Get(GroupEvolution, "alpha")
	assert.Equal(t, 0.5, alpha)

	_, err = FromValue(map[string]interface{}{"evo": []int{1}})
	assert.True(t, errors.Is(err, core.ErrUnsupportedParameterType))
}

func keysOf(p *Params) []Key {
	var out []Key
	for _, e := range p.Entries() {
		out = append(out, e.Key)
	}
	return out
}
