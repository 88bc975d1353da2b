package criteria

import (
	"errors"
	"math"
	"testing"

	"assocdesign/domain/core"
	"assocdesign/domain/params"
	"assocdesign/internal/batch"
	"assocdesign/internal/fit"
	"assocdesign/internal/simulate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// icGrid builds one grid per true model where bic(true, exp, fit, sub) is
// given by f.
func icGrid(nTrue, nFit, nExp, nSub int, f func(m, e, fm, s int) float64) []batch.Grid {
	out := make([]batch.Grid, nTrue)
	for m := range out {
		out[m] = make(batch.Grid, nExp)
		for e := range out[m] {
			out[m][e] = make([][]*fit.Result, nFit)
			for fm := range out[m][e] {
				out[m][e][fm] = make([]*fit.Result, nSub)
				for s := range out[m][e][fm] {
					v := f(m, e, fm, s)
					out[m][e][fm][s] = &fit.Result{Estimate: &fit.Estimate{BIC: v, AIC: -v}}
				}
			}
		}
	}
	return out
}

func modsel(t *testing.T, logodds bool) *ModSel {
	c, err := NewModSel(ModSelOptions{Criterion: "bic", DoLogOdds: logodds})
	require.NoError(t, err)
	return c
}

func TestModSel_PerfectSelectionIsCorrected(t *testing.T) {
	fits := icGrid(2, 2, 4, 2, func(m, _, fm, _ int) float64 {
		if m == fm {
			return 10
		}
		return 20
	})
	loss, diag, err := modsel(t, true).Score(Input{NSub: 2, NExp: 4, Fits: fits})
	require.NoError(t, err)
	d := diag.(*ModSelDiagnostics)

	assert.Equal(t, [][]float64{{4, 0}, {0, 4}}, d.Confusion)
	assert.Equal(t, 1.0, d.AvgAcc)
	assert.Equal(t, 0.0, d.AvgErr)
	assert.True(t, d.Corrected)
	assert.Equal(t, [][]float64{{3.5, 0}, {0, 4}}, d.AdjustedConfusion)
	assert.InDelta(t, 0.9375, d.AdjustedAcc, 1e-12)
	assert.InDelta(t, math.Log(0.0625/0.9375), loss, 1e-12)
	assert.False(t, math.IsInf(loss, 0))

	require.NotNil(t, d.Contingency)
	assert.True(t, d.Contingency.Corrected)
	assert.InDelta(t, 81, d.Contingency.OddsRatio, 1e-9)
}

func TestModSel_AlwaysWrongIsCorrected(t *testing.T) {
	fits := icGrid(2, 2, 4, 1, func(m, _, fm, _ int) float64 {
		if m == fm {
			return 20
		}
		return 10
	})
	loss, diag, err := modsel(t, true).Score(Input{NSub: 1, NExp: 4, Fits: fits})
	require.NoError(t, err)
	d := diag.(*ModSelDiagnostics)
	assert.Equal(t, 1.0, d.AvgErr)
	assert.True(t, d.Corrected)
	assert.Equal(t, 0.5, d.AdjustedConfusion[0][0])
	assert.InDelta(t, math.Log(15), loss, 1e-12)
}

func TestModSel_TiesPickFirstModel(t *testing.T) {
	fits := icGrid(2, 2, 3, 2, func(int, int, int, int) float64 { return 5 })
	loss, diag, err := modsel(t, true).Score(Input{NSub: 2, NExp: 3, Fits: fits})
	require.NoError(t, err)
	d := diag.(*ModSelDiagnostics)
	assert.Equal(t, [][]float64{{3, 0}, {3, 0}}, d.Confusion)
	assert.Equal(t, 0.5, d.AvgAcc)
	assert.False(t, d.Corrected)
	assert.InDelta(t, 0, loss, 1e-12)
}

func TestModSel_RowSumsEqualExperiments(t *testing.T) {
	fits := icGrid(3, 3, 7, 2, func(m, e, fm, s int) float64 {
		return float64((m*7+e*3+fm*5+s)%11) + 0.1*float64(fm)
	})
	_, diag, err := modsel(t, false).Score(Input{NSub: 2, NExp: 7, Fits: fits})
	require.NoError(t, err)
	for _, row := range diag.(*ModSelDiagnostics).Confusion {
		var sum float64
		for _, v := range row {
			sum += v
		}
		assert.Equal(t, 7.0, sum)
	}
	assert.Nil(t, diag.(*ModSelDiagnostics).Contingency)
}

func TestModSel_AveragesAcrossSubjects(t *testing.T) {
	// Subject 0 strongly prefers model 0, subject 1 mildly prefers model 1.
	fits := icGrid(2, 2, 1, 2, func(_, _, fm, s int) float64 {
		switch {
		case s == 0 && fm == 0:
			return 0
		case s == 0:
			return 100
		case fm == 0:
			return 51
		default:
			return 50
		}
	})
	_, diag, err := modsel(t, false).Score(Input{NSub: 2, NExp: 1, Fits: fits})
	require.NoError(t, err)
	d := diag.(*ModSelDiagnostics)
	assert.Equal(t, [][]float64{{1, 0}, {1, 0}}, d.Confusion)
	assert.Equal(t, []float64{25.5, 75}, d.IC[0][0])
}

func TestModSel_WithoutLogOddsLossIsError(t *testing.T) {
	fits := icGrid(2, 2, 4, 1, func(m, e, fm, _ int) float64 {
		if e == 0 {
			return float64(fm) // always model 0
		}
		if m == fm {
			return 0
		}
		return 1
	})
	loss, diag, err := modsel(t, false).Score(Input{NSub: 1, NExp: 4, Fits: fits})
	require.NoError(t, err)
	d := diag.(*ModSelDiagnostics)
	assert.Equal(t, [][]float64{{4, 0}, {1, 3}}, d.Confusion)
	assert.InDelta(t, 0.125, loss, 1e-12)
	assert.False(t, d.Corrected)
}

func TestModSel_AIC(t *testing.T) {
	c, err := NewModSel(ModSelOptions{Criterion: "AIC"})
	require.NoError(t, err)
	// AIC is -BIC in icGrid, so the preference flips.
	fits := icGrid(2, 2, 2, 1, func(m, _, fm, _ int) float64 {
		if m == fm {
			return 10
		}
		return 20
	})
	_, diag, err := c.Score(Input{NSub: 1, NExp: 2, Fits: fits})
	require.NoError(t, err)
	assert.Equal(t, 0.0, diag.(*ModSelDiagnostics).AvgAcc)
}

func TestModSel_Validate(t *testing.T) {
	c := modsel(t, true)
	assert.NoError(t, c.Validate(Setup{NSimModels: 2, NFitModels: 2}))
	assert.True(t, errors.Is(c.Validate(Setup{NSimModels: 2, NFitModels: 3}), core.ErrModelSpaceMisconfigured))
	assert.True(t, errors.Is(c.Validate(Setup{NSimModels: 1, NFitModels: 1}), core.ErrModelSpaceMisconfigured))

	_, err := NewModSel(ModSelOptions{Criterion: "dic"})
	assert.Error(t, err)
}

func truthGrid(nSub, nExp int, alpha float64) simulate.Truth {
	out := simulate.Truth{make([][]*params.Params, nSub)}
	for s := range out[0] {
		out[0][s] = make([]*params.Params, nExp)
		for e := range out[0][s] {
			p := params.New()
			p.Set(params.GroupEvolution, "alphaInit", alpha)
			out[0][s][e] = p
		}
	}
	return out
}

func estimateGrid(nSub, nExp int, f func(s, e int) float64) batch.Grid {
	g := make(batch.Grid, nExp)
	for e := range g {
		g[e] = [][]*fit.Result{make([]*fit.Result, nSub)}
		for s := 0; s < nSub; s++ {
			p := params.New()
			p.Set(params.GroupEvolution, "alphaInit", f(s, e))
			g[e][0][s] = &fit.Result{Estimate: &fit.Estimate{}, Fitted: p}
		}
	}
	return g
}

var alphaPrior = []params.FitPrior{{params.FlatEntry(params.GroupEvolution, "alphaInit", 0, 1)}}

func TestParamEst_Losses(t *testing.T) {
	est := estimateGrid(1, 4, func(_, e int) float64 { return 0.3 + []float64{0.1, -0.1, 0.2, 0}[e] })
	in := Input{NSub: 1, NExp: 4, Truth: truthGrid(1, 4, 0.3), Fits: []batch.Grid{est}, FitPriors: alphaPrior}

	sqr, err := NewParamEst(ParamEstOptions{Param: "alphaInit", ErrorType: ErrorSquared})
	require.NoError(t, err)
	loss, diag, err := sqr.Score(in)
	require.NoError(t, err)
	assert.InDelta(t, (0.01+0.01+0.04)/4, loss, 1e-12)
	d := diag.(*ParamEstDiagnostics)
	assert.InDeltaSlice(t, []float64{0.1, -0.1, 0.2, 0}, d.SignedErrors[0][0], 1e-12)
	assert.InDelta(t, 0.05, d.MeanSigned, 1e-12)

	abs, err := NewParamEst(ParamEstOptions{Param: "alphaInit", Group: "evo", ErrorType: ErrorAbsolute})
	require.NoError(t, err)
	loss, _, err = abs.Score(in)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, loss, 1e-12)
}

func TestParamEst_ZeroIffExact(t *testing.T) {
	in := Input{
		NSub: 2, NExp: 3,
		Truth:     truthGrid(2, 3, 0.4),
		Fits:      []batch.Grid{estimateGrid(2, 3, func(int, int) float64 { return 0.4 })},
		FitPriors: alphaPrior,
	}
	for _, et := range []string{ErrorSquared, ErrorAbsolute} {
		c, err := NewParamEst(ParamEstOptions{Param: "alphaInit", ErrorType: et})
		require.NoError(t, err)
		loss, _, err := c.Score(in)
		require.NoError(t, err)
		assert.Equal(t, 0.0, loss, et)
	}
}

func TestParamEst_Validate(t *testing.T) {
	c, err := NewParamEst(ParamEstOptions{Param: "eta"})
	require.NoError(t, err)
	err = c.Validate(Setup{NSimModels: 1, NFitModels: 1, FitPriors: alphaPrior})
	assert.True(t, errors.Is(err, core.ErrParameterNotFound))

	c, err = NewParamEst(ParamEstOptions{Param: "alphaInit", Group: "obs"})
	require.NoError(t, err)
	err = c.Validate(Setup{NSimModels: 1, NFitModels: 1, FitPriors: alphaPrior})
	assert.True(t, errors.Is(err, core.ErrParameterNotFound))

	c, err = NewParamEst(ParamEstOptions{Param: "alphaInit"})
	require.NoError(t, err)
	assert.NoError(t, c.Validate(Setup{NSimModels: 1, NFitModels: 1, FitPriors: alphaPrior}))
	assert.True(t, errors.Is(c.Validate(Setup{NSimModels: 1, NFitModels: 2}), core.ErrModelSpaceMisconfigured))

	_, err = NewParamEst(ParamEstOptions{Param: "alphaInit", ErrorType: "huber"})
	assert.Error(t, err)
	_, err = NewParamEst(ParamEstOptions{})
	assert.Error(t, err)
}

func TestContingency_NoZeroCellNoCorrection(t *testing.T) {
	c := NewContingency([2][2]float64{{10, 5}, {5, 10}}, 0.95)
	assert.False(t, c.Corrected)
	assert.InDelta(t, 4, c.OddsRatio, 1e-12)
	se := math.Sqrt(0.6)
	assert.InDelta(t, se, c.SE, 1e-12)
	assert.InDelta(t, math.Exp(math.Log(4)-1.959963984540054*se), c.CILower, 1e-9)
	assert.InDelta(t, math.Exp(math.Log(4)+1.959963984540054*se), c.CIUpper, 1e-9)
	assert.InDelta(t, math.Log(4)*math.Sqrt(3)/math.Pi, c.D, 1e-12)
	assert.InDelta(t, 0.7055, c.CLES, 1e-3)
}

func TestContingency_ZeroCellCorrectsAllCells(t *testing.T) {
	c := NewContingency([2][2]float64{{8, 0}, {2, 6}}, 0.95)
	assert.True(t, c.Corrected)
	assert.Equal(t, [2][2]float64{{8, 0}, {2, 6}}, c.Table)
	assert.InDelta(t, (8.5*6.5)/(0.5*2.5), c.OddsRatio, 1e-12)
	assert.False(t, math.IsInf(c.CIUpper, 0))
	assert.Greater(t, c.CLES, 0.5)
}

func TestNew(t *testing.T) {
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("criterion: aic\ndo_logodds: false\n"), &node))
	c, err := New("loss_modsel_err", &node)
	require.NoError(t, err)
	ms := c.(*ModSel)
	assert.Equal(t, ModSelOptions{Criterion: "aic", DoLogOdds: false}, ms.opts)

	c, err = New("modsel", nil)
	require.NoError(t, err)
	assert.True(t, c.(*ModSel).opts.DoLogOdds)

	var pnode yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("param: alphaInit\nerror_type: abs\n"), &pnode))
	c, err = New("paramest", &pnode)
	require.NoError(t, err)
	assert.Equal(t, "paramest", c.Name())

	_, err = New("entropy", nil)
	assert.True(t, errors.Is(err, core.ErrUnknownComponent))
}

func TestNew_RejectsUnknownOptions(t *testing.T) {
	tests := []struct {
		name string
		crit string
		yaml string
	}{
		{"misspelt criterion", "modsel", "critrion: aic\ndo_logodds: false\n"},
		{"misspelt error type", "paramest", "param: alpha\nerrortype: abs\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var node yaml.Node
			require.NoError(t, yaml.Unmarshal([]byte(tt.yaml), &node))
			_, err := New(tt.crit, &node)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrInvalidParameter), "%v", err)
		})
	}

	// Mapping nodes nested in a larger document decode the same way.
	var doc struct {
		Options yaml.Node `yaml:"options"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("options: {criterion: aic, do_logodds: false}\n"), &doc))
	c, err := New("modsel", &doc.Options)
	require.NoError(t, err)
	assert.Equal(t, "aic", c.(*ModSel).opts.Criterion)
}
