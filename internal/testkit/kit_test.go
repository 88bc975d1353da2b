package testkit

import (
	"context"
	"errors"
	"math"
	"testing"

	"assocdesign/domain/core"
	"assocdesign/internal/config"
	"assocdesign/internal/criteria"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"kru2008", "kru2008_null", "rwae"}, Names())
	_, err := Scenario("nope")
	assert.True(t, errors.Is(err, core.ErrUnknownComponent))
}

func TestScenarios_Build(t *testing.T) {
	kit := NewTestKit(nil, nil)
	for _, name := range Names() {
		_, err := kit.Evaluator(name, nil)
		require.NoError(t, err, name)
	}
}

// Estimation error of alphaInit under the rwae scenario. Experiments share
// their random streams across sizes, so the smaller runs are prefixes of the
// larger one.
func TestRWAE_ErrorShrinksWithExperiments(t *testing.T) {
	if testing.Short() {
		t.Skip("fits 56 experiments")
	}
	kit := NewTestKit(nil, nil)
	var stdErr, losses []float64
	for _, nExp := range []int{8, 16, 32} {
		e, err := kit.Evaluator("rwae", func(s *config.Scenario) { s.NExp = nExp })
		require.NoError(t, err)
		out, err := e.Report(context.Background(), nil)
		require.NoError(t, err)

		diag, ok := out.Diagnostics.(*criteria.ParamEstDiagnostics)
		require.True(t, ok)
		var abs []float64
		for _, v := range diag.SignedErrors[0][0] {
			abs = append(abs, math.Abs(v))
		}
		require.Len(t, abs, nExp)
		assert.Less(t, out.Loss, 0.2, "n_exp=%d", nExp)
		losses = append(losses, out.Loss)

		sd, err := stats.StandardDeviationSample(abs)
		require.NoError(t, err)
		stdErr = append(stdErr, sd/math.Sqrt(float64(nExp)))
	}
	assert.Less(t, stdErr[2], stdErr[0], "standard error of the loss %v", stdErr)
	// Extra experiments refine the estimate rather than move it: each smaller
	// run lies within three of its standard errors of the largest.
	for i := range losses[:2] {
		assert.InDelta(t, losses[2], losses[i], 3*stdErr[i], "losses %v", losses)
	}
}

func modsel(t *testing.T, name string) *criteria.ModSelDiagnostics {
	t.Helper()
	e, err := NewTestKit(nil, nil).Evaluator(name, nil)
	require.NoError(t, err)
	out, err := e.Report(context.Background(), nil)
	require.NoError(t, err)
	diag, ok := out.Diagnostics.(*criteria.ModSelDiagnostics)
	require.True(t, ok)
	assert.False(t, math.IsInf(out.Loss, 0) || math.IsNaN(out.Loss))
	for _, row := range diag.Confusion {
		assert.Equal(t, 32.0, row[0]+row[1])
	}
	return diag
}

func TestKru2008_DiagonalDominates(t *testing.T) {
	if testing.Short() {
		t.Skip("fits 128 models")
	}
	informative := modsel(t, "kru2008")
	c := informative.Confusion
	assert.Greater(t, c[0][0], c[0][1], "rw row %v", c[0])
	assert.Greater(t, c[1][1], c[1][0], "hybrid row %v", c[1])

	null := modsel(t, "kru2008_null")
	assert.LessOrEqual(t, null.AvgAcc, 0.75, "confusion %v", null.Confusion)
	assert.Less(t, null.AvgAcc, informative.AvgAcc)
}
