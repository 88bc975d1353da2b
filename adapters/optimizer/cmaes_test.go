package optimizer

import (
	"context"
	"errors"
	"testing"

	"assocdesign/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bowl(ctx context.Context, x []float64) (float64, error) {
	dx, dy := x[0]-3, x[1]-7
	return dx*dx + dy*dy, nil
}

func request(seed uint64) ports.OptimizationRequest {
	return ports.OptimizationRequest{
		Bounds:         ports.Bounds{Lower: []float64{0, 0}, Upper: []float64{10, 10}},
		MaxEvaluations: 400,
		Seed:           seed,
	}
}

func TestCMAES_FindsMinimum(t *testing.T) {
	res, err := NewCMAES(nil).Minimize(context.Background(), bowl, request(1))
	require.NoError(t, err)
	assert.Less(t, res.Loss, 0.05)
	assert.InDelta(t, 3, res.X[0], 0.25)
	assert.InDelta(t, 7, res.X[1], 0.25)
	assert.LessOrEqual(t, res.Evaluations, 400+8)
	require.Len(t, res.History, res.Evaluations)
	last := res.History[len(res.History)-1]
	assert.Equal(t, res.Loss, last.Best)
	for _, step := range res.History {
		assert.GreaterOrEqual(t, step.X[0], 0.0)
		assert.LessOrEqual(t, step.X[1], 10.0)
	}
}

func TestCMAES_Reproducible(t *testing.T) {
	a, err := NewCMAES(nil).Minimize(context.Background(), bowl, request(5))
	require.NoError(t, err)
	b, err := NewCMAES(nil).Minimize(context.Background(), bowl, request(5))
	require.NoError(t, err)
	assert.Equal(t, a.X, b.X)
	assert.Equal(t, a.Loss, b.Loss)
}

func TestCMAES_ObjectiveError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	obj := func(ctx context.Context, x []float64) (float64, error) {
		calls++
		if calls == 3 {
			return 0, boom
		}
		return bowl(ctx, x)
	}
	_, err := NewCMAES(nil).Minimize(context.Background(), obj, request(1))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestCMAES_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCMAES(nil).Minimize(ctx, bowl, request(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCMAES_BadBounds(t *testing.T) {
	_, err := NewCMAES(nil).Minimize(context.Background(), bowl, ports.OptimizationRequest{})
	assert.Error(t, err)

	req := request(1)
	req.Bounds.Upper[0] = 0
	_, err = NewCMAES(nil).Minimize(context.Background(), bowl, req)
	assert.Error(t, err)
}

func TestNormalizeRoundTrip(t *testing.T) {
	b := ports.Bounds{Lower: []float64{-2, 10}, Upper: []float64{2, 20}}
	x := []float64{1, 12.5}
	assert.InDeltaSlice(t, x, denormalize(b, normalize(b, x)), 1e-12)
	assert.Equal(t, []float64{-2, 20}, denormalize(b, []float64{-0.5, 1.5}))
}
