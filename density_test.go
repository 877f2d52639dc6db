package rnd

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

func flatSmile(lo, hi, step, vol float64) []VolatilitySurfacePoint {
	points := []VolatilitySurfacePoint{}
	for k := lo; k <= hi+1e-9; k += step {
		points = append(points, VolatilitySurfacePoint{Strike: k, ImpliedVol: vol})
	}
	return points
}

func TestStrikeGrid(t *testing.T) {
	grid, err := NewStrikeGrid(60, 180, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 241, grid.Len())
	assert.Equal(t, 0.5, grid.Step())
	strikes := grid.Strikes()
	assert.Equal(t, 60.0, strikes[0])
	assert.InDelta(t, 180.0, strikes[len(strikes)-1], 1e-9)

	// The upper end is trimmed to keep the spacing exact.
	grid, err = NewStrikeGrid(10, 21, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 12, 14, 16, 18, 20}, grid.Strikes())

	_, err = NewStrikeGrid(1, 2, 0.6)
	assert.Error(t, err)
	_, err = NewStrikeGrid(10, 20, 0)
	assert.Error(t, err)
	_, err = NewStrikeGrid(20, 10, 1)
	assert.Error(t, err)

	grid, err = GridFromStrikes([]float64{95, 97.5, 100, 102.5})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, grid.Step(), 1e-12)

	_, err = GridFromStrikes([]float64{95, 97.5, 101, 102.5})
	assert.Error(t, err)
	_, err = GridFromStrikes([]float64{95, 97.5})
	assert.Error(t, err)
}

func flatDensityError(t *testing.T, step float64) float64 {
	const (
		spot     = 100.0
		rate     = 0.05
		maturity = 0.5
		sigma    = 0.25
	)
	curve, err := LinearSmoother{}.Fit(flatSmile(50, 200, 5, sigma))
	require.NoError(t, err)
	grid, err := NewStrikeGrid(60, 180, step)
	require.NoError(t, err)

	estimator := DensityEstimator{Spot: spot, Rate: rate, Maturity: maturity}
	density, err := estimator.EstimateFromCurve(curve, grid)
	require.NoError(t, err)
	require.Len(t, density.Points, grid.Len()-2)
	assert.Empty(t, density.Failures)
	assert.False(t, density.Unstable())
	assert.Equal(t, step, density.Step)

	assert.InDelta(t, 1.0, density.Mass(), 0.01)
	assert.InDelta(t, spot*math.Exp(rate*maturity), density.Mean(), 1.0)

	worst := 0.0
	for _, p := range density.Points {
		exact := LogNormalDensity(p.Strike, spot, rate, sigma, maturity)
		worst = math.Max(worst, math.Abs(p.Density-exact))
	}
	return worst
}

func TestFlatVolatilityGivesLogNormalDensity(t *testing.T) {
	fine := flatDensityError(t, 0.5)
	coarse := flatDensityError(t, 2)
	assert.Less(t, fine, 1e-4)
	assert.Less(t, fine, coarse)
}

func TestEstimateDefaultsToLowess(t *testing.T) {
	estimator := DensityEstimator{Spot: 100, Rate: 0.02, Maturity: 1}
	grid, err := NewStrikeGrid(70, 140, 1)
	require.NoError(t, err)
	density, err := estimator.Estimate(flatSmile(60, 150, 5, 0.3), grid)
	require.NoError(t, err)
	require.Len(t, density.Points, grid.Len()-2)
	for _, p := range density.Points {
		exact := LogNormalDensity(p.Strike, 100, 0.02, 0.3, 1)
		assert.InDelta(t, exact, p.Density, 1e-4, "K=%g", p.Strike)
	}
}

func TestNegativeDensityIsFlagged(t *testing.T) {
	points := flatSmile(85, 115, 5, 0.2)
	for ii := range points {
		if points[ii].Strike == 100 {
			points[ii].ImpliedVol = 0.6
		}
	}
	curve, err := LinearSmoother{}.Fit(points)
	require.NoError(t, err)
	grid, err := NewStrikeGrid(90, 110, 1)
	require.NoError(t, err)

	estimator := DensityEstimator{Spot: 100, Maturity: 0.5}
	density, err := estimator.EstimateFromCurve(curve, grid)
	require.NoError(t, err)
	assert.True(t, density.Unstable())

	found := false
	for _, p := range density.UnstablePoints() {
		assert.Less(t, p.Density, 0.0)
		found = found || p.Strike == 100
	}
	assert.True(t, found)
}

func TestGridStrikesOutsideTheCurveAreFailures(t *testing.T) {
	curve, err := LinearSmoother{}.Fit(flatSmile(90, 110, 5, 0.2))
	require.NoError(t, err)
	grid, err := NewStrikeGrid(80, 120, 1)
	require.NoError(t, err)

	estimator := DensityEstimator{Spot: 100, Rate: 0.01, Maturity: 0.25}
	density, err := estimator.EstimateFromCurve(curve, grid)
	require.NoError(t, err)
	assert.Len(t, density.Failures, 20)
	for _, failure := range density.Failures {
		assert.ErrorIs(t, failure.Err, ErrExtrapolation)
	}
	strikes := density.Strikes()
	require.Len(t, strikes, 19)
	assert.Equal(t, 91.0, strikes[0])
	assert.Equal(t, 109.0, strikes[len(strikes)-1])

	grid, err = NewStrikeGrid(200, 210, 1)
	require.NoError(t, err)
	density, err = estimator.EstimateFromCurve(curve, grid)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtrapolation)
	assert.Empty(t, density.Points)
}

func TestLogNormalDensityIntegratesToOne(t *testing.T) {
	xs := floats.Span(make([]float64, 4001), 1, 400)
	ys := make([]float64, len(xs))
	for ii, x := range xs {
		ys[ii] = LogNormalDensity(x, 100, 0.03, 0.3, 1)
	}
	assert.InDelta(t, 1.0, integrate.Trapezoidal(xs, ys), 1e-4)
	assert.Zero(t, LogNormalDensity(-1, 100, 0.03, 0.3, 1))
}
