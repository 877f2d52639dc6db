package rnd

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/glog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat/distuv"
)

const kGridSpacingTolerance = 1e-9

// StrikeGrid is an evenly spaced, increasing sequence of strikes.
type StrikeGrid struct {
	strikes []float64
	step    float64
}

// NewStrikeGrid lays strikes lo, lo+step, ... up to hi. The last strike is
// the largest one not above hi, so the spacing is exactly step.
func NewStrikeGrid(lo, hi, step float64) (StrikeGrid, error) {
	if !(step > 0) || !(hi > lo) || !(lo > 0) {
		msg := fmt.Sprintf("Invalid strike grid lo=%g hi=%g step=%g.", lo, hi, step)
		glog.Error(msg)
		return StrikeGrid{}, errors.New(msg)
	}
	n := int(math.Floor((hi-lo)/step+kGridSpacingTolerance)) + 1
	if n < 3 {
		msg := fmt.Sprintf("Strike grid lo=%g hi=%g step=%g has %d points, "+
			"at least 3 are needed.", lo, hi, step, n)
		glog.Error(msg)
		return StrikeGrid{}, errors.New(msg)
	}
	strikes := floats.Span(make([]float64, n), lo, lo+float64(n-1)*step)
	return StrikeGrid{strikes: strikes, step: step}, nil
}

// GridFromStrikes checks that strikes are evenly spaced and increasing and
// takes the spacing from the strikes themselves.
func GridFromStrikes(strikes []float64) (StrikeGrid, error) {
	if len(strikes) < 3 {
		msg := fmt.Sprintf("Strike grid has %d points, at least 3 are needed.",
			len(strikes))
		glog.Error(msg)
		return StrikeGrid{}, errors.New(msg)
	}
	n := len(strikes)
	step := (strikes[n-1] - strikes[0]) / float64(n-1)
	if !(step > 0) || !(strikes[0] > 0) {
		msg := fmt.Sprintf("Strike grid must be positive and increasing, "+
			"got %g..%g.", strikes[0], strikes[n-1])
		glog.Error(msg)
		return StrikeGrid{}, errors.New(msg)
	}
	for ii := 1; ii < n; ii++ {
		if math.Abs(strikes[ii]-strikes[ii-1]-step) > kGridSpacingTolerance*step*float64(n) {
			msg := fmt.Sprintf("Strike grid is not evenly spaced at %g.", strikes[ii])
			glog.Error(msg)
			return StrikeGrid{}, errors.New(msg)
		}
	}
	grid := StrikeGrid{strikes: make([]float64, n), step: step}
	copy(grid.strikes, strikes)
	return grid, nil
}

func (self StrikeGrid) Strikes() []float64 {
	out := make([]float64, len(self.strikes))
	copy(out, self.strikes)
	return out
}

// Step is the spacing used as delta in the finite difference.
func (self StrikeGrid) Step() float64 { return self.step }
func (self StrikeGrid) Len() int { return len(self.strikes) }

// DensityPoint is one interior grid point of an implied density. Unstable
// marks a negative estimate, which is numerical noise or an arbitrageable
// smile rather than a density.
type DensityPoint struct {
	Strike   float64
	Density  float64
	Unstable bool
}

// GridFailure records a grid strike that could not be priced.
type GridFailure struct {
	Strike float64
	Err    error
}

// ImpliedDensityCurve holds the interior points of the estimate, ordered by
// strike. Grid boundaries and neighbours of failed strikes are omitted.
type ImpliedDensityCurve struct {
	Step     float64
	Points   []DensityPoint
	Failures []GridFailure
}

func (self *ImpliedDensityCurve) Strikes() []float64 {
	out := make([]float64, len(self.Points))
	for ii, p := range self.Points {
		out[ii] = p.Strike
	}
	return out
}

func (self *ImpliedDensityCurve) Densities() []float64 {
	out := make([]float64, len(self.Points))
	for ii, p := range self.Points {
		out[ii] = p.Density
	}
	return out
}

func (self *ImpliedDensityCurve) Unstable() bool {
	return len(self.UnstablePoints()) > 0
}

func (self *ImpliedDensityCurve) UnstablePoints() []DensityPoint {
	unstable := []DensityPoint{}
	for _, p := range self.Points {
		if p.Unstable {
			unstable = append(unstable, p)
		}
	}
	return unstable
}

// Mass integrates the density over the estimated strikes.
func (self *ImpliedDensityCurve) Mass() float64 {
	if len(self.Points) < 2 {
		return 0
	}
	return integrate.Trapezoidal(self.Strikes(), self.Densities())
}

// Mean is the first moment of the density normalised by its mass.
func (self *ImpliedDensityCurve) Mean() float64 {
	mass := self.Mass()
	if mass == 0 {
		return math.NaN()
	}
	strikes := self.Strikes()
	weighted := self.Densities()
	for ii := range weighted {
		weighted[ii] *= strikes[ii]
	}
	return integrate.Trapezoidal(strikes, weighted) / mass
}

// DensityEstimator turns a smoothed implied volatility curve into a
// Breeden-Litzenberger density of the terminal price:
//
//	g(K_i) = e^{rT} (C_{i-1} + C_{i+1} - 2 C_i) / delta^2
type DensityEstimator struct {
	Spot     float64
	Rate     float64
	Maturity float64
	Dividend float64
	// Smoother defaults to a LowessSmoother.
	Smoother Smoother
}

func (self *DensityEstimator) Estimate(
	points []VolatilitySurfacePoint,
	grid StrikeGrid) (*ImpliedDensityCurve, error) {

	smoother := self.Smoother
	if smoother == nil {
		smoother = NewLowessSmoother()
	}
	curve, err := smoother.Fit(points)
	if err != nil {
		return nil, err
	}
	return self.EstimateFromCurve(curve, grid)
}

// EstimateFromCurve reprices calls on grid at the curve's volatilities and
// differentiates them twice. Strikes outside the curve's domain or failing
// to price are collected in Failures.
func (self *DensityEstimator) EstimateFromCurve(
	curve VolCurve,
	grid StrikeGrid) (*ImpliedDensityCurve, error) {

	strikes := grid.strikes
	delta := grid.step
	n := len(strikes)
	if n < 3 {
		msg := fmt.Sprintf("Strike grid has %d points, at least 3 are needed.", n)
		glog.Error(msg)
		return nil, errors.New(msg)
	}

	calls := make([]float64, n)
	priced := make([]bool, n)
	result := &ImpliedDensityCurve{Step: delta}
	for ii, strike := range strikes {
		vol, err := curve.At(strike)
		if err == nil {
			calls[ii], err = CallPrice(PricingParams{
				Spot:       self.Spot,
				Strike:     strike,
				Volatility: vol,
				Rate:       self.Rate,
				Maturity:   self.Maturity,
				Dividend:   self.Dividend,
			})
		}
		if err != nil {
			result.Failures = append(result.Failures,
				GridFailure{Strike: strike, Err: err})
			continue
		}
		priced[ii] = true
	}

	growth := math.Exp(self.Rate * self.Maturity)
	for ii := 1; ii < n-1; ii++ {
		if !priced[ii-1] || !priced[ii] || !priced[ii+1] {
			continue
		}
		g := growth * (calls[ii-1] + calls[ii+1] - 2*calls[ii]) / (delta * delta)
		result.Points = append(result.Points, DensityPoint{
			Strike:   strikes[ii],
			Density:  g,
			Unstable: g < 0,
		})
	}

	if len(result.Failures) > 0 {
		glog.Warningf("Density estimate skipped %d of %d grid strikes. First: %s",
			len(result.Failures), n, result.Failures[0].Err)
	}
	if len(result.Points) == 0 {
		msg := fmt.Sprintf("No interior grid strike could be estimated "+
			"(%d failures).", len(result.Failures))
		glog.Error(msg)
		if len(result.Failures) > 0 {
			return result, fmt.Errorf("%s: %w", msg, result.Failures[0].Err)
		}
		return result, errors.New(msg)
	}
	if unstable := result.UnstablePoints(); len(unstable) > 0 {
		glog.Warningf("Density estimate has %d negative points, first at K=%g.",
			len(unstable), unstable[0].Strike)
	}
	return result, nil
}

// LogNormalDensity is the density of S_T at strike when log S_T is normal
// with mean log(spot)+(drift-sigma^2/2)T and deviation sigma*sqrt(T).
func LogNormalDensity(strike, spot, drift, sigma, maturity float64) float64 {
	dist := distuv.LogNormal{
		Mu:    math.Log(spot) + (drift-sigma*sigma/2)*maturity,
		Sigma: sigma * math.Sqrt(maturity),
	}
	return dist.Prob(strike)
}
