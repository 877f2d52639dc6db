package rnd

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/golang/glog"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

const (
	kDefaultLowessFraction   = 2.0 / 3.0
	kDefaultLowessIterations = 3
	kMinLowessPoints         = 3
)

// VolCurve is a fitted implied volatility curve. At fails with an
// ExtrapolationError outside Domain.
type VolCurve interface {
	At(strike float64) (float64, error)
	Domain() (lo, hi float64)
}

// Smoother fits a VolCurve to observed points.
type Smoother interface {
	Fit(points []VolatilitySurfacePoint) (VolCurve, error)
}

type domain struct {
	lo float64
	hi float64
}

func (self domain) Domain() (float64, float64) {
	return self.lo, self.hi
}

func (self domain) check(strike float64) error {
	if !(strike >= self.lo && strike <= self.hi) {
		return &ExtrapolationError{Strike: strike, Lo: self.lo, Hi: self.hi}
	}
	return nil
}

func distinctStrikes(points []VolatilitySurfacePoint) error {
	for ii := 1; ii < len(points); ii++ {
		if points[ii].Strike == points[ii-1].Strike {
			msg := fmt.Sprintf("Duplicate strike %g in volatility points.",
				points[ii].Strike)
			glog.Error(msg)
			return errors.New(msg)
		}
	}
	return nil
}

// LowessSmoother is a locally weighted linear regression with tricube
// distance weights and bisquare robustness iterations. The fitted curve is
// evaluated directly at the query strike rather than interpolated.
type LowessSmoother struct {
	// Fraction of the points used in each local fit.
	Fraction float64
	// Iterations of robust reweighting. Zero gives a plain local fit.
	Iterations int
}

func NewLowessSmoother() *LowessSmoother {
	return &LowessSmoother{
		Fraction:   kDefaultLowessFraction,
		Iterations: kDefaultLowessIterations,
	}
}

func (self *LowessSmoother) Fit(
	points []VolatilitySurfacePoint) (VolCurve, error) {

	if len(points) < kMinLowessPoints {
		msg := fmt.Sprintf("Lowess needs at least %d points, got %d.",
			kMinLowessPoints, len(points))
		glog.Error(msg)
		return nil, errors.New(msg)
	}
	if !(self.Fraction > 0 && self.Fraction <= 1) {
		msg := fmt.Sprintf("Lowess fraction %g must be in (0, 1].", self.Fraction)
		glog.Error(msg)
		return nil, errors.New(msg)
	}

	sorted := SortByStrike(points)
	if err := distinctStrikes(sorted); err != nil {
		return nil, err
	}

	n := len(sorted)
	span := int(math.Ceil(self.Fraction * float64(n)))
	if span < kMinLowessPoints {
		span = kMinLowessPoints
	}
	if span > n {
		span = n
	}

	curve := &lowessCurve{
		domain: domain{lo: sorted[0].Strike, hi: sorted[n-1].Strike},
		xs:     Strikes(sorted),
		ys:     Vols(sorted),
		robust: make([]float64, n),
		span:   span,
	}
	for ii := range curve.robust {
		curve.robust[ii] = 1
	}
	curve.reweight(self.Iterations)
	return curve, nil
}

type lowessCurve struct {
	domain
	xs     []float64
	ys     []float64
	robust []float64
	span   int
}

func (self *lowessCurve) At(strike float64) (float64, error) {
	if err := self.check(strike); err != nil {
		return 0, err
	}
	return self.fit(strike), nil
}

func (self *lowessCurve) reweight(iterations int) {
	n := len(self.xs)
	residuals := make([]float64, n)
	scale := 0.0
	for _, y := range self.ys {
		scale = MaxFloat(scale, math.Abs(y))
	}

	for it := 0; it < iterations; it++ {
		for ii, x := range self.xs {
			residuals[ii] = math.Abs(self.ys[ii] - self.fit(x))
		}
		median, err := stats.Median(stats.Float64Data(residuals))
		if err != nil || median <= 1e-12*scale {
			return
		}
		for ii, res := range residuals {
			u := res / (6 * median)
			if u >= 1 {
				self.robust[ii] = 0
				continue
			}
			self.robust[ii] = (1 - u*u) * (1 - u*u)
		}
	}
}

// fit runs one local weighted linear regression centred on x0.
func (self *lowessCurve) fit(x0 float64) float64 {
	n := len(self.xs)
	distances := make([]float64, n)
	for ii, x := range self.xs {
		distances[ii] = math.Abs(x - x0)
	}
	sortedDist := make([]float64, n)
	copy(sortedDist, distances)
	sort.Float64s(sortedDist)
	h := sortedDist[self.span-1]

	weights := make([]float64, n)
	positive := 0
	sum := 0.0
	for ii, d := range distances {
		w := 0.0
		if h > 0 && d < h {
			u := d / h
			c := 1 - u*u*u
			w = c * c * c
		} else if d == 0 {
			w = 1
		}
		w *= self.robust[ii]
		weights[ii] = w
		if w > 0 {
			positive++
			sum += w
		}
	}

	if positive == 0 {
		// Every neighbour was rejected as an outlier.
		return self.ys[nearestIndex(self.xs, x0)]
	}
	// Rescale so the weights sum to the number of active points. gonum's
	// weighted variance divides by sum(w)-1.
	for ii := range weights {
		weights[ii] *= float64(positive) / sum
	}
	if positive < 2 {
		return stat.Mean(self.ys, weights)
	}
	alpha, beta := stat.LinearRegression(self.xs, self.ys, weights, false)
	return alpha + beta*x0
}

func nearestIndex(xs []float64, x0 float64) int {
	best := 0
	for ii, x := range xs {
		if math.Abs(x-x0) < math.Abs(xs[best]-x0) {
			best = ii
		}
	}
	return best
}

// LinearSmoother interpolates linearly between neighbouring observations.
type LinearSmoother struct{}

func (LinearSmoother) Fit(points []VolatilitySurfacePoint) (VolCurve, error) {
	if len(points) < 2 {
		msg := fmt.Sprintf("Linear interpolation needs at least 2 points, got %d.",
			len(points))
		glog.Error(msg)
		return nil, errors.New(msg)
	}
	sorted := SortByStrike(points)
	if err := distinctStrikes(sorted); err != nil {
		return nil, err
	}
	return &linearCurve{
		domain: domain{lo: sorted[0].Strike, hi: sorted[len(sorted)-1].Strike},
		xs:     Strikes(sorted),
		ys:     Vols(sorted),
	}, nil
}

type linearCurve struct {
	domain
	xs []float64
	ys []float64
}

func (self *linearCurve) At(strike float64) (float64, error) {
	if err := self.check(strike); err != nil {
		return 0, err
	}
	ii := sort.SearchFloat64s(self.xs, strike)
	if self.xs[ii] == strike {
		return self.ys[ii], nil
	}
	x0, x1 := self.xs[ii-1], self.xs[ii]
	y0, y1 := self.ys[ii-1], self.ys[ii]
	return y0 + (y1-y0)*(strike-x0)/(x1-x0), nil
}
