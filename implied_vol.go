package rnd

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/glog"
)

const (
	kDefaultInitialGuess  = 0.30
	kDefaultMaxIterations = 200
	kDefaultTolerance     = 1e-4
	kDefaultVegaFloor     = 1e-8
	kDefaultMinVolatility = 1e-6
	kDefaultMaxVolatility = 10.0

	kMaxBisectionIterations = 1000
)

type SolverConfig struct {
	InitialGuess  float64 `yaml:"initial_guess"`
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
	// Vega below VegaFloor is treated as zero.
	VegaFloor float64 `yaml:"vega_floor"`
	// BisectionFallback brackets the root on [MinVolatility, MaxVolatility]
	// when the Newton update hits a degenerate derivative or runs out of
	// iterations. Newton iterates are also kept below MaxVolatility.
	BisectionFallback bool    `yaml:"bisection_fallback"`
	MinVolatility     float64 `yaml:"min_volatility"`
	MaxVolatility     float64 `yaml:"max_volatility"`
}

func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		InitialGuess:      kDefaultInitialGuess,
		MaxIterations:     kDefaultMaxIterations,
		Tolerance:         kDefaultTolerance,
		VegaFloor:         kDefaultVegaFloor,
		BisectionFallback: true,
		MinVolatility:     kDefaultMinVolatility,
		MaxVolatility:     kDefaultMaxVolatility,
	}
}

// withDefaults fills unset numeric fields.
func (self SolverConfig) withDefaults() SolverConfig {
	def := DefaultSolverConfig()
	if self.InitialGuess <= 0 {
		self.InitialGuess = def.InitialGuess
	}
	if self.MaxIterations <= 0 {
		self.MaxIterations = def.MaxIterations
	}
	if self.Tolerance <= 0 {
		self.Tolerance = def.Tolerance
	}
	if self.VegaFloor <= 0 {
		self.VegaFloor = def.VegaFloor
	}
	if self.MinVolatility <= 0 {
		self.MinVolatility = def.MinVolatility
	}
	if self.MaxVolatility <= self.MinVolatility {
		self.MaxVolatility = def.MaxVolatility
	}
	return self
}

// ImpliedVolSolver inverts the Black-Scholes call price with a damped
// Newton-Raphson iteration using the closed form vega as derivative.
type ImpliedVolSolver struct {
	cfg SolverConfig
}

func NewImpliedVolSolver(cfg SolverConfig) *ImpliedVolSolver {
	return &ImpliedVolSolver{cfg: cfg.withDefaults()}
}

func (self *ImpliedVolSolver) Config() SolverConfig {
	return self.cfg
}

func (self *ImpliedVolSolver) Solve(q OptionQuote) (float64, error) {
	return self.SolveWithGuess(q, self.cfg.InitialGuess)
}

// SolveWithGuess returns sigma such that the call price at sigma matches
// q.Price. It never returns an unconverged iterate: failures come back as
// DomainError, NonConvergenceError or DegenerateDerivativeError.
func (self *ImpliedVolSolver) SolveWithGuess(
	q OptionQuote,
	guess float64) (float64, error) {

	if !(q.Price > 0) {
		return 0, newDomainError("price", q.Price, "must be positive")
	}
	if !(guess > 0) {
		return 0, newDomainError("guess", guess, "must be positive")
	}
	// Validates spot, strike and maturity before iterating.
	if _, err := NewBlackScholes(q.Params(guess)); err != nil {
		return 0, err
	}

	sigma, err := self.newton(q, guess)
	if err == nil {
		return sigma, nil
	}

	lower, upper := CallBounds(q.Params(guess))
	if q.Price <= lower || q.Price >= upper {
		msg := fmt.Sprintf("outside no-arbitrage bounds [%g, %g]", lower, upper)
		glog.Warningf("Implied vol for K=%g: price %g %s (%s).",
			q.Strike, q.Price, msg, err)
		return 0, newDomainError("price", q.Price, msg)
	}

	if self.cfg.BisectionFallback &&
		(errors.Is(err, ErrDegenerateDerivative) || errors.Is(err, ErrNonConvergence)) {
		glog.V(2).Infof("Newton failed for K=%g (%s). Falling back to bisection.",
			q.Strike, err)
		return self.bisect(q)
	}
	return 0, err
}

func (self *ImpliedVolSolver) newton(
	q OptionQuote,
	sigma float64) (float64, error) {

	tol := self.cfg.Tolerance
	residual := math.Inf(1)
	for ii := 0; ii < self.cfg.MaxIterations; ii++ {
		bs, err := NewBlackScholes(q.Params(sigma))
		if err != nil {
			return 0, err
		}

		vega := bs.Vega()
		if !(vega >= self.cfg.VegaFloor) {
			return 0, &DegenerateDerivativeError{
				Iteration:  ii,
				Volatility: sigma,
				Vega:       vega,
			}
		}

		next := sigma - (bs.CallPrice()-q.Price)/vega
		damped := false
		if !(next > 0) {
			// Overshoot below zero. Halve instead of leaving the domain.
			next = sigma / 2
			damped = true
		} else if next > self.cfg.MaxVolatility {
			// Far above the cap vega vanishes and the iteration stalls.
			next = (sigma + self.cfg.MaxVolatility) / 2
			damped = true
		}
		glog.V(3).Infof("newton K=%g iter=%d sigma=%g next=%g vega=%g",
			q.Strike, ii, sigma, next, vega)

		if !damped && math.Abs(next-sigma) < tol {
			return next, nil
		}

		price, err := CallPrice(q.Params(next))
		if err != nil {
			return 0, err
		}
		residual = price - q.Price
		if math.Abs(residual) < tol {
			return next, nil
		}
		sigma = next
	}

	return 0, &NonConvergenceError{
		Iterations: self.cfg.MaxIterations,
		Last:       sigma,
		Residual:   residual,
	}
}

// bisect brackets the root between the configured volatility limits. Call
// prices are increasing in sigma so the bracket always shrinks towards it.
func (self *ImpliedVolSolver) bisect(q OptionQuote) (float64, error) {
	tol := self.cfg.Tolerance
	lowerBound := self.cfg.MinVolatility
	upperBound := self.cfg.MaxVolatility

	lowPrice, err := CallPrice(q.Params(lowerBound))
	if err != nil {
		return 0, err
	}
	highPrice, err := CallPrice(q.Params(upperBound))
	if err != nil {
		return 0, err
	}
	if q.Price < lowPrice || q.Price > highPrice {
		return 0, &NonConvergenceError{
			Iterations: 0,
			Last:       lowerBound,
			Residual:   lowPrice - q.Price,
		}
	}

	iv := (lowerBound + upperBound) / 2
	residual := math.Inf(1)
	for ii := 0; ii < kMaxBisectionIterations; ii++ {
		price, err := CallPrice(q.Params(iv))
		if err != nil {
			return 0, err
		}

		residual = price - q.Price
		if math.Abs(residual) < tol || upperBound-lowerBound < tol {
			return iv, nil
		}

		if price < q.Price {
			lowerBound = iv
		} else {
			upperBound = iv
		}
		iv = (lowerBound + upperBound) / 2
	}

	return 0, &NonConvergenceError{
		Iterations: kMaxBisectionIterations,
		Last:       iv,
		Residual:   residual,
	}
}

// SolveResult is the outcome of solving one quote of a batch.
type SolveResult struct {
	Quote      OptionQuote
	Volatility float64
	Err        error
}

func (self SolveResult) Ok() bool {
	return self.Err == nil
}

// SolveBatch solves every quote independently. A failing quote is recorded
// in its result and does not stop the others.
func (self *ImpliedVolSolver) SolveBatch(quotes []OptionQuote) []SolveResult {
	results := make([]SolveResult, len(quotes))
	failed := 0
	for ii, q := range quotes {
		sigma, err := self.Solve(q)
		results[ii] = SolveResult{Quote: q, Volatility: sigma, Err: err}
		if err != nil {
			failed++
			glog.Warningf("Implied vol failed for K=%g price=%g: %s",
				q.Strike, q.Price, err)
		}
	}
	glog.V(1).Infof("Solved %d of %d quotes.", len(quotes)-failed, len(quotes))
	return results
}

// SurfacePoints keeps the successful results as strike-ordered points.
func SurfacePoints(results []SolveResult) []VolatilitySurfacePoint {
	points := []VolatilitySurfacePoint{}
	for _, res := range results {
		if !res.Ok() {
			continue
		}
		points = append(points, VolatilitySurfacePoint{
			Strike:     res.Quote.Strike,
			ImpliedVol: res.Volatility,
		})
	}
	return SortByStrike(points)
}
