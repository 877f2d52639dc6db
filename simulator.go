package rnd

import (
	"math"

	"github.com/golang/glog"
	"github.com/montanaflynn/stats"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// SimulationParams describe a discretised geometric Brownian motion.
type SimulationParams struct {
	Spot       float64 `yaml:"spot"`       /* S0 */
	Drift      float64 `yaml:"drift"`      /* mu */
	Volatility float64 `yaml:"volatility"` /* sigma */
	Maturity   float64 `yaml:"maturity"`   /* T */
	Steps      int     `yaml:"steps"`      /* n */
	Paths      int     `yaml:"paths"`      /* Nsim */
}

func (self SimulationParams) Validate() error {
	switch {
	case !(self.Spot > 0):
		return newDomainError("spot", self.Spot, "must be positive")
	case !(self.Volatility > 0):
		return newDomainError("volatility", self.Volatility, "must be positive")
	case !(self.Maturity > 0):
		return newDomainError("maturity", self.Maturity, "must be positive")
	case self.Steps < 1:
		return newDomainError("steps", float64(self.Steps), "must be at least 1")
	case self.Paths < 1:
		return newDomainError("paths", float64(self.Paths), "must be at least 1")
	case math.IsNaN(self.Drift):
		return newDomainError("drift", self.Drift, "must be a number")
	}
	return nil
}

// PricePath holds S[0..n] of one simulated path.
type PricePath []float64

func (self PricePath) Terminal() float64 {
	return self[len(self)-1]
}

// SimulatePath draws one path from src:
//
//	S[i+1] = S[i] * exp((mu - sigma^2/2)*dt + sigma*sqrt(dt)*Z)
//
// The caller owns src.
func SimulatePath(p SimulationParams, src rand.Source) (PricePath, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return simulatePath(p, src), nil
}

func simulatePath(p SimulationParams, src rand.Source) PricePath {
	dt := p.Maturity / float64(p.Steps)
	drift := (p.Drift - p.Volatility*p.Volatility/2) * dt
	diffusion := p.Volatility * math.Sqrt(dt)
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	path := make(PricePath, p.Steps+1)
	path[0] = p.Spot
	for ii := 0; ii < p.Steps; ii++ {
		path[ii+1] = path[ii] * math.Exp(drift+diffusion*normal.Rand())
	}
	return path
}

// PathSimulator generates independent paths. Path i always draws from its
// own source seeded from (seed, i), so a batch depends only on the seed and
// not on the number of workers.
type PathSimulator struct {
	params  SimulationParams
	seed    uint64
	workers int
}

func NewPathSimulator(params SimulationParams, seed uint64) *PathSimulator {
	return &PathSimulator{params: params, seed: seed, workers: 1}
}

// SetWorkers sets how many goroutines generate paths. Values below one are
// treated as one.
func (self *PathSimulator) SetWorkers(workers int) {
	if workers < 1 {
		workers = 1
	}
	self.workers = workers
}

func (self *PathSimulator) pathSource(index int) rand.Source {
	// splitmix64 style spreading keeps neighbouring seeds apart.
	z := self.seed + uint64(index+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return rand.NewSource(z ^ (z >> 31))
}

func (self *PathSimulator) Simulate() (*SimulationBatch, error) {
	if err := self.params.Validate(); err != nil {
		glog.Error("Invalid simulation parameters. ", err)
		return nil, err
	}

	paths := make([]PricePath, self.params.Paths)
	var group errgroup.Group
	group.SetLimit(self.workers)
	for ii := range paths {
		ii := ii
		group.Go(func() error {
			paths[ii] = simulatePath(self.params, self.pathSource(ii))
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	glog.V(1).Infof("Simulated %d paths of %d steps (seed=%d, workers=%d).",
		self.params.Paths, self.params.Steps, self.seed, self.workers)
	return &SimulationBatch{Params: self.params, Paths: paths}, nil
}

// SimulationBatch is a set of paths sharing the same parameters.
type SimulationBatch struct {
	Params SimulationParams
	Paths  []PricePath
}

func (self *SimulationBatch) TerminalValues() []float64 {
	values := make([]float64, len(self.Paths))
	for ii, path := range self.Paths {
		values[ii] = path.Terminal()
	}
	return values
}

func (self *SimulationBatch) payoffs(strike float64) []float64 {
	payoffs := make([]float64, len(self.Paths))
	for ii, path := range self.Paths {
		payoffs[ii] = MaxFloat(path.Terminal()-strike, 0)
	}
	return payoffs
}

// TerminalPayoffMean is the average of max(S[n] - strike, 0) over all paths.
func (self *SimulationBatch) TerminalPayoffMean(strike float64) float64 {
	return stat.Mean(self.payoffs(strike), nil)
}

func (self *SimulationBatch) DiscountedCallEstimate(strike, rate float64) float64 {
	return self.TerminalPayoffMean(strike) * math.Exp(-rate*self.Params.Maturity)
}

// DiscountedCallStdErr is the standard error of DiscountedCallEstimate.
func (self *SimulationBatch) DiscountedCallStdErr(strike, rate float64) float64 {
	payoffs := self.payoffs(strike)
	if len(payoffs) < 2 {
		return math.Inf(1)
	}
	_, std := stat.MeanStdDev(payoffs, nil)
	return stat.StdErr(std, float64(len(payoffs))) *
		math.Exp(-rate*self.Params.Maturity)
}

// ConfidenceBand returns the two sided normal confidence interval of the
// discounted call estimate at the given level, e.g. 0.95. A level outside
// (0, 1) gives NaN bounds.
func (self *SimulationBatch) ConfidenceBand(
	strike, rate, level float64) (lo, hi float64) {

	if !(level > 0 && level < 1) {
		glog.Warningf("Confidence level %g is not in (0, 1).", level)
		return math.NaN(), math.NaN()
	}
	estimate := self.DiscountedCallEstimate(strike, rate)
	z := distuv.UnitNormal.Quantile(0.5 + level/2)
	half := z * self.DiscountedCallStdErr(strike, rate)
	return estimate - half, estimate + half
}

// TerminalPercentile returns the pct-th percentile (0, 100] of the terminal
// prices.
func (self *SimulationBatch) TerminalPercentile(pct float64) (float64, error) {
	return stats.Percentile(stats.Float64Data(self.TerminalValues()), pct)
}
