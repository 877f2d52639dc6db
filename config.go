package rnd

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang/glog"
	"gopkg.in/yaml.v3"
)

type MarketConfig struct {
	Symbol   string  `yaml:"symbol"`
	Spot     float64 `yaml:"spot"`
	Rate     float64 `yaml:"rate"`
	Maturity float64 `yaml:"maturity"`
	Dividend float64 `yaml:"dividend"`
	// StrikeStep is the listing increment used to locate the ATM strike.
	StrikeStep float64 `yaml:"strike_step"`
	// AtmStrikes keeps this many strikes around ATM. Zero keeps all.
	AtmStrikes  int    `yaml:"atm_strikes"`
	QuotesFile  string `yaml:"quotes_file"`
	HistoryFile string `yaml:"history_file"`
	HistoryURL  string `yaml:"history_url"`
}

type SimulationConfig struct {
	SimulationParams `yaml:",inline"`

	Seed    uint64  `yaml:"seed"`
	Workers int     `yaml:"workers"`
	Strike  float64 `yaml:"strike"`
}

type DensityConfig struct {
	// Smoother is "lowess" or "linear".
	Smoother   string  `yaml:"smoother"`
	Fraction   float64 `yaml:"fraction"`
	Iterations int     `yaml:"iterations"`
	GridLo     float64 `yaml:"grid_lo"`
	GridHi     float64 `yaml:"grid_hi"`
	GridStep   float64 `yaml:"grid_step"`
}

// NewSmoother builds the configured smoothing strategy.
func (self DensityConfig) NewSmoother() (Smoother, error) {
	switch self.Smoother {
	case "", "lowess":
		smoother := NewLowessSmoother()
		if self.Fraction > 0 {
			smoother.Fraction = self.Fraction
		}
		if self.Iterations > 0 {
			smoother.Iterations = self.Iterations
		}
		return smoother, nil
	case "linear":
		return LinearSmoother{}, nil
	}
	msg := fmt.Sprintf("Unknown smoother %q.", self.Smoother)
	glog.Error(msg)
	return nil, errors.New(msg)
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

type Config struct {
	Market     MarketConfig     `yaml:"market"`
	Solver     SolverConfig     `yaml:"solver"`
	Simulation SimulationConfig `yaml:"simulation"`
	Density    DensityConfig    `yaml:"density"`
	Output     OutputConfig     `yaml:"output"`
}

// DefaultConfig reproduces the worked example: a 30 spot, 28 strike call
// with half a year to expiry.
func DefaultConfig() Config {
	return Config{
		Market: MarketConfig{
			Spot:       30,
			Rate:       0.025,
			Maturity:   0.5,
			StrikeStep: 0.5,
		},
		Solver: DefaultSolverConfig(),
		Simulation: SimulationConfig{
			SimulationParams: SimulationParams{
				Spot:       30,
				Drift:      0.08,
				Volatility: 0.15,
				Maturity:   2,
				Steps:      500,
				Paths:      1000,
			},
			Seed:    1,
			Workers: 4,
			Strike:  28,
		},
		Density: DensityConfig{
			Smoother:   "lowess",
			Fraction:   kDefaultLowessFraction,
			Iterations: kDefaultLowessIterations,
			GridStep:   0.5,
		},
		Output: OutputConfig{Dir: "out"},
	}
}

// LoadConfig reads a YAML file over DefaultConfig. Keys absent from the file
// keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Solver = cfg.Solver.withDefaults()
	return cfg, nil
}
