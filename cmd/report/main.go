package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/joshi-prasad/rnd"
	"github.com/joshi-prasad/rnd/marketdata"
	"github.com/joshi-prasad/rnd/render"
)

var (
	configPath = flag.String("config", "", "YAML config file. Defaults are used when empty.")
	outDir     = flag.String("out", "", "Output directory, overrides output.dir.")
	noPlots    = flag.Bool("no-plots", false, "Skip PNG and HTML output.")
)

func main() {
	flag.Parse()
	flag.Set("alsologtostderr", "true")
	defer glog.Flush()

	cfg := rnd.DefaultConfig()
	if *configPath != "" {
		loaded, err := rnd.LoadConfig(*configPath)
		if err != nil {
			glog.Error("Failed to load config. ", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		glog.Error("Failed to create output directory. ", err)
		os.Exit(1)
	}

	if err := runDensity(cfg); err != nil {
		glog.Error("Density report failed. ", err)
		os.Exit(1)
	}
	if err := runSimulation(cfg); err != nil {
		glog.Error("Simulation report failed. ", err)
		os.Exit(1)
	}
}

func outPath(cfg rnd.Config, name string) string {
	return filepath.Join(cfg.Output.Dir, name)
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := write(file); err != nil {
		return err
	}
	glog.Info("Wrote ", path)
	return nil
}

// loadQuotes reads the configured option chain, or prices a synthetic smile
// around spot when no file is configured.
func loadQuotes(cfg rnd.Config) ([]rnd.OptionQuote, error) {
	market := cfg.Market
	if market.QuotesFile == "" {
		return syntheticQuotes(market)
	}

	file, err := os.Open(market.QuotesFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	records, err := marketdata.LoadOptionQuotes(file)
	if err != nil {
		return nil, err
	}

	chain := marketdata.NewOptionChain(market.Symbol, "", market.Spot)
	chain.SetStrikeStep(market.StrikeStep)
	chain.SetRecords(records)
	if market.AtmStrikes > 0 {
		chain = chain.ForStrikes(chain.GetAtmStrikes(market.AtmStrikes))
	}
	glog.Info(fmt.Sprintf("Using %d strikes around ATM %g.", chain.Len(),
		chain.AtmStrike()))
	return chain.Quotes(market.Rate, market.Maturity, market.Dividend), nil
}

func syntheticQuotes(market rnd.MarketConfig) ([]rnd.OptionQuote, error) {
	glog.Info("No quotes file configured, pricing a synthetic smile.")
	quotes := []rnd.OptionQuote{}
	for strike := 0.6 * market.Spot; strike <= 1.4*market.Spot; strike += market.StrikeStep {
		moneyness := strike/market.Spot - 1
		q := rnd.OptionQuote{
			Spot:     market.Spot,
			Strike:   rnd.RoundToStep(strike, market.StrikeStep),
			Maturity: market.Maturity,
			Rate:     market.Rate,
			Dividend: market.Dividend,
		}
		price, err := rnd.CallPrice(q.Params(0.22 - 0.1*moneyness + 0.4*moneyness*moneyness))
		if err != nil {
			return nil, err
		}
		q.Price = price
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func runDensity(cfg rnd.Config) error {
	quotes, err := loadQuotes(cfg)
	if err != nil {
		return err
	}
	solver := rnd.NewImpliedVolSolver(cfg.Solver)
	results := solver.SolveBatch(quotes)
	render.PrintSmileTable(os.Stdout, cfg.Market.Spot, results)
	if err := writeFile(outPath(cfg, "smile.csv"), func(w io.Writer) error {
		return render.WriteSmileCSV(w, results)
	}); err != nil {
		return err
	}

	points := rnd.SurfacePoints(results)
	smoother, err := cfg.Density.NewSmoother()
	if err != nil {
		return err
	}
	curve, err := smoother.Fit(points)
	if err != nil {
		return err
	}

	lo, hi := curve.Domain()
	if cfg.Density.GridLo > 0 {
		lo = cfg.Density.GridLo
	}
	if cfg.Density.GridHi > 0 {
		hi = cfg.Density.GridHi
	}
	grid, err := rnd.NewStrikeGrid(lo, hi, cfg.Density.GridStep)
	if err != nil {
		return err
	}

	estimator := rnd.DensityEstimator{
		Spot:     cfg.Market.Spot,
		Rate:     cfg.Market.Rate,
		Maturity: cfg.Market.Maturity,
		Dividend: cfg.Market.Dividend,
		Smoother: smoother,
	}
	density, err := estimator.EstimateFromCurve(curve, grid)
	if err != nil {
		return err
	}
	render.PrintDensityTable(os.Stdout, density)
	if err := writeFile(outPath(cfg, "density.csv"), func(w io.Writer) error {
		return render.WriteDensityCSV(w, density)
	}); err != nil {
		return err
	}

	if *noPlots {
		return nil
	}
	if err := render.SaveSmilePlot(outPath(cfg, "smile.png"), points, curve,
		grid.Strikes()); err != nil {
		return err
	}

	var reference func(float64) float64
	if atmVol, err := curve.At(cfg.Market.Spot); err == nil {
		reference = func(strike float64) float64 {
			return rnd.LogNormalDensity(strike, cfg.Market.Spot,
				cfg.Market.Rate-cfg.Market.Dividend, atmVol, cfg.Market.Maturity)
		}
	}
	if err := render.SaveDensityPlot(outPath(cfg, "density.png"), density,
		reference); err != nil {
		return err
	}
	return writeFile(outPath(cfg, "density.html"), func(w io.Writer) error {
		title := fmt.Sprintf("%s implied density", cfg.Market.Symbol)
		return render.RenderDensityChart(w, title, density)
	})
}

func loadHistory(market rnd.MarketConfig) ([]float64, error) {
	if market.HistoryURL != "" {
		bars, err := marketdata.NewFetcher().FetchPriceHistory(market.HistoryURL)
		if err != nil {
			return nil, err
		}
		return marketdata.Closes(bars), nil
	}
	file, err := os.Open(market.HistoryFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	bars, err := marketdata.LoadPriceHistory(file)
	if err != nil {
		return nil, err
	}
	return marketdata.Closes(bars), nil
}

func runSimulation(cfg rnd.Config) error {
	sim := cfg.Simulation
	params := sim.SimulationParams
	if cfg.Market.HistoryFile != "" || cfg.Market.HistoryURL != "" {
		closes, err := loadHistory(cfg.Market)
		if err != nil {
			return err
		}
		drift, vol, err := rnd.EstimateDriftVolatility(closes, 0)
		if err != nil {
			return err
		}
		glog.Info(fmt.Sprintf("Estimated drift=%.4f volatility=%.4f from %d closes.",
			drift, vol, len(closes)))
		params.Spot = closes[len(closes)-1]
		params.Drift = drift
		params.Volatility = vol
	}

	simulator := rnd.NewPathSimulator(params, sim.Seed)
	simulator.SetWorkers(sim.Workers)
	batch, err := simulator.Simulate()
	if err != nil {
		return err
	}

	estimate := batch.DiscountedCallEstimate(sim.Strike, params.Drift)
	lo, hi := batch.ConfidenceBand(sim.Strike, params.Drift, 0.95)
	analytic, err := rnd.CallPrice(rnd.PricingParams{
		Spot:       params.Spot,
		Strike:     sim.Strike,
		Volatility: params.Volatility,
		Rate:       params.Drift,
		Maturity:   params.Maturity,
	})
	if err != nil {
		return err
	}
	median, err := batch.TerminalPercentile(50)
	if err != nil {
		return err
	}
	fmt.Printf("Monte Carlo call K=%g: %.4f [%.4f, %.4f], Black-Scholes %.4f, "+
		"median S(T) %.4f\n", sim.Strike, estimate, lo, hi, analytic, median)

	if *noPlots {
		return nil
	}
	return render.SaveTerminalHistogram(outPath(cfg, "terminal.png"), batch)
}
