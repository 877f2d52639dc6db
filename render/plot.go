package render

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/golang/glog"
	"github.com/joshi-prasad/rnd"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const kHistogramBins = 40

var (
	kObservedColor = color.RGBA{R: 30, G: 90, B: 200, A: 255}
	kFittedColor   = color.RGBA{R: 220, G: 60, B: 40, A: 255}
	kRefColor      = color.RGBA{R: 40, G: 160, B: 70, A: 255}
)

func savePlot(p *plot.Plot, file string) error {
	if err := p.Save(8*vg.Inch, 5*vg.Inch, file); err != nil {
		msg := fmt.Sprintf("Saving plot %s failed with error=%s", file, err)
		glog.Error(msg)
		return errors.New(msg)
	}
	glog.Info("Wrote plot ", file)
	return nil
}

func toXYs(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for ii := range xs {
		pts[ii].X = xs[ii]
		pts[ii].Y = ys[ii]
	}
	return pts
}

// SaveSmilePlot draws the observed implied volatilities as points and, when
// curve is not nil, the fitted curve sampled over grid.
func SaveSmilePlot(
	file string,
	points []rnd.VolatilitySurfacePoint,
	curve rnd.VolCurve,
	grid []float64) error {

	if len(points) == 0 {
		return errors.New("no volatility points to plot")
	}
	p := plot.New()
	p.Title.Text = "Implied volatility smile"
	p.X.Label.Text = "Strike"
	p.Y.Label.Text = "Implied volatility"
	p.Add(plotter.NewGrid())

	sorted := rnd.SortByStrike(points)
	scatter, err := plotter.NewScatter(toXYs(rnd.Strikes(sorted), rnd.Vols(sorted)))
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Color = kObservedColor
	scatter.GlyphStyle.Radius = vg.Points(3)
	p.Add(scatter)
	p.Legend.Add("observed", scatter)

	if curve != nil {
		xs := []float64{}
		ys := []float64{}
		for _, strike := range grid {
			vol, err := curve.At(strike)
			if err != nil {
				continue
			}
			xs = append(xs, strike)
			ys = append(ys, vol)
		}
		if len(xs) > 1 {
			line, err := plotter.NewLine(toXYs(xs, ys))
			if err != nil {
				return err
			}
			line.LineStyle.Color = kFittedColor
			line.LineStyle.Width = vg.Points(2)
			p.Add(line)
			p.Legend.Add("smoothed", line)
		}
	}
	return savePlot(p, file)
}

// SaveDensityPlot draws an implied density. reference, when not nil, is
// overlaid as a function of strike.
func SaveDensityPlot(
	file string,
	density *rnd.ImpliedDensityCurve,
	reference func(float64) float64) error {

	if density == nil || len(density.Points) < 2 {
		return errors.New("density has fewer than 2 points to plot")
	}
	p := plot.New()
	p.Title.Text = "Risk-neutral density"
	p.X.Label.Text = "Strike"
	p.Y.Label.Text = "Density"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(toXYs(density.Strikes(), density.Densities()))
	if err != nil {
		return err
	}
	line.LineStyle.Color = kFittedColor
	line.LineStyle.Width = vg.Points(2)
	p.Add(line)
	p.Legend.Add("implied", line)

	if reference != nil {
		ref := plotter.NewFunction(reference)
		ref.Color = kRefColor
		ref.Width = vg.Points(1)
		ref.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(ref)
		p.Legend.Add("reference", ref)
		strikes := density.Strikes()
		p.X.Min = strikes[0]
		p.X.Max = strikes[len(strikes)-1]
	}
	return savePlot(p, file)
}

// SaveTerminalHistogram draws the normalised histogram of the simulated
// terminal prices.
func SaveTerminalHistogram(file string, batch *rnd.SimulationBatch) error {
	if batch == nil || len(batch.Paths) == 0 {
		return errors.New("no simulated paths to plot")
	}
	values := plotter.Values(batch.TerminalValues())
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Terminal prices (%d paths)", len(values))
	p.X.Label.Text = "S(T)"
	p.Y.Label.Text = "Density"

	bins := kHistogramBins
	if len(values) < bins {
		bins = len(values)
	}
	hist, err := plotter.NewHist(values, bins)
	if err != nil {
		return err
	}
	hist.Normalize(1)
	hist.FillColor = kObservedColor
	hist.LineStyle.Width = vg.Length(1)
	p.Add(hist)
	return savePlot(p, file)
}
