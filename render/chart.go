package render

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/joshi-prasad/rnd"
)

// RenderDensityChart writes an interactive HTML line chart of the implied
// density. Unstable points are also drawn as a separate series so negative
// regions stand out.
func RenderDensityChart(
	w io.Writer,
	title string,
	density *rnd.ImpliedDensityCurve) error {

	if density == nil || len(density.Points) == 0 {
		return errors.New("density has no points to chart")
	}

	strikes := make([]string, len(density.Points))
	values := make([]opts.LineData, len(density.Points))
	unstable := make([]opts.LineData, len(density.Points))
	for ii, p := range density.Points {
		strikes[ii] = fmt.Sprintf("%g", p.Strike)
		values[ii] = opts.LineData{Value: p.Density}
		if p.Unstable {
			unstable[ii] = opts.LineData{Value: p.Density}
		} else {
			unstable[ii] = opts.LineData{Value: "-"}
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("delta=%g, mass=%.4f", density.Step, density.Mass()),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Strike"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Density"}),
	)
	line.SetXAxis(strikes).AddSeries("implied density", values)
	if density.Unstable() {
		line.AddSeries("negative", unstable)
	}
	return line.Render(w)
}
