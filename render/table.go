package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/joshi-prasad/rnd"
)

// PrintSmileTable prints one row per solved quote. Failed quotes show their
// error in red, the strike closest to spot is starred.
func PrintSmileTable(w io.Writer, spot float64, results []rnd.SolveResult) {
	fmt.Fprintf(w, "%-2s %-10s %-10s %-10s %s\n",
		"", "Strike", "Price", "IV", "Status")

	okColor := color.New(color.FgGreen).SprintFunc()
	itmColor := color.New(color.FgYellow).SprintFunc()
	otmColor := color.New(color.FgBlue).SprintFunc()
	errColor := color.New(color.FgRed).SprintFunc()

	atm := -1
	for ii, res := range results {
		if atm < 0 || absDiff(res.Quote.Strike, spot) <
			absDiff(results[atm].Quote.Strike, spot) {
			atm = ii
		}
	}

	for ii, res := range results {
		atmChar := ' '
		if ii == atm {
			atmChar = '*'
		}
		strikeColor := otmColor
		if res.Quote.Strike < spot {
			strikeColor = itmColor
		}
		strike := strikeColor(fmt.Sprintf("%-10.2f", res.Quote.Strike))
		price := fmt.Sprintf("%-10.4f", res.Quote.Price)
		if !res.Ok() {
			fmt.Fprintf(w, "%-2c %s %s %-10s %s\n",
				atmChar, strike, price, "-", errColor(res.Err.Error()))
			continue
		}
		fmt.Fprintf(w, "%-2c %s %s %-10.4f %s\n",
			atmChar, strike, price, res.Volatility, okColor("ok"))
	}
}

// PrintDensityTable prints the density estimate. Negative points are red,
// strikes that could not be priced yellow.
func PrintDensityTable(w io.Writer, density *rnd.ImpliedDensityCurve) {
	fmt.Fprintf(w, "%-10s %-14s\n", "Strike", "Density")

	stableColor := color.New(color.FgGreen).SprintFunc()
	unstableColor := color.New(color.FgRed).SprintFunc()
	failedColor := color.New(color.FgYellow).SprintFunc()
	for _, p := range density.Points {
		value := fmt.Sprintf("%-14.6g", p.Density)
		if p.Unstable {
			fmt.Fprintf(w, "%-10.2f %s\n", p.Strike, unstableColor(value))
			continue
		}
		fmt.Fprintf(w, "%-10.2f %s\n", p.Strike, stableColor(value))
	}
	for _, failure := range density.Failures {
		fmt.Fprintf(w, "%-10.2f %s\n", failure.Strike,
			failedColor(failure.Err.Error()))
	}
	fmt.Fprintf(w, "mass=%.6f mean=%.4f unstable=%d\n",
		density.Mass(), density.Mean(), len(density.UnstablePoints()))
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
