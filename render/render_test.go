package render

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joshi-prasad/rnd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDensity() *rnd.ImpliedDensityCurve {
	return &rnd.ImpliedDensityCurve{
		Step: 1,
		Points: []rnd.DensityPoint{
			{Strike: 99, Density: 0.02},
			{Strike: 100, Density: -0.001, Unstable: true},
			{Strike: 101, Density: 0.018},
		},
		Failures: []rnd.GridFailure{
			{Strike: 130, Err: &rnd.ExtrapolationError{Strike: 130, Lo: 90, Hi: 120}},
		},
	}
}

func testResults() []rnd.SolveResult {
	return []rnd.SolveResult{
		{Quote: rnd.OptionQuote{Strike: 28, Price: 3}, Volatility: 0.21},
		{Quote: rnd.OptionQuote{Strike: 30, Price: 1.4}, Volatility: 0.19},
		{Quote: rnd.OptionQuote{Strike: 32, Price: 40},
			Err: errors.New("domain error: price=40 outside bounds")},
	}
}

func TestPrintSmileTable(t *testing.T) {
	var buf bytes.Buffer
	PrintSmileTable(&buf, 30.2, testResults())
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Strike")
	assert.Contains(t, lines[1], "0.2100")
	assert.True(t, strings.HasPrefix(lines[2], "*"))
	assert.Contains(t, lines[3], "outside bounds")
}

func TestPrintDensityTable(t *testing.T) {
	var buf bytes.Buffer
	PrintDensityTable(&buf, testDensity())
	out := buf.String()
	assert.Contains(t, out, "-0.001")
	assert.Contains(t, out, "not in [90, 120]")
	assert.Contains(t, out, "unstable=1")
}

func TestWriteDensityCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDensityCSV(&buf, testDensity()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "strike,density,unstable", lines[0])
	assert.Equal(t, "100,-0.001,true", lines[2])
}

func TestWriteSmileCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSmileCSV(&buf, testResults()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "strike,price,implied_vol,error", lines[0])
	assert.True(t, strings.HasPrefix(lines[3], "32,40,0,"))
}

func TestAppendDensityCSVWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "density.csv")
	require.NoError(t, AppendDensityCSV(path, testDensity()))
	require.NoError(t, AppendDensityCSV(path, testDensity()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 7)
	assert.Equal(t, 1, strings.Count(string(data), "strike,density"))
}

func TestRenderDensityChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderDensityChart(&buf, "SPY implied density", testDensity()))
	html := buf.String()
	assert.Contains(t, html, "SPY implied density")
	assert.Contains(t, html, "negative")

	assert.Error(t, RenderDensityChart(&buf, "empty", &rnd.ImpliedDensityCurve{}))
}

func TestSavePlots(t *testing.T) {
	dir := t.TempDir()
	points := []rnd.VolatilitySurfacePoint{
		{Strike: 26, ImpliedVol: 0.24},
		{Strike: 28, ImpliedVol: 0.21},
		{Strike: 30, ImpliedVol: 0.2},
		{Strike: 32, ImpliedVol: 0.205},
	}
	curve, err := rnd.LinearSmoother{}.Fit(points)
	require.NoError(t, err)
	grid, err := rnd.NewStrikeGrid(24, 34, 0.5)
	require.NoError(t, err)

	smile := filepath.Join(dir, "smile.png")
	require.NoError(t, SaveSmilePlot(smile, points, curve, grid.Strikes()))
	assert.FileExists(t, smile)

	density := filepath.Join(dir, "density.png")
	require.NoError(t, SaveDensityPlot(density, testDensity(), func(k float64) float64 {
		return rnd.LogNormalDensity(k, 100, 0.01, 0.2, 0.5)
	}))
	assert.FileExists(t, density)

	params := rnd.SimulationParams{Spot: 30, Drift: 0.05, Volatility: 0.2,
		Maturity: 1, Steps: 20, Paths: 200}
	batch, err := rnd.NewPathSimulator(params, 9).Simulate()
	require.NoError(t, err)
	hist := filepath.Join(dir, "terminal.png")
	require.NoError(t, SaveTerminalHistogram(hist, batch))
	assert.FileExists(t, hist)

	assert.Error(t, SaveSmilePlot(smile, nil, nil, nil))
	assert.Error(t, SaveTerminalHistogram(hist, &rnd.SimulationBatch{}))
}
