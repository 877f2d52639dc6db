package render

import (
	"io"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/golang/glog"
	"github.com/joshi-prasad/rnd"
)

type DensityRow struct {
	Strike   float64 `csv:"strike"`
	Density  float64 `csv:"density"`
	Unstable bool    `csv:"unstable"`
}

type SmileRow struct {
	Strike     float64 `csv:"strike"`
	Price      float64 `csv:"price"`
	ImpliedVol float64 `csv:"implied_vol"`
	Error      string  `csv:"error"`
}

func densityRows(density *rnd.ImpliedDensityCurve) []*DensityRow {
	rows := make([]*DensityRow, len(density.Points))
	for ii, p := range density.Points {
		rows[ii] = &DensityRow{Strike: p.Strike, Density: p.Density, Unstable: p.Unstable}
	}
	return rows
}

// WriteDensityCSV writes the density points with a header row.
func WriteDensityCSV(w io.Writer, density *rnd.ImpliedDensityCurve) error {
	return gocsv.Marshal(densityRows(density), w)
}

// WriteSmileCSV writes one row per solve result, failures included.
func WriteSmileCSV(w io.Writer, results []rnd.SolveResult) error {
	rows := make([]*SmileRow, len(results))
	for ii, res := range results {
		row := &SmileRow{Strike: res.Quote.Strike, Price: res.Quote.Price}
		if res.Ok() {
			row.ImpliedVol = res.Volatility
		} else {
			row.Error = res.Err.Error()
		}
		rows[ii] = row
	}
	return gocsv.Marshal(rows, w)
}

// AppendDensityCSV appends the density to filePath, creating it if needed.
// The header is only written to an empty file.
func AppendDensityCSV(filePath string, density *rnd.ImpliedDensityCurve) error {
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		glog.Error("Opening ", filePath, " failed. ", err)
		return err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}
	rows := densityRows(density)
	if stat.Size() == 0 {
		return gocsv.Marshal(rows, file)
	}
	return gocsv.MarshalWithoutHeaders(rows, file)
}
