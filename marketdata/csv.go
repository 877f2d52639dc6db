package marketdata

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/gocarina/gocsv"
	"github.com/golang/glog"
)

// PriceBar is one row of a daily price history export.
type PriceBar struct {
	Date     string  `csv:"Date"`
	Close    float64 `csv:"Close"`
	AdjClose float64 `csv:"Adj Close"`
}

// Price prefers the adjusted close when present.
func (self *PriceBar) Price() float64 {
	if self.AdjClose > 0 {
		return self.AdjClose
	}
	return self.Close
}

// OptionRecord is one listed call of an option chain export.
type OptionRecord struct {
	ContractSymbol    string  `csv:"contractSymbol"`
	Strike            float64 `csv:"strike"`
	LastPrice         float64 `csv:"lastPrice"`
	Bid               float64 `csv:"bid"`
	Ask               float64 `csv:"ask"`
	Volume            float64 `csv:"volume"`
	OpenInterest      float64 `csv:"openInterest"`
	ImpliedVolatility float64 `csv:"impliedVolatility"`
}

// Price is the bid/ask mid when both sides are quoted, else the last trade.
func (self *OptionRecord) Price() float64 {
	if self.Bid > 0 && self.Ask > 0 {
		return (self.Bid + self.Ask) / 2
	}
	return self.LastPrice
}

// LoadPriceHistory parses a Date/Close/Adj Close CSV and orders it by date.
func LoadPriceHistory(in io.Reader) ([]PriceBar, error) {
	bars := []PriceBar{}
	if err := gocsv.Unmarshal(in, &bars); err != nil {
		msg := fmt.Sprintf("Parsing price history failed with error=%s.", err)
		glog.Error(msg)
		return nil, errors.New(msg)
	}
	if len(bars) == 0 {
		return nil, errors.New("price history is empty")
	}
	// ISO dates order lexically.
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date < bars[j].Date
	})
	glog.V(1).Infof("Loaded %d price bars %s..%s.", len(bars), bars[0].Date,
		bars[len(bars)-1].Date)
	return bars, nil
}

// Closes extracts the price series consumed by the drift/volatility
// estimator.
func Closes(bars []PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for ii := range bars {
		closes[ii] = bars[ii].Price()
	}
	return closes
}

// LoadOptionQuotes parses an option chain CSV. Rows without a strike are
// dropped.
func LoadOptionQuotes(in io.Reader) ([]OptionRecord, error) {
	rows := []OptionRecord{}
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		msg := fmt.Sprintf("Parsing option quotes failed with error=%s.", err)
		glog.Error(msg)
		return nil, errors.New(msg)
	}
	records := []OptionRecord{}
	for _, row := range rows {
		if row.Strike <= 0 {
			glog.Info(fmt.Sprintf("Skipping option row %q without strike.",
				row.ContractSymbol))
			continue
		}
		records = append(records, row)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Strike < records[j].Strike
	})
	return records, nil
}
