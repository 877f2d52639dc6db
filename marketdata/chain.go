package marketdata

import (
	"fmt"
	"math"
	"sort"

	"github.com/golang/glog"
	"github.com/joshi-prasad/rnd"
)

// strikeKey maps a strike to an integer number of hundredths so float
// strikes generated from a step still find their row.
func strikeKey(strike float64) int64 {
	return int64(math.Round(strike * 100))
}

// OptionChain is the call side of one expiry for one underlying.
type OptionChain struct {
	symbol          string
	expiryDate      string
	underlyingValue float64
	strikeStep      float64
	rows            map[int64]OptionRecord
}

func NewOptionChain(
	symbol string,
	expiryDate string,
	underlyingValue float64) *OptionChain {

	return &OptionChain{
		symbol:          symbol,
		expiryDate:      expiryDate,
		underlyingValue: underlyingValue,
		strikeStep:      1,
		rows:            make(map[int64]OptionRecord),
	}
}

func (self *OptionChain) Symbol() string { return self.symbol }
func (self *OptionChain) ExpiryDate() string { return self.expiryDate }
func (self *OptionChain) UnderlyingValue() float64 { return self.underlyingValue }
func (self *OptionChain) Len() int { return len(self.rows) }

func (self *OptionChain) SetStrikeStep(step float64) {
	if step <= 0 {
		glog.Warningf("Ignoring non-positive strike step %g.", step)
		return
	}
	self.strikeStep = step
}

func (self *OptionChain) SetRecords(records []OptionRecord) {
	for _, record := range records {
		self.rows[strikeKey(record.Strike)] = record
	}
}

func (self *OptionChain) AtmStrike() float64 {
	return rnd.RoundToStep(self.underlyingValue, self.strikeStep)
}

// GetAtmStrikes returns totalStrikes strikes centred on the ATM strike.
func (self *OptionChain) GetAtmStrikes(totalStrikes int) []float64 {
	strikes := make([]float64, totalStrikes)
	begin := self.AtmStrike() - float64(totalStrikes/2)*self.strikeStep
	for ii := 0; ii < totalStrikes; ii++ {
		strikes[ii] = rnd.RoundToStep(begin+float64(ii)*self.strikeStep,
			self.strikeStep)
	}
	return strikes
}

// ForStrikes returns a chain restricted to the listed strikes that exist.
func (self *OptionChain) ForStrikes(strikes []float64) *OptionChain {
	oc := NewOptionChain(self.symbol, self.expiryDate, self.underlyingValue)
	oc.SetStrikeStep(self.strikeStep)
	for _, strike := range strikes {
		if row, ok := self.rows[strikeKey(strike)]; ok {
			oc.rows[strikeKey(strike)] = row
		}
	}
	return oc
}

// Records returns the rows ordered by strike.
func (self *OptionChain) Records() []OptionRecord {
	records := make([]OptionRecord, 0, len(self.rows))
	for _, row := range self.rows {
		records = append(records, row)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Strike < records[j].Strike
	})
	return records
}

// Quotes converts rows with a positive price into solver inputs.
func (self *OptionChain) Quotes(
	rate float64,
	maturity float64,
	dividend float64) []rnd.OptionQuote {

	quotes := []rnd.OptionQuote{}
	for _, row := range self.Records() {
		price := row.Price()
		if price <= 0 {
			glog.Info(fmt.Sprintf("Skipping strike %g without a price.", row.Strike))
			continue
		}
		quotes = append(quotes, rnd.OptionQuote{
			Spot:     self.underlyingValue,
			Strike:   row.Strike,
			Maturity: maturity,
			Rate:     rate,
			Dividend: dividend,
			Price:    price,
		})
	}
	return quotes
}

// SurfacePoints uses the implied volatilities quoted by the data source.
func (self *OptionChain) SurfacePoints() []rnd.VolatilitySurfacePoint {
	points := []rnd.VolatilitySurfacePoint{}
	for _, row := range self.Records() {
		if row.ImpliedVolatility <= 0 {
			continue
		}
		points = append(points, rnd.VolatilitySurfacePoint{
			Strike:     row.Strike,
			ImpliedVol: row.ImpliedVolatility,
		})
	}
	return points
}
