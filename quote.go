package rnd

import "sort"

// OptionQuote is one observed European call price.
type OptionQuote struct {
	Spot     float64 /* S0 */
	Strike   float64 /* K */
	Maturity float64 /* T, years */
	Rate     float64 /* r */
	Dividend float64 /* d, continuous yield */
	Price    float64
}

// Params returns the pricing inputs of the quote at the given volatility.
func (self OptionQuote) Params(volatility float64) PricingParams {
	return PricingParams{
		Spot:       self.Spot,
		Strike:     self.Strike,
		Volatility: volatility,
		Rate:       self.Rate,
		Maturity:   self.Maturity,
		Dividend:   self.Dividend,
	}
}

// VolatilitySurfacePoint pairs a strike with the volatility implied by the
// quote observed at that strike.
type VolatilitySurfacePoint struct {
	Strike     float64
	ImpliedVol float64
}

// SortByStrike returns a strike-ordered copy of points.
func SortByStrike(points []VolatilitySurfacePoint) []VolatilitySurfacePoint {
	sorted := make([]VolatilitySurfacePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Strike < sorted[j].Strike
	})
	return sorted
}

// Strikes and Vols split points into parallel slices.
func Strikes(points []VolatilitySurfacePoint) []float64 {
	out := make([]float64, len(points))
	for ii, p := range points {
		out[ii] = p.Strike
	}
	return out
}

func Vols(points []VolatilitySurfacePoint) []float64 {
	out := make([]float64, len(points))
	for ii, p := range points {
		out[ii] = p.ImpliedVol
	}
	return out
}
