package rnd

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// PricingParams are the Black-Scholes inputs for a European option on an
// asset paying a continuous dividend yield.
type PricingParams struct {
	Spot       float64 /* S0 */
	Strike     float64 /* K */
	Volatility float64 /* sigma */
	Rate       float64 /* r */
	Maturity   float64 /* T, years */
	Dividend   float64 /* d */
}

// WithVolatility returns a copy of p at a different volatility.
func (self PricingParams) WithVolatility(volatility float64) PricingParams {
	self.Volatility = volatility
	return self
}

type OptionGreeks struct {
	Delta float64
	Gamma float64
	Theta float64 // per year
	Rho   float64
	Vega  float64 // per unit of volatility
}

type Greeks struct {
	Call OptionGreeks
	Put  OptionGreeks
}

// BlackScholes holds the intermediate terms of one evaluation of the
// model. It is built by NewBlackScholes and never mutated afterwards.
type BlackScholes struct {
	params PricingParams

	d1       float64
	d2       float64
	a        float64 // sigma * sqrt(T)
	sqrtT    float64
	deflater float64 // e^{-rT}
	carry    float64 // e^{-dT}
}

// NewBlackScholes validates p and precomputes d1 and d2. Non-positive spot,
// strike, volatility or maturity make d1 undefined and yield a DomainError.
func NewBlackScholes(p PricingParams) (*BlackScholes, error) {
	if err := validateParams(p); err != nil {
		return nil, err
	}
	bs := &BlackScholes{
		params:   p,
		sqrtT:    math.Sqrt(p.Maturity),
		deflater: math.Exp(-p.Rate * p.Maturity),
		carry:    math.Exp(-p.Dividend * p.Maturity),
	}
	bs.a = p.Volatility * bs.sqrtT
	bs.d1 = (math.Log(p.Spot/p.Strike) +
		(p.Rate-p.Dividend+p.Volatility*p.Volatility/2)*p.Maturity) / bs.a
	bs.d2 = bs.d1 - bs.a
	return bs, nil
}

func validateParams(p PricingParams) error {
	switch {
	case !(p.Spot > 0):
		return newDomainError("spot", p.Spot, "must be positive")
	case !(p.Strike > 0):
		return newDomainError("strike", p.Strike, "must be positive")
	case !(p.Volatility > 0):
		return newDomainError("volatility", p.Volatility, "must be positive")
	case !(p.Maturity > 0):
		return newDomainError("maturity", p.Maturity, "must be positive")
	case math.IsNaN(p.Rate) || math.IsNaN(p.Dividend):
		return newDomainError("rate", p.Rate, "rate and dividend must be numbers")
	}
	return nil
}

func (self *BlackScholes) Params() PricingParams { return self.params }
func (self *BlackScholes) D1() float64 { return self.d1 }
func (self *BlackScholes) D2() float64 { return self.d2 }

// CallPrice = S0 e^{-dT} N(d1) - K e^{-rT} N(d2)
func (self *BlackScholes) CallPrice() float64 {
	return self.params.Spot*self.carry*normCdf(self.d1) -
		self.params.Strike*self.deflater*normCdf(self.d2)
}

// PutPrice = K e^{-rT} N(-d2) - S0 e^{-dT} N(-d1)
func (self *BlackScholes) PutPrice() float64 {
	return self.params.Strike*self.deflater*normCdf(-self.d2) -
		self.params.Spot*self.carry*normCdf(-self.d1)
}

// Vega = S0 e^{-dT} sqrt(T) N'(d1), not scaled to a 1% move.
func (self *BlackScholes) Vega() float64 {
	return self.params.Spot * self.carry * self.sqrtT * normPdf(self.d1)
}

func (self *BlackScholes) Greeks() Greeks {
	p := self.params
	pdf := normPdf(self.d1)
	vega := self.Vega()
	gamma := self.carry * pdf / (p.Spot * self.a)
	decay := -p.Spot * self.carry * pdf * p.Volatility / (2 * self.sqrtT)

	return Greeks{
		Call: OptionGreeks{
			Delta: self.carry * normCdf(self.d1),
			Gamma: gamma,
			Theta: decay - p.Rate*p.Strike*self.deflater*normCdf(self.d2) +
				p.Dividend*p.Spot*self.carry*normCdf(self.d1),
			Rho:  p.Strike * p.Maturity * self.deflater * normCdf(self.d2),
			Vega: vega,
		},
		Put: OptionGreeks{
			Delta: -self.carry * normCdf(-self.d1),
			Gamma: gamma,
			Theta: decay + p.Rate*p.Strike*self.deflater*normCdf(-self.d2) -
				p.Dividend*p.Spot*self.carry*normCdf(-self.d1),
			Rho:  -p.Strike * p.Maturity * self.deflater * normCdf(-self.d2),
			Vega: vega,
		},
	}
}

// CallPrice prices a European call.
func CallPrice(p PricingParams) (float64, error) {
	bs, err := NewBlackScholes(p)
	if err != nil {
		return 0, err
	}
	return bs.CallPrice(), nil
}

// PutPrice prices a European put.
func PutPrice(p PricingParams) (float64, error) {
	bs, err := NewBlackScholes(p)
	if err != nil {
		return 0, err
	}
	return bs.PutPrice(), nil
}

// Vega is the sensitivity of the call (and put) price to volatility.
func Vega(p PricingParams) (float64, error) {
	bs, err := NewBlackScholes(p)
	if err != nil {
		return 0, err
	}
	return bs.Vega(), nil
}

func ComputeGreeks(p PricingParams) (Greeks, error) {
	bs, err := NewBlackScholes(p)
	if err != nil {
		return Greeks{}, err
	}
	return bs.Greeks(), nil
}

// CallBounds returns the no-arbitrage range of a European call price,
// [max(S0 e^{-dT} - K e^{-rT}, 0), S0 e^{-dT}]. Volatility is ignored.
func CallBounds(p PricingParams) (lower, upper float64) {
	carried := p.Spot * math.Exp(-p.Dividend*p.Maturity)
	lower = MaxFloat(carried-p.Strike*math.Exp(-p.Rate*p.Maturity), 0)
	return lower, carried
}

// normCdf is gonum's erfc based standard normal CDF, accurate in the tails.
func normCdf(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

func normPdf(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}
