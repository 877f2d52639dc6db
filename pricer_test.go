package rnd

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func atTheMoney() PricingParams {
	return PricingParams{
		Spot:       100,
		Strike:     100,
		Volatility: 0.2,
		Rate:       0.05,
		Maturity:   1,
	}
}

func TestCallPutReferenceValues(t *testing.T) {
	call, err := CallPrice(atTheMoney())
	require.NoError(t, err)
	assert.InDelta(t, 10.450583572185565, call, 1e-9)

	put, err := PutPrice(atTheMoney())
	require.NoError(t, err)
	assert.InDelta(t, 5.573526022256971, put, 1e-9)
}

func TestPutCallParity(t *testing.T) {
	cases := []PricingParams{
		atTheMoney(),
		{Spot: 30, Strike: 28, Volatility: 0.3, Rate: 0.025, Maturity: 0.5},
		{Spot: 100, Strike: 140, Volatility: 0.6, Rate: 0.01, Maturity: 2, Dividend: 0.03},
		{Spot: 50, Strike: 20, Volatility: 0.1, Rate: 0.08, Maturity: 0.1, Dividend: 0.01},
	}
	for _, p := range cases {
		bs, err := NewBlackScholes(p)
		require.NoError(t, err)
		parity := p.Spot*math.Exp(-p.Dividend*p.Maturity) -
			p.Strike*math.Exp(-p.Rate*p.Maturity)
		assert.InDelta(t, parity, bs.CallPrice()-bs.PutPrice(), 1e-10, "%+v", p)
	}
}

func TestCallPriceIncreasesWithVolatility(t *testing.T) {
	for _, strike := range []float64{60, 100, 150} {
		p := atTheMoney()
		p.Strike = strike
		last := -1.0
		for sigma := 0.05; sigma <= 2.0; sigma += 0.05 {
			price, err := CallPrice(p.WithVolatility(sigma))
			require.NoError(t, err)
			assert.Greater(t, price, last, "K=%g sigma=%g", strike, sigma)
			last = price

			vega, err := Vega(p.WithVolatility(sigma))
			require.NoError(t, err)
			assert.Greater(t, vega, 0.0)
		}
	}
}

func TestCallPriceVolatilityLimits(t *testing.T) {
	p := atTheMoney()
	p.Strike = 90
	floor := p.Spot - p.Strike*math.Exp(-p.Rate*p.Maturity)

	low, err := CallPrice(p.WithVolatility(1e-6))
	require.NoError(t, err)
	assert.InDelta(t, floor, low, 1e-9)

	lower, upper := CallBounds(p)
	assert.InDelta(t, floor, lower, 1e-12)
	assert.Equal(t, p.Spot, upper)

	high, err := CallPrice(p.WithVolatility(100))
	require.NoError(t, err)
	assert.InDelta(t, p.Spot, high, 1e-6)

	// Far out of the money with no volatility the call is worthless.
	p.Strike = 200
	otm, err := CallPrice(p.WithVolatility(1e-6))
	require.NoError(t, err)
	assert.True(t, almostEqual(otm, 0, 1e-12))
}

func TestGreeksMatchFiniteDifferences(t *testing.T) {
	p := PricingParams{Spot: 100, Strike: 95, Volatility: 0.25, Rate: 0.03,
		Maturity: 0.75, Dividend: 0.01}
	greeks, err := ComputeGreeks(p)
	require.NoError(t, err)

	price := func(p PricingParams) float64 {
		c, err := CallPrice(p)
		require.NoError(t, err)
		return c
	}
	const h = 1e-3
	up, down := p, p
	up.Spot += h
	down.Spot -= h
	delta := (price(up) - price(down)) / (2 * h)
	gamma := (price(up) - 2*price(p) + price(down)) / (h * h)
	assert.InDelta(t, delta, greeks.Call.Delta, 1e-6)
	assert.InDelta(t, gamma, greeks.Call.Gamma, 1e-4)
	assert.InDelta(t, greeks.Call.Delta-math.Exp(-p.Dividend*p.Maturity),
		greeks.Put.Delta, 1e-12)

	vega := (price(p.WithVolatility(p.Volatility+h)) -
		price(p.WithVolatility(p.Volatility-h))) / (2 * h)
	assert.InDelta(t, vega, greeks.Call.Vega, 1e-5)
	assert.Equal(t, greeks.Call.Vega, greeks.Put.Vega)

	rUp, rDown := p, p
	rUp.Rate += h
	rDown.Rate -= h
	assert.InDelta(t, (price(rUp)-price(rDown))/(2*h), greeks.Call.Rho, 1e-5)

	tUp, tDown := p, p
	tUp.Maturity += h
	tDown.Maturity -= h
	// Theta is the derivative with respect to calendar time, so -dC/dT.
	assert.InDelta(t, -(price(tUp)-price(tDown))/(2*h), greeks.Call.Theta, 1e-4)
}

func TestPricingDomainErrors(t *testing.T) {
	cases := map[string]PricingParams{
		"spot":       {Spot: 0, Strike: 100, Volatility: 0.2, Maturity: 1},
		"strike":     {Spot: 100, Strike: -1, Volatility: 0.2, Maturity: 1},
		"volatility": {Spot: 100, Strike: 100, Volatility: 0, Maturity: 1},
		"maturity":   {Spot: 100, Strike: 100, Volatility: 0.2, Maturity: 0},
	}
	for field, p := range cases {
		_, err := CallPrice(p)
		require.Error(t, err, field)
		assert.True(t, errors.Is(err, ErrDomain), field)

		var domainErr *DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, field, domainErr.Field)
	}

	_, err := PutPrice(PricingParams{Spot: 100, Strike: 100,
		Volatility: math.NaN(), Maturity: 1})
	assert.ErrorIs(t, err, ErrDomain)
}

func TestRoundToStep(t *testing.T) {
	assert.Equal(t, 30.0, RoundToStep(30.2, 0.5))
	assert.Equal(t, 30.5, RoundToStep(30.25, 0.5))
	assert.Equal(t, 44100.0, RoundToStep(44137, 100))
	assert.Equal(t, 12.3, RoundToStep(12.3, 0))
}
