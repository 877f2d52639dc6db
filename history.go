package rnd

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/glog"
	"gonum.org/v1/gonum/stat"
)

const kTradingDaysPerYear = 250

// LogReturns returns log(S[i+1]/S[i]) for an ordered price series.
func LogReturns(closes []float64) ([]float64, error) {
	if len(closes) < 2 {
		msg := fmt.Sprintf("Need at least 2 prices for returns, got %d.",
			len(closes))
		glog.Error(msg)
		return nil, errors.New(msg)
	}
	returns := make([]float64, len(closes)-1)
	for ii := range returns {
		if !(closes[ii] > 0) || !(closes[ii+1] > 0) {
			return nil, newDomainError("close", MinFloat(closes[ii], closes[ii+1]),
				"prices must be positive")
		}
		returns[ii] = math.Log(closes[ii+1] / closes[ii])
	}
	return returns, nil
}

// EstimateDriftVolatility annualises the mean and standard deviation of the
// daily log returns of closes. tradingDays <= 0 means 250.
func EstimateDriftVolatility(
	closes []float64,
	tradingDays int) (drift, volatility float64, err error) {

	if tradingDays <= 0 {
		tradingDays = kTradingDaysPerYear
	}
	returns, err := LogReturns(closes)
	if err != nil {
		return 0, 0, err
	}
	if len(returns) < 2 {
		msg := "Need at least 3 prices to estimate volatility."
		glog.Error(msg)
		return 0, 0, errors.New(msg)
	}
	mean, std := stat.MeanStdDev(returns, nil)
	days := float64(tradingDays)
	return mean * days, std * math.Sqrt(days), nil
}
