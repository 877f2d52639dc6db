package marketdata

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang/glog"
)

const (
	kOcRecords                = "records"
	kOcRecordsExpiryDates     = "expiryDates"
	kOcRecordsUnderlyingValue = "underlyingValue"
	kOcRecordsData            = "data"

	kOcRowStrikePrice       = "strikePrice"
	kOcRowExpiryDate        = "expiryDate"
	kOcRowCall              = "CE"
	kOcRowLastPrice         = "lastPrice"
	kOcRowBidPrice          = "bidprice"
	kOcRowAskPrice          = "askPrice"
	kOcRowImpliedVolatility = "impliedVolatility"
	kOcRowOpenInterest      = "openInterest"
	kOcRowTotalTradedVolume = "totalTradedVolume"
)

// ParseOptionChainJSON reads an exchange option chain document of the form
// {"records": {"underlyingValue": .., "expiryDates": [..], "data": [..]}}
// and keeps the calls of the given expiry. An empty expiry selects the
// nearest listed one. Implied volatilities are quoted in percent.
func ParseOptionChainJSON(
	symbol string,
	data []byte,
	expiryDate string) (*OptionChain, error) {

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		msg := fmt.Sprintf("Parsing OC response failed with error=%s.", err)
		glog.Error(msg)
		return nil, errors.New(msg)
	}

	records, err := chainObject(doc, kOcRecords)
	if err != nil {
		return nil, err
	}
	underlying, err := chainNumber(records, kOcRecordsUnderlyingValue)
	if err != nil {
		return nil, err
	}
	if expiryDate == "" {
		expiries, err := chainArray(records, kOcRecordsExpiryDates)
		if err != nil || len(expiries) == 0 {
			msg := "Option chain lists no expiry dates."
			glog.Error(msg)
			return nil, errors.New(msg)
		}
		expiryDate, _ = expiries[0].(string)
	}
	rows, err := chainArray(records, kOcRecordsData)
	if err != nil {
		return nil, err
	}

	oc := NewOptionChain(symbol, expiryDate, underlying)
	parsed := []OptionRecord{}
	for _, rowInt := range rows {
		row, ok := rowInt.(map[string]interface{})
		if !ok {
			continue
		}
		expiry, err := chainString(row, kOcRowExpiryDate)
		if err != nil || expiry != expiryDate {
			continue
		}
		strike, err := chainNumber(row, kOcRowStrikePrice)
		if err != nil {
			continue
		}
		call, ok := row[kOcRowCall].(map[string]interface{})
		if !ok {
			continue
		}
		parsed = append(parsed, OptionRecord{
			ContractSymbol:    fmt.Sprintf("%s-%s-%gCE", symbol, expiry, strike),
			Strike:            strike,
			LastPrice:         quoteNumber(call, kOcRowLastPrice),
			Bid:               quoteNumber(call, kOcRowBidPrice),
			Ask:               quoteNumber(call, kOcRowAskPrice),
			Volume:            quoteNumber(call, kOcRowTotalTradedVolume),
			OpenInterest:      quoteNumber(call, kOcRowOpenInterest),
			ImpliedVolatility: quoteNumber(call, kOcRowImpliedVolatility) / 100,
		})
	}
	oc.SetRecords(parsed)
	glog.V(1).Infof("Parsed %d calls of %s expiring %s.", len(parsed), symbol,
		expiryDate)
	return oc, nil
}
