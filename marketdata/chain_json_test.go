package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kOcJson = `{
  "records": {
    "expiryDates": ["25-May-2023", "01-Jun-2023"],
    "underlyingValue": 18321.15,
    "timestamp": "22-May-2023 15:30:00",
    "data": [
      {"strikePrice": 18300, "expiryDate": "25-May-2023",
       "CE": {"lastPrice": 95.5, "bidprice": 95, "askPrice": 96,
              "impliedVolatility": 10.5, "openInterest": 120000,
              "totalTradedVolume": 900000},
       "PE": {"lastPrice": 70}},
      {"strikePrice": 18350, "expiryDate": "25-May-2023",
       "CE": {"lastPrice": 66.1, "impliedVolatility": 10.1}},
      {"strikePrice": 18400, "expiryDate": "25-May-2023",
       "PE": {"lastPrice": 120}},
      {"strikePrice": 18300, "expiryDate": "01-Jun-2023",
       "CE": {"lastPrice": 180, "impliedVolatility": 11.2}}
    ]
  }
}`

func TestParseOptionChainJSON(t *testing.T) {
	oc, err := ParseOptionChainJSON("NIFTY", []byte(kOcJson), "")
	require.NoError(t, err)
	assert.Equal(t, "25-May-2023", oc.ExpiryDate())
	assert.Equal(t, 18321.15, oc.UnderlyingValue())

	records := oc.Records()
	require.Len(t, records, 2)
	assert.Equal(t, 18300.0, records[0].Strike)
	assert.Equal(t, 95.5, records[0].Price())
	assert.InDelta(t, 0.105, records[0].ImpliedVolatility, 1e-12)
	assert.Equal(t, 120000.0, records[0].OpenInterest)
	assert.Equal(t, 66.1, records[1].Price())

	oc.SetStrikeStep(50)
	assert.Equal(t, 18300.0, oc.AtmStrike())

	next, err := ParseOptionChainJSON("NIFTY", []byte(kOcJson), "01-Jun-2023")
	require.NoError(t, err)
	assert.Equal(t, 1, next.Len())
}

func TestParseOptionChainJSONErrors(t *testing.T) {
	_, err := ParseOptionChainJSON("NIFTY", []byte(`{"records":`), "")
	assert.Error(t, err)
	_, err = ParseOptionChainJSON("NIFTY", []byte(`{"filtered": {}}`), "")
	assert.EqualError(t, err, "Option chain field records is missing.")
	_, err = ParseOptionChainJSON("NIFTY",
		[]byte(`{"records": {"underlyingValue": "n/a"}}`), "")
	assert.EqualError(t, err,
		"Option chain field underlyingValue should be a JSON number, got string.")
	_, err = ParseOptionChainJSON("NIFTY",
		[]byte(`{"records": {"underlyingValue": 1, "expiryDates": ["x"], "data": {}}}`), "")
	assert.EqualError(t, err,
		"Option chain field data should be a JSON array, got map[string]interface {}.")
	_, err = ParseOptionChainJSON("NIFTY",
		[]byte(`{"records": {"underlyingValue": 1, "expiryDates": []}}`), "")
	assert.Error(t, err)
}
