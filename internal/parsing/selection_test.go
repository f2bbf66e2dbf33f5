package parsing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelection_DelimitedWithEndMarkers(t *testing.T) {
	text := `
Some preamble the model likes to add.

===TRADE_1===
TICKER: AAPL
STRATEGY: short_put
STRIKE: $190.00
EXPIRY: 2026-07-17
DTE: 30
CONTRACTS: 2
ESTIMATED_PREMIUM: $2.50
CONFIDENCE: 75%
SECTOR: Technology
RATIONALE: strong support at 190
===END_TRADE_1===

===TRADE_2===
TICKER: JPM
STRATEGY: credit_spread
STRIKE_SELL: 200
STRIKE_BUY: 195
SPREAD_WIDTH: 5
EXPIRY: 2026-07-17
DTE: 30
CONTRACTS: 1
ESTIMATED_PREMIUM: 1.20
CONFIDENCE: 60
===END_TRADE_2===
`
	trades := ParseSelection(text)
	require.Len(t, trades, 2)

	assert.Equal(t, "AAPL", trades[0].Ticker)
	assert.Equal(t, "short_put", trades[0].Strategy)
	require.NotNil(t, trades[0].Strike)
	assert.Equal(t, 190.0, *trades[0].Strike)
	assert.Equal(t, 30, trades[0].DTE)
	assert.Equal(t, 2, trades[0].Contracts)
	assert.Equal(t, 2.50, trades[0].EstimatedPremium)
	assert.Equal(t, 75.0, trades[0].Confidence)
	assert.Equal(t, "Technology", trades[0].Sector)

	assert.Equal(t, "JPM", trades[1].Ticker)
	require.NotNil(t, trades[1].StrikeSell)
	require.NotNil(t, trades[1].StrikeBuy)
	assert.Equal(t, 200.0, *trades[1].StrikeSell)
	assert.Equal(t, 195.0, *trades[1].StrikeBuy)
	require.NotNil(t, trades[1].SpreadWidth)
	assert.Equal(t, 5.0, *trades[1].SpreadWidth)
	assert.Equal(t, 200.0, *trades[1].Strike, "strike falls back to strike_sell when absent")
}

func TestParseSelection_MarkersWithoutEndTags(t *testing.T) {
	text := `
===TRADE_1===
TICKER: MSFT
STRATEGY: covered_call
STRIKE: 420
EXPIRY: 2026-08-21
DTE: 45
CONTRACTS: 1
ESTIMATED_PREMIUM: 3.10
CONFIDENCE: 80

some trailing commentary that is not a new trade block
`
	trades := ParseSelection(text)
	require.Len(t, trades, 1)
	assert.Equal(t, "MSFT", trades[0].Ticker)
	assert.Equal(t, "covered_call", trades[0].Strategy)
}

func TestParseSelection_TickerLineFallback(t *testing.T) {
	text := `
TICKER: NVDA
STRATEGY: short_put
STRIKE: 110
EXPIRY: 2026-09-18
DTE: 60
CONTRACTS: 1
ESTIMATED_PREMIUM: 4.00
CONFIDENCE: 70

TICKER: AMD
STRATEGY: short_put
STRIKE: 140
EXPIRY: 2026-09-18
DTE: 60
CONTRACTS: 1
ESTIMATED_PREMIUM: 3.25
CONFIDENCE: 65
`
	trades := ParseSelection(text)
	require.Len(t, trades, 2)
	assert.Equal(t, "NVDA", trades[0].Ticker)
	assert.Equal(t, "AMD", trades[1].Ticker)
}

func TestParseSelection_MissingRequiredFieldIsDiscarded(t *testing.T) {
	text := `
===TRADE_1===
STRATEGY: short_put
STRIKE: 100
===END_TRADE_1===
`
	trades := ParseSelection(text)
	assert.Empty(t, trades, "a block missing TICKER should be discarded, not inserted with zero values")
}

func TestParseSelection_NoRecognizableStructureReturnsNil(t *testing.T) {
	trades := ParseSelection("I am not going to trade anything today.")
	assert.Nil(t, trades)
}

func TestCleanNumeric(t *testing.T) {
	assert.Equal(t, "190.00", cleanNumeric("$190.00"))
	assert.Equal(t, "75", cleanNumeric("75%"))
	assert.Equal(t, "1.5", cleanNumeric(" 1.5 "))
}

func TestParseSelection_DefaultsContractsToOneWhenMissing(t *testing.T) {
	text := `
===TRADE_1===
TICKER: AAPL
STRATEGY: short_put
STRIKE: 190
EXPIRY: 2026-07-17
DTE: 30
ESTIMATED_PREMIUM: 2.50
CONFIDENCE: 75
===END_TRADE_1===
`
	trades := ParseSelection(text)
	require.Len(t, trades, 1)
	assert.Equal(t, 1, trades[0].Contracts)
}
