package risk

import (
	"testing"
	"time"

	"github.com/aristath/arduino-trader/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestPerTradeRisk(t *testing.T) {
	cases := []struct {
		name  string
		shape TradeShape
		want  float64
	}{
		{"short_put", TradeShape{Strategy: store.StrategyShortPut, Strike: 100, Contracts: 2}, 100 * 0.20 * 100 * 2},
		{"credit_spread", TradeShape{Strategy: store.StrategyCreditSpread, SpreadWidth: 5, EntryPrice: 1.5, Contracts: 3}, (5 - 1.5) * 100 * 3},
		{"covered_call", TradeShape{Strategy: store.StrategyCoveredCall, Strike: 50, Contracts: 1}, 50 * 100},
		{"unknown strategy falls back", TradeShape{Strategy: "iron_condor", Contracts: 1}, defaultFallbackRisk},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, PerTradeRisk(c.shape))
		})
	}
}

func TestMaxProfitLoss_ShortPut(t *testing.T) {
	maxProfit, maxLoss := MaxProfitLoss(TradeShape{
		Strategy: store.StrategyShortPut, Strike: 100, EntryPrice: 2, Contracts: 1,
	})
	assert.Equal(t, 200.0, maxProfit)
	assert.Equal(t, 9800.0, maxLoss)
}

func TestMaxProfitLoss_CreditSpread(t *testing.T) {
	maxProfit, maxLoss := MaxProfitLoss(TradeShape{
		Strategy: store.StrategyCreditSpread, SpreadWidth: 5, EntryPrice: 1.2, Contracts: 2,
	})
	assert.Equal(t, 240.0, maxProfit)
	assert.Equal(t, (5-1.2)*100*2, maxLoss)
}

func TestPortfolioMargin(t *testing.T) {
	width := 5.0
	trades := []store.Trade{
		{Strategy: store.StrategyShortPut, Strike: 100, EntryPrice: 2, Contracts: 1, EntrySpot: 100},
		{Strategy: store.StrategyCreditSpread, SpreadWidth: &width, EntryPrice: 1, Contracts: 1, EntrySpot: 50},
	}
	state := PortfolioMargin(trades, 100000, 70)

	wantTotal := PerTradeRisk(TradeShape{Strategy: store.StrategyShortPut, Strike: 100, EntryPrice: 2, Contracts: 1}) +
		PerTradeRisk(TradeShape{Strategy: store.StrategyCreditSpread, SpreadWidth: 5, EntryPrice: 1, Contracts: 1})
	assert.Equal(t, wantTotal, state.Total)
	assert.Equal(t, 70000.0, state.MaxAllowed)
	assert.Equal(t, 2, state.OpenCount)
	assert.InDelta(t, wantTotal/100000*100, state.PctOfBalance, 0.0001)
}

func TestPortfolioMargin_EmptyIsZero(t *testing.T) {
	state := PortfolioMargin(nil, 50000, 70)
	assert.Zero(t, state.Total)
	assert.Equal(t, 35000.0, state.MaxAllowed)
	assert.Equal(t, 35000.0, state.Available)
}

func TestDTE(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, 10, DTE(now, now.AddDate(0, 0, 10)))
	assert.Equal(t, 0, DTE(now, now.AddDate(0, 0, -5)), "past expiry clips at 0")
	assert.Equal(t, 0, DTE(now, now), "same-day expiry is 0 DTE")
}

func TestSectorFor(t *testing.T) {
	assert.Equal(t, "Technology", SectorFor("AAPL"))
	assert.Equal(t, "Finance", SectorFor("JPM"))
	assert.Equal(t, UnknownSector, SectorFor("ZZZZ"))
}

func TestBuiltinCandidatesNonEmptyAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, ticker := range BuiltinCandidates {
		assert.False(t, seen[ticker], "duplicate ticker %s in builtin candidates", ticker)
		seen[ticker] = true
	}
	assert.NotEmpty(t, BuiltinCandidates)
}
