package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func insertClosedTrade(t *testing.T, db *DB, ticker string, strategy Strategy, pnl float64, exitDate time.Time) {
	t.Helper()
	id, err := db.InsertTrade(TradeDraft{
		Ticker:            ticker,
		Strategy:          strategy,
		Sector:            "Technology",
		Strike:            100,
		Expiry:            "2026-07-17",
		DTE:               30,
		Contracts:         1,
		EntryPrice:        2.0,
		EntryDate:         exitDate.AddDate(0, 0, -30),
		EntrySpot:         100,
		MaxProfit:         200,
		MaxLoss:           10000,
		StopLossPrice:     4.0,
		ProfitTargetPrice: 1.0,
	})
	require.NoError(t, err)

	reason := ExitProfitTarget
	if pnl < 0 {
		reason = ExitStopLoss
	}
	require.NoError(t, db.CloseTrade(id, ExitData{
		ExitPrice:  1.0,
		ExitDate:   exitDate,
		ExitSpot:   105,
		ExitReason: reason,
		PnLDollars: pnl,
		PnLPercent: pnl / 200 * 100,
	}))
}

func TestGetPerformanceMetrics_AggregatesWinsAndLosses(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()

	insertClosedTrade(t, db, "AAPL", StrategyShortPut, 170, now.AddDate(0, 0, -1))
	insertClosedTrade(t, db, "MSFT", StrategyCreditSpread, -90, now.AddDate(0, 0, -2))
	insertClosedTrade(t, db, "AAPL", StrategyShortPut, 50, now.AddDate(0, 0, -3))

	metrics, err := db.GetPerformanceMetrics(0)
	require.NoError(t, err)
	require.Equal(t, 3, metrics.TotalTrades)
	require.InDelta(t, 130.0, metrics.TotalPnL, 0.001)
	require.InDelta(t, float64(2)/3*100, metrics.WinRate, 0.01)

	byStrategy := metrics.ByStrategy[string(StrategyShortPut)]
	require.Equal(t, 2, byStrategy.Count)

	byTicker := metrics.ByTicker["AAPL"]
	require.Equal(t, 2, byTicker.Count)
	require.InDelta(t, 220.0, byTicker.TotalPnL, 0.001)

	require.NotNil(t, metrics.BestTrade)
	require.Equal(t, "AAPL", metrics.BestTrade.Ticker)
	require.NotNil(t, metrics.WorstTrade)
	require.Equal(t, "MSFT", metrics.WorstTrade.Ticker)

	require.NotNil(t, metrics.MaxDrawdownPct, "three distinct exit dates should yield a drawdown series")
	require.GreaterOrEqual(t, *metrics.MaxDrawdownPct, 0.0)
}

func TestGetPerformanceMetrics_RespectsLookbackWindow(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()

	insertClosedTrade(t, db, "OLD", StrategyShortPut, 100, now.AddDate(0, 0, -90))
	insertClosedTrade(t, db, "RECENT", StrategyShortPut, 50, now.AddDate(0, 0, -1))

	metrics, err := db.GetPerformanceMetrics(7)
	require.NoError(t, err)
	require.Equal(t, 1, metrics.TotalTrades)
	require.Equal(t, 1, metrics.ByTicker["RECENT"].Count)
}

func TestGetPerformanceMetrics_NoClosedTradesIsZeroValue(t *testing.T) {
	db := openTestDB(t)

	metrics, err := db.GetPerformanceMetrics(30)
	require.NoError(t, err)
	require.Equal(t, 0, metrics.TotalTrades)
	require.Equal(t, 0.0, metrics.WinRate)
	require.Nil(t, metrics.BestTrade)
}

func TestGetEquityCurve_AccumulatesFromStartingBalance(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()

	insertClosedTrade(t, db, "AAPL", StrategyShortPut, 170, now.AddDate(0, 0, -2))
	insertClosedTrade(t, db, "MSFT", StrategyShortPut, -50, now.AddDate(0, 0, -1))

	curve, err := db.GetEquityCurve()
	require.NoError(t, err)
	require.Equal(t, 100000.0, curve.StartingBalance)
	require.InDelta(t, 100120.0, curve.CurrentValue, 0.001)
	require.Len(t, curve.Points, 2)
	require.InDelta(t, 100170.0, curve.Points[0].Value, 0.001)
	require.InDelta(t, 100120.0, curve.Points[1].Value, 0.001)
}

func TestGetEquityCurve_UsesConfiguredStartingBalance(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SetConfig("paper_balance", "50000"))

	curve, err := db.GetEquityCurve()
	require.NoError(t, err)
	require.Equal(t, 50000.0, curve.StartingBalance)
}

func TestBuildPerformanceContext_IncludesRulesAndMetrics(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()

	insertClosedTrade(t, db, "AAPL", StrategyShortPut, 170, now.AddDate(0, 0, -1))
	_, err := db.InsertLearnedRule(LearnedRule{
		RuleText:  "never open within 5 days of earnings",
		Category:  RuleEntry,
		Confidence: 0.8,
		Active:    true,
		CreatedAt: now,
	})
	require.NoError(t, err)

	ctx, err := db.BuildPerformanceContext()
	require.NoError(t, err)
	require.Contains(t, ctx, "PERFORMANCE")
	require.Contains(t, ctx, "LEARNED RULES")
	require.Contains(t, ctx, "never open within 5 days of earnings")
}
