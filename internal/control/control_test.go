package control

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/arduino-trader/internal/clients/yahoo"
	"github.com/aristath/arduino-trader/internal/clock"
	"github.com/aristath/arduino-trader/internal/events"
	"github.com/aristath/arduino-trader/internal/locking"
	"github.com/aristath/arduino-trader/internal/marketdata"
	"github.com/aristath/arduino-trader/internal/monitor"
	"github.com/aristath/arduino-trader/internal/pipeline"
	"github.com/aristath/arduino-trader/internal/runtimeconfig"
	"github.com/aristath/arduino-trader/internal/scheduler"
	"github.com/aristath/arduino-trader/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestSurface(t *testing.T) *Surface {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "trader.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	market := marketdata.New(yahoo.NewClient(zerolog.Nop()), zerolog.Nop())
	bus := events.NewBus(zerolog.Nop())
	c := clock.NewFixed(time.Date(2026, 6, 17, 15, 0, 0, 0, time.UTC))
	locks := locking.NewManager()

	pipe := pipeline.New(pipeline.Deps{Store: db, Market: market, Bus: bus, Clock: c, Locks: locks, Log: zerolog.Nop()})
	mon := monitor.New(db, market, bus, c, locks, zerolog.Nop())
	sched := scheduler.New(zerolog.Nop())

	surface := New(db, market, pipe, mon, sched, bus, c, zerolog.Nop())
	t.Cleanup(func() { surface.Stop() })
	return surface
}

func TestEnable_PersistsFlagAndStarts(t *testing.T) {
	s := newTestSurface(t)

	require.NoError(t, s.Enable())
	require.True(t, s.running)

	v, ok, err := s.store.GetConfig(runtimeconfig.KeyEnabled)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "true", v)
}

func TestDisable_PersistsFlagAndStops(t *testing.T) {
	s := newTestSurface(t)
	require.NoError(t, s.Enable())

	require.NoError(t, s.Disable())
	require.False(t, s.running)

	v, _, err := s.store.GetConfig(runtimeconfig.KeyEnabled)
	require.NoError(t, err)
	require.Equal(t, "false", v)
}

func TestStart_IsIdempotent(t *testing.T) {
	s := newTestSurface(t)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	require.True(t, s.running)
}

func TestEnable_RefusesWhenStoreNotReady(t *testing.T) {
	s := newTestSurface(t)
	require.NoError(t, s.store.Close())

	err := s.Enable()
	require.Error(t, err)
	require.False(t, s.running)
}

func TestManualClose_ClosesAtZeroPriceWhenExpiryUnparseable(t *testing.T) {
	s := newTestSurface(t)

	id, err := s.store.InsertTrade(store.TradeDraft{
		Ticker: "AAPL", Strategy: store.StrategyShortPut, Sector: "Technology",
		Strike: 190, Expiry: "not-a-date", DTE: 30, Contracts: 1,
		EntryPrice: 2.5, EntryDate: time.Now(), EntrySpot: 195,
		MaxProfit: 250, MaxLoss: 18750, StopLossPrice: 5, ProfitTargetPrice: 1.25,
	})
	require.NoError(t, err)

	require.NoError(t, s.ManualClose(id, ""))

	t2, err := s.store.GetTrade(id)
	require.NoError(t, err)
	require.Equal(t, store.StatusClosed, t2.Status)
	require.Equal(t, store.ExitManual, *t2.ExitReason)
	require.NotNil(t, t2.ExitPrice)
	require.Equal(t, 0.0, *t2.ExitPrice)
}

func TestManualClose_CustomReasonOverridesDefault(t *testing.T) {
	s := newTestSurface(t)

	id, err := s.store.InsertTrade(store.TradeDraft{
		Ticker: "AAPL", Strategy: store.StrategyShortPut, Sector: "Technology",
		Strike: 190, Expiry: "bad-date", DTE: 30, Contracts: 1,
		EntryPrice: 2.5, EntryDate: time.Now(), EntrySpot: 195,
		MaxProfit: 250, MaxLoss: 18750, StopLossPrice: 5, ProfitTargetPrice: 1.25,
	})
	require.NoError(t, err)

	require.NoError(t, s.ManualClose(id, "margin_call"))

	t2, err := s.store.GetTrade(id)
	require.NoError(t, err)
	require.Equal(t, store.ExitReason("margin_call"), *t2.ExitReason)
}

func TestManualClose_RejectsAlreadyClosedTrade(t *testing.T) {
	s := newTestSurface(t)

	id, err := s.store.InsertTrade(store.TradeDraft{
		Ticker: "AAPL", Strategy: store.StrategyShortPut, Sector: "Technology",
		Strike: 190, Expiry: "bad-date", DTE: 30, Contracts: 1,
		EntryPrice: 2.5, EntryDate: time.Now(), EntrySpot: 195,
		MaxProfit: 250, MaxLoss: 18750, StopLossPrice: 5, ProfitTargetPrice: 1.25,
	})
	require.NoError(t, err)
	require.NoError(t, s.ManualClose(id, ""))

	err = s.ManualClose(id, "")
	require.Error(t, err)
}

func TestManualClose_UnknownTradeIsError(t *testing.T) {
	s := newTestSurface(t)
	err := s.ManualClose(999, "")
	require.Error(t, err)
}

func TestGetStatus_ReportsOpenPositionsAndEquity(t *testing.T) {
	s := newTestSurface(t)

	_, err := s.store.InsertTrade(store.TradeDraft{
		Ticker: "AAPL", Strategy: store.StrategyShortPut, Sector: "Technology",
		Strike: 190, Expiry: "2026-07-17", DTE: 30, Contracts: 1,
		EntryPrice: 2.5, EntryDate: time.Now(), EntrySpot: 195,
		MaxProfit: 250, MaxLoss: 18750, StopLossPrice: 5, ProfitTargetPrice: 1.25,
	})
	require.NoError(t, err)

	status := s.GetStatus()
	require.Equal(t, 1, status.OpenPositions)
	require.Equal(t, 100000.0, status.StartingBalance)
	require.Equal(t, 100000.0, status.CurrentValue)
	require.False(t, status.Enabled)
}

func TestGetStatus_ReportsDegradedWhenStoreNotReady(t *testing.T) {
	s := newTestSurface(t)
	require.NoError(t, s.store.Close())

	status := s.GetStatus()
	require.Equal(t, Status{}, status)
}
