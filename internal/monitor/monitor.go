// Package monitor implements the Monitor (C9): during market hours, periodically
// evaluates every open trade against its stop-loss/DTE/profit-target triggers and
// closes it automatically. The monitor runs concurrently with the Pipeline's phases but
// never concurrently with itself: a tick that arrives while the previous tick is still
// running is dropped (spec §5).
package monitor

import (
	"time"

	"github.com/aristath/arduino-trader/internal/calendar"
	"github.com/aristath/arduino-trader/internal/clock"
	"github.com/aristath/arduino-trader/internal/events"
	"github.com/aristath/arduino-trader/internal/locking"
	"github.com/aristath/arduino-trader/internal/marketdata"
	"github.com/aristath/arduino-trader/internal/risk"
	"github.com/aristath/arduino-trader/internal/runtimeconfig"
	"github.com/aristath/arduino-trader/internal/store"
	"github.com/rs/zerolog"
)

const lockName = "monitor-tick"

// tradeStore is the narrow slice of *store.DB the monitor needs.
type tradeStore interface {
	GetOpenTrades() ([]store.Trade, error)
	CloseTrade(id int64, exit store.ExitData) error
	GetAllConfig() (map[string]string, error)
}

// quoteSource is the narrow slice of *marketdata.Gateway the monitor needs.
type quoteSource interface {
	GetOptionPremium(ticker string, strike float64, expiry time.Time, right marketdata.Right) (*marketdata.OptionPremium, error)
}

// Monitor evaluates open trades against their triggers on every scheduler tick.
type Monitor struct {
	store   tradeStore
	market  quoteSource
	bus     *events.Bus
	clock   clock.Clock
	locks   *locking.Manager
	log     zerolog.Logger
}

// New returns a Monitor.
func New(s tradeStore, market quoteSource, bus *events.Bus, c clock.Clock, locks *locking.Manager, log zerolog.Logger) *Monitor {
	return &Monitor{store: s, market: market, bus: bus, clock: c, locks: locks, log: log.With().Str("component", "monitor").Logger()}
}

// Tick runs one evaluation pass over every open trade. If the previous tick has not
// finished, this call is a no-op (dropped with a warning).
func (m *Monitor) Tick() {
	if !m.locks.Acquire(lockName) {
		m.log.Warn().Msg("monitor tick still running, dropping overlapping trigger")
		return
	}
	defer m.locks.Release(lockName)

	now := m.clock.Now()
	if !calendar.IsOpen(now) {
		return
	}

	trades, err := m.store.GetOpenTrades()
	if err != nil {
		m.log.Error().Err(err).Msg("failed to load open trades")
		return
	}

	if len(trades) > 0 {
		m.checkMarginHealth(trades)
	}

	for _, t := range trades {
		m.evaluate(t, now)
	}
}

// evaluate applies the strict stop-loss -> DTE -> profit-target ordering to a single
// trade against one current-price snapshot, so a position crossing multiple thresholds
// simultaneously records the most risk-averse outcome (spec §4.9, property 8 and 9).
func (m *Monitor) evaluate(t store.Trade, now time.Time) {
	expiry, err := time.Parse("2006-01-02", t.Expiry)
	if err != nil {
		m.log.Warn().Err(err).Int64("trade_id", t.ID).Msg("unparseable expiry, skipping this tick")
		return
	}

	right := marketdata.Put
	if t.Strategy == store.StrategyCoveredCall {
		right = marketdata.Call
	}

	premium, err := m.market.GetOptionPremium(t.Ticker, t.Strike, expiry, right)
	if err != nil || premium == nil {
		m.log.Debug().Int64("trade_id", t.ID).Msg("no current mid available, skipping this tick")
		return
	}
	currentPrice := premium.Mid

	pnlPerContract := (t.EntryPrice - currentPrice) * 100
	pnlPercent := (t.EntryPrice - currentPrice) / t.EntryPrice * 100
	dte := risk.DTE(now, expiry)

	switch {
	case currentPrice >= t.StopLossPrice:
		m.close(t, currentPrice, pnlPerContract, pnlPercent, store.ExitStopLoss, events.ActionStopLoss)
	case dte > 0 && dte <= manageDTEThreshold(m.store):
		m.close(t, currentPrice, pnlPerContract, pnlPercent, store.ExitDTEManage, events.ActionDTEManage)
	case currentPrice <= t.ProfitTargetPrice:
		m.close(t, currentPrice, pnlPerContract, pnlPercent, store.ExitProfitTarget, events.ActionProfitTarget)
	default:
		m.bus.PublishPositionUpdate(events.PositionUpdateData{
			TradeID:        t.ID,
			CurrentPrice:   currentPrice,
			PnLPerContract: pnlPerContract,
			PnLPercent:     pnlPercent,
			PnLTotal:       pnlPerContract * float64(t.Contracts),
		})
	}
}

func (m *Monitor) close(t store.Trade, currentPrice, pnlPerContract, pnlPercent float64, reason store.ExitReason, action events.TradeAction) {
	pnlTotal := pnlPerContract * float64(t.Contracts)
	err := m.store.CloseTrade(t.ID, store.ExitData{
		ExitPrice:  currentPrice,
		ExitDate:   m.clock.Now(),
		ExitSpot:   t.EntrySpot,
		ExitReason: reason,
		PnLDollars: pnlTotal,
		PnLPercent: pnlPercent,
	})
	if err != nil {
		m.log.Error().Err(err).Int64("trade_id", t.ID).Msg("failed to close triggered trade")
		return
	}

	m.bus.PublishTrade(events.TradeData{Action: action, TradeID: t.ID, Trade: t})
	m.log.Info().Int64("trade_id", t.ID).Str("ticker", t.Ticker).Str("reason", string(reason)).Float64("pnl", pnlTotal).Msg("position closed by monitor")
}

func (m *Monitor) checkMarginHealth(trades []store.Trade) {
	all, err := m.store.GetAllConfig()
	if err != nil {
		return
	}
	snap, err := runtimeconfig.Load(staticConfigStore(all))
	if err != nil {
		return
	}
	balance := snap.Float(runtimeconfig.KeyPaperBalance, 100000)
	capPct := snap.Float(runtimeconfig.KeyMaxMarginPct, 70)

	state := risk.PortfolioMargin(trades, balance, capPct)
	if state.MaxAllowed > 0 && state.Total/state.MaxAllowed >= 0.9 {
		m.log.Warn().Float64("utilization_pct", state.Total/state.MaxAllowed*100).Msg("portfolio margin utilization above 90% of cap")
	}
}

func manageDTEThreshold(s tradeStore) int {
	all, err := s.GetAllConfig()
	if err != nil {
		return 21
	}
	snap, err := runtimeconfig.Load(staticConfigStore(all))
	if err != nil {
		return 21
	}
	return snap.Int(runtimeconfig.KeyManageDTE, 21)
}

// staticConfigStore adapts an already-loaded map to runtimeconfig's store interface.
type staticConfigStore map[string]string

func (s staticConfigStore) GetAllConfig() (map[string]string, error) { return s, nil }
func (s staticConfigStore) SetConfig(key, value string) error        { return nil }
