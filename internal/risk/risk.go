// Package risk implements the Risk Engine (C8): pure functions over a trade draft and
// current config that compute per-trade risk, max profit/loss, portfolio margin, and
// DTE, plus the curated sector lookup. None of these functions touch the Store or the
// network; they are deterministic given their inputs.
package risk

import (
	"time"

	"github.com/aristath/arduino-trader/internal/store"
)

// defaultFallbackRisk is used when a strategy has no defined risk formula.
const defaultFallbackRisk = 5000.0

// TradeShape is the subset of a trade's contract shape the risk formulas need. Phase 3
// fills one from each store.TradePick, and PortfolioMargin fills one per open trade.
type TradeShape struct {
	Strategy    store.Strategy
	Strike      float64
	SpreadWidth float64
	EntryPrice  float64
	Contracts   int
	Spot        float64
}

// PerTradeRisk computes the approximate capital commitment of a single trade, per
// spec §4.8:
//   - short_put:      strike * 0.20 * 100 * contracts   (approximate margin requirement)
//   - credit_spread:  (spread_width - entry_price) * 100 * contracts (net max loss)
//   - covered_call:   strike * 100 * contracts          (notional share commitment)
//   - fallback:       $5,000
func PerTradeRisk(t TradeShape) float64 {
	contracts := float64(t.Contracts)
	switch t.Strategy {
	case store.StrategyShortPut:
		return t.Strike * 0.20 * 100 * contracts
	case store.StrategyCreditSpread:
		return (t.SpreadWidth - t.EntryPrice) * 100 * contracts
	case store.StrategyCoveredCall:
		return t.Strike * 100 * contracts
	default:
		return defaultFallbackRisk
	}
}

// MaxProfitLoss computes the per-strategy max profit and max loss of a trade, per
// spec §4.8.
func MaxProfitLoss(t TradeShape) (maxProfit, maxLoss float64) {
	contracts := float64(t.Contracts)
	switch t.Strategy {
	case store.StrategyShortPut:
		maxProfit = t.EntryPrice * 100 * contracts
		maxLoss = (t.Strike - t.EntryPrice) * 100 * contracts
	case store.StrategyCreditSpread:
		maxProfit = t.EntryPrice * 100 * contracts
		maxLoss = (t.SpreadWidth - t.EntryPrice) * 100 * contracts
	case store.StrategyCoveredCall:
		maxProfit = t.EntryPrice * 100 * contracts
		maxLoss = t.Spot * 100 * contracts
	default:
		maxProfit = t.EntryPrice * 100 * contracts
		maxLoss = defaultFallbackRisk
	}
	return maxProfit, maxLoss
}

// MarginState is the return value of PortfolioMargin.
type MarginState struct {
	Total       float64
	PctOfBalance float64
	MaxAllowed  float64
	Available   float64
	CapPct      float64
	OpenCount   int
}

// PortfolioMargin sums per-trade risk across every open trade and reports it against
// balance and the configured cap percentage.
func PortfolioMargin(openTrades []store.Trade, balance float64, capPct float64) MarginState {
	var total float64
	for _, t := range openTrades {
		shape := TradeShape{
			Strategy:   t.Strategy,
			Strike:     t.Strike,
			EntryPrice: t.EntryPrice,
			Contracts:  t.Contracts,
			Spot:       t.EntrySpot,
		}
		if t.SpreadWidth != nil {
			shape.SpreadWidth = *t.SpreadWidth
		}
		total += PerTradeRisk(shape)
	}

	maxAllowed := balance * capPct / 100
	pct := 0.0
	if balance > 0 {
		pct = total / balance * 100
	}

	return MarginState{
		Total:        total,
		PctOfBalance: pct,
		MaxAllowed:   maxAllowed,
		Available:    maxAllowed - total,
		CapPct:       capPct,
		OpenCount:    len(openTrades),
	}
}

// DTE returns the integer number of calendar days from now (local market close) to
// expiry, clipped at 0.
func DTE(now time.Time, expiry time.Time) int {
	days := int(expiry.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
