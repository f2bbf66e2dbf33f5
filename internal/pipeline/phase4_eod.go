package pipeline

import (
	"context"

	"github.com/aristath/arduino-trader/internal/events"
	"github.com/aristath/arduino-trader/internal/risk"
	"github.com/aristath/arduino-trader/internal/runtimeconfig"
	"github.com/aristath/arduino-trader/internal/store"
)

// RunPhase4 is the after-hours safety net: trades past expiration are closed at full
// credit kept; trades inside the manage-DTE window are closed at the current mid if one
// is available. It then upserts today's DailySummary.
func (p *Pipeline) RunPhase4(ctx context.Context) error {
	return p.runLocked(ctx, 4, lockPhase4, func(ctx context.Context, correlationID string) error {
		cfg, err := p.loadConfig()
		if err != nil {
			return err
		}
		manageDTE := cfg.Int(runtimeconfig.KeyManageDTE, 21)
		now := p.deps.Clock.Now()

		openTrades, err := p.deps.Store.GetOpenTrades()
		if err != nil {
			return err
		}

		wins, losses, closes := 0, 0, 0
		var totalPnL float64

		for _, t := range openTrades {
			expiry, err := parseExpiry(t.Expiry)
			if err != nil {
				p.log.Warn().Err(err).Int64("trade_id", t.ID).Msg("unparseable expiry, skipping in eod review")
				continue
			}
			dte := risk.DTE(now, expiry)

			switch {
			case dte <= 0:
				pnl := t.EntryPrice * 100 * float64(t.Contracts)
				if err := p.deps.Store.CloseTrade(t.ID, store.ExitData{
					ExitPrice:  0,
					ExitDate:   now,
					ExitSpot:   t.EntrySpot,
					ExitReason: store.ExitExpiry,
					PnLDollars: pnl,
					PnLPercent: 100,
				}); err != nil {
					p.log.Error().Err(err).Int64("trade_id", t.ID).Msg("failed to close expired trade")
					continue
				}
				p.deps.Bus.PublishTrade(events.TradeData{Action: events.ActionClosed, TradeID: t.ID, Trade: t})
				closes++
				totalPnL += pnl
				if pnl >= 0 {
					wins++
				} else {
					losses++
				}

			case dte <= manageDTE:
				right := marketdataRightFor(t.Strategy)
				premium, err := p.deps.Market.GetOptionPremium(t.Ticker, t.Strike, expiry, right)
				if err != nil || premium == nil {
					continue
				}
				currentPrice := premium.Mid
				pnl := (t.EntryPrice - currentPrice) * 100 * float64(t.Contracts)
				pnlPct := (t.EntryPrice - currentPrice) / t.EntryPrice * 100
				if err := p.deps.Store.CloseTrade(t.ID, store.ExitData{
					ExitPrice:  currentPrice,
					ExitDate:   now,
					ExitSpot:   t.EntrySpot,
					ExitReason: store.ExitDTEManage,
					PnLDollars: pnl,
					PnLPercent: pnlPct,
				}); err != nil {
					p.log.Error().Err(err).Int64("trade_id", t.ID).Msg("failed to close dte-managed trade")
					continue
				}
				p.deps.Bus.PublishTrade(events.TradeData{Action: events.ActionDTEManage, TradeID: t.ID, Trade: t})
				closes++
				totalPnL += pnl
				if pnl >= 0 {
					wins++
				} else {
					losses++
				}
			}
		}

		remainingOpen, err := p.deps.Store.GetOpenTrades()
		if err != nil {
			return err
		}
		balance := cfg.Float(runtimeconfig.KeyPaperBalance, 100000)
		margin := risk.PortfolioMargin(remainingOpen, balance, cfg.Float(runtimeconfig.KeyMaxMarginPct, 70))

		opens := 0
		if all, err := p.deps.Store.GetAllTrades(1000); err == nil {
			today := p.today()
			for _, t := range all {
				if t.EntryDate.Format("2006-01-02") == today {
					opens++
				}
			}
		}

		summary := store.DailySummary{
			SummaryDate:   p.today(),
			Opens:         opens,
			Closes:        closes,
			Wins:          wins,
			Losses:        losses,
			TotalPnL:      totalPnL,
			AccountValue:  balance + totalPnL,
			CapitalAtRisk: margin.Total,
		}
		if err := p.deps.Store.UpsertDailySummary(summary); err != nil {
			return err
		}

		p.deps.Bus.PublishProgress(events.ProgressData{Phase: 4, Status: events.PhaseComplete, Message: "end-of-day review complete", CorrelationID: correlationID})
		return nil
	})
}
