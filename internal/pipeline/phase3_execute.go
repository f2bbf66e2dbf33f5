package pipeline

import (
	"context"

	"github.com/aristath/arduino-trader/internal/events"
	"github.com/aristath/arduino-trader/internal/risk"
	"github.com/aristath/arduino-trader/internal/runtimeconfig"
	"github.com/aristath/arduino-trader/internal/store"
)

const minViablePremium = 0.05

// RunPhase3 validates and opens today's selected picks against every risk gate in
// order, up to the number of available position slots. Every insert is a commitment:
// a partial execution leaves exactly the trades it opened (spec §5).
func (p *Pipeline) RunPhase3(ctx context.Context) error {
	return p.runLocked(ctx, 3, lockPhase3, func(ctx context.Context, correlationID string) error {
		scan, err := p.deps.Store.GetMarketScan(p.today())
		if err != nil {
			if err == store.ErrNotFound {
				p.deps.Bus.PublishProgress(events.ProgressData{Phase: 3, Status: events.PhaseSkipped, Message: "no scan for today", CorrelationID: correlationID})
				return nil
			}
			return err
		}

		if len(scan.SelectedPicks) == 0 {
			p.deps.Bus.PublishProgress(events.ProgressData{Phase: 3, Status: events.PhaseDiscovery, Message: "no picks recorded, re-running phase 2", CorrelationID: correlationID})
			if err := p.RunPhase2(ctx); err != nil {
				return err
			}
			scan, err = p.deps.Store.GetMarketScan(p.today())
			if err != nil {
				return err
			}
			if len(scan.SelectedPicks) == 0 {
				p.deps.Bus.PublishProgress(events.ProgressData{Phase: 3, Status: events.PhaseSkipped, Message: "no picks after re-analysis", CorrelationID: correlationID})
				return nil
			}
		}

		cfg, err := p.loadConfig()
		if err != nil {
			return err
		}
		openTrades, err := p.deps.Store.GetOpenTrades()
		if err != nil {
			return err
		}

		maxPositions := cfg.Int(runtimeconfig.KeyMaxPositions, 5)
		slotsAvailable := maxPositions - len(openTrades)
		if slotsAvailable <= 0 {
			p.deps.Bus.PublishProgress(events.ProgressData{Phase: 3, Status: events.PhaseSkipped, Message: "no open position slots available", CorrelationID: correlationID})
			return nil
		}

		balance := cfg.Float(runtimeconfig.KeyPaperBalance, 100000)
		dailyRiskBudget := balance * cfg.Float(runtimeconfig.KeyMaxDailyRiskPct, 20) / 100
		maxMarginPct := cfg.Float(runtimeconfig.KeyMaxMarginPct, 70)

		marginState := risk.PortfolioMargin(openTrades, balance, maxMarginPct)
		if marginState.PctOfBalance >= maxMarginPct {
			p.deps.Bus.PublishProgress(events.ProgressData{Phase: 3, Status: events.PhaseSkipped, Message: "portfolio margin at or above cap", CorrelationID: correlationID})
			return nil
		}

		openTickers := make(map[string]bool, len(openTrades))
		sectorCounts := make(map[string]int, len(openTrades))
		for _, t := range openTrades {
			openTickers[t.Ticker] = true
			sectorCounts[t.Sector]++
		}

		maxPerSector := cfg.Int(runtimeconfig.KeyMaxPerSector, 2)
		minDTE := cfg.Int(runtimeconfig.KeyMinDTE, 1)
		maxDTE := cfg.Int(runtimeconfig.KeyMaxDTE, 45)
		minSpreadWidth := cfg.Float(runtimeconfig.KeyMinSpreadWidth, 5)
		allowed := cfg.StringList(runtimeconfig.KeyAllowedStrategies, []string{"short_put", "credit_spread", "covered_call"})
		allowedSet := make(map[string]bool, len(allowed))
		for _, a := range allowed {
			allowedSet[a] = true
		}
		stopLossMultiplier := cfg.Float(runtimeconfig.KeyStopLossMultiplier, 2)
		profitTargetPct := cfg.Float(runtimeconfig.KeyProfitTargetPct, 50)

		var capitalUsed float64
		runningMargin := marginState.Total
		maxAllowedMargin := marginState.MaxAllowed
		opened := 0

		for _, pick := range scan.SelectedPicks {
			if opened >= slotsAvailable {
				break
			}

			if openTickers[pick.Ticker] {
				continue
			}
			sector := pick.Sector
			if sector == "" {
				sector = risk.SectorFor(pick.Ticker)
			}
			if sectorCounts[sector] >= maxPerSector {
				continue
			}

			quote, err := p.deps.Market.GetQuote(pick.Ticker)
			if err != nil {
				p.log.Debug().Err(err).Str("ticker", pick.Ticker).Msg("no quote, skipping pick")
				continue
			}

			if !allowedSet[string(pick.Strategy)] {
				continue
			}
			if pick.DTE < minDTE || pick.DTE > maxDTE {
				continue
			}
			spreadWidth := 0.0
			if pick.SpreadWidth != nil {
				spreadWidth = *pick.SpreadWidth
			}
			if pick.Strategy == store.StrategyCreditSpread && spreadWidth < minSpreadWidth {
				continue
			}

			premium := p.resolvePremium(pick, quote.Price)
			if premium <= minViablePremium {
				continue
			}

			shape := risk.TradeShape{Strategy: pick.Strategy, Strike: pick.Strike, SpreadWidth: spreadWidth, EntryPrice: premium, Contracts: pick.Contracts, Spot: quote.Price}
			if shape.Contracts <= 0 {
				shape.Contracts = 1
			}
			tradeRisk := risk.PerTradeRisk(shape)
			if capitalUsed+tradeRisk > dailyRiskBudget {
				continue
			}
			if runningMargin+tradeRisk > maxAllowedMargin {
				continue
			}

			stopLossPrice := premium * (1 + stopLossMultiplier)
			profitTargetPrice := premium * (1 - profitTargetPct/100)
			maxProfit, maxLoss := risk.MaxProfitLoss(shape)

			draft := store.TradeDraft{
				Ticker:            pick.Ticker,
				Strategy:          pick.Strategy,
				Sector:            sector,
				Strike:            pick.Strike,
				StrikeSell:        pick.StrikeSell,
				StrikeBuy:         pick.StrikeBuy,
				SpreadWidth:       pick.SpreadWidth,
				Expiry:            pick.Expiry,
				DTE:               pick.DTE,
				Contracts:         shape.Contracts,
				EntryPrice:        premium,
				EntryDate:         p.deps.Clock.Now(),
				EntrySpot:         quote.Price,
				MaxProfit:         maxProfit,
				MaxLoss:           maxLoss,
				MarketScanID:      &scan.ID,
				AIRationale:       pick.Rationale,
				AIConfidence:      pick.Confidence,
				ModelUsed:         scan.AnalysisModel,
				StopLossPrice:     stopLossPrice,
				ProfitTargetPrice: profitTargetPrice,
			}

			id, err := p.deps.Store.InsertTrade(draft)
			if err != nil {
				p.log.Error().Err(err).Str("ticker", pick.Ticker).Msg("failed to insert trade")
				continue
			}

			openTickers[pick.Ticker] = true
			sectorCounts[sector]++
			capitalUsed += tradeRisk
			runningMargin += tradeRisk
			opened++

			trade, err := p.deps.Store.GetTrade(id)
			if err == nil {
				p.deps.Bus.PublishTrade(events.TradeData{Action: events.ActionOpened, TradeID: id, Trade: *trade})
			}
		}

		p.deps.Bus.PublishProgress(events.ProgressData{Phase: 3, Status: events.PhaseComplete, Message: "execution complete", CorrelationID: correlationID})
		return nil
	})
}

// resolvePremium uses the live option mid if present, else ask, else the AI's estimated
// premium (spec §4.7 Phase 3 step 5).
func (p *Pipeline) resolvePremium(pick store.TradePick, spot float64) float64 {
	right := marketdataRightFor(pick.Strategy)
	expiry, err := parseExpiry(pick.Expiry)
	if err != nil {
		return pick.EstimatedPremium
	}
	premium, err := p.deps.Market.GetOptionPremium(pick.Ticker, pick.Strike, expiry, right)
	if err != nil || premium == nil {
		return pick.EstimatedPremium
	}
	if premium.Mid > 0 {
		return premium.Mid
	}
	if premium.Ask > 0 {
		return premium.Ask
	}
	return pick.EstimatedPremium
}
