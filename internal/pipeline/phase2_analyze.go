package pipeline

import (
	"context"
	"math/rand"

	"github.com/aristath/arduino-trader/internal/events"
	"github.com/aristath/arduino-trader/internal/parsing"
	"github.com/aristath/arduino-trader/internal/prompts"
	"github.com/aristath/arduino-trader/internal/risk"
	"github.com/aristath/arduino-trader/internal/runtimeconfig"
	"github.com/aristath/arduino-trader/internal/store"
	"github.com/aristath/arduino-trader/pkg/formulas"
)

// maxCandidatePool is the truncation point for Phase 2's shuffled candidate union
// (spec §4.7 Phase 2).
const maxCandidatePool = 40

// rsiLookbackDays is the trailing window fetched to compute each candidate's RSI.
const rsiLookbackDays = 30

// RunPhase2 builds the candidate pool, enriches it with live quotes and momentum, asks
// the analysis model to pick trades, and persists the parsed picks onto today's
// MarketScan. If today's scan is missing, Phase 1 runs first.
func (p *Pipeline) RunPhase2(ctx context.Context) error {
	return p.runLocked(ctx, 2, lockPhase2, func(ctx context.Context, correlationID string) error {
		scan, err := p.deps.Store.GetMarketScan(p.today())
		if err != nil {
			if err != store.ErrNotFound {
				return err
			}
			p.deps.Bus.PublishProgress(events.ProgressData{Phase: 2, Status: events.PhaseDiscovery, Message: "no scan for today, running phase 1 first", CorrelationID: correlationID})
			if err := p.RunPhase1(ctx); err != nil {
				return err
			}
			scan, err = p.deps.Store.GetMarketScan(p.today())
			if err != nil {
				return err
			}
		}

		p.deps.Bus.PublishProgress(events.ProgressData{Phase: 2, Status: events.PhaseCandidates, Message: "assembling candidate pool", CorrelationID: correlationID})
		pool := buildCandidatePool(scan.TrendingTickers)

		p.deps.Bus.PublishProgress(events.ProgressData{Phase: 2, Status: events.PhaseData, Message: "fetching candidate quotes", CorrelationID: correlationID})
		quotes := p.deps.Market.GetQuotesBatch(pool)

		candidates := make([]prompts.Candidate, 0, len(quotes))
		for _, ticker := range pool {
			q, ok := quotes[ticker]
			if !ok {
				continue
			}
			c := prompts.Candidate{Ticker: q.Ticker, Price: q.Price, ChangePercent: q.ChangePercent, RangePosition: q.RangePosition}
			if closes, err := p.deps.Market.GetHistoricalCloses(ticker, rsiLookbackDays); err == nil {
				c.RSI = formulas.CalculateRSI(closes, 14)
			}
			candidates = append(candidates, c)
		}
		scan.CandidatePool = pool
		if _, err := p.deps.Store.UpsertMarketScan(*scan); err != nil {
			return err
		}

		performanceContext, err := p.deps.Store.BuildPerformanceContext()
		if err != nil {
			p.log.Warn().Err(err).Msg("failed to build performance context, continuing without it")
			performanceContext = ""
		}

		cfg, err := p.loadConfig()
		if err != nil {
			return err
		}
		openTrades, err := p.deps.Store.GetOpenTrades()
		if err != nil {
			return err
		}
		balance := cfg.Float(runtimeconfig.KeyPaperBalance, 100000)
		margin := risk.PortfolioMargin(openTrades, balance, cfg.Float(runtimeconfig.KeyMaxMarginPct, 70))

		model := cfg.String(runtimeconfig.KeyDeepseekModel, "deepseek-r1:70b")
		prompt := prompts.BuildSelectionPrompt(scan, candidates, performanceContext, cfg, scan.CautionFlags, margin)

		p.deps.Bus.PublishProgress(events.ProgressData{Phase: 2, Status: events.PhaseAI, Message: "calling analysis model for trade selection", CorrelationID: correlationID})
		text, err := p.deps.AI.Call(ctx, prompt, model, 4000)
		var picks []store.TradePick
		if err != nil {
			p.log.Warn().Err(err).Msg("analysis model call failed, recording zero picks")
		} else {
			scan.AnalysisModel = model
			for _, pt := range parsing.ParseSelection(text) {
				picks = append(picks, toTradePick(pt))
			}
		}

		if err := p.deps.Store.SetSelectedPicks(scan.ScanDate, picks); err != nil {
			return err
		}

		p.deps.Bus.PublishProgress(events.ProgressData{Phase: 2, Status: events.PhaseComplete, Message: "picks recorded", CorrelationID: correlationID})
		return nil
	})
}

// buildCandidatePool unions the parsed trending tickers with the curated built-in list,
// deduplicates, shuffles, and truncates to maxCandidatePool.
func buildCandidatePool(trending []string) []string {
	seen := make(map[string]bool)
	var pool []string
	for _, t := range append(append([]string{}, trending...), risk.BuiltinCandidates...) {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		pool = append(pool, t)
	}

	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	if len(pool) > maxCandidatePool {
		pool = pool[:maxCandidatePool]
	}
	return pool
}

func toTradePick(pt parsing.ParsedTrade) store.TradePick {
	strike := 0.0
	if pt.Strike != nil {
		strike = *pt.Strike
	}
	return store.TradePick{
		Ticker:           pt.Ticker,
		Strategy:         store.Strategy(pt.Strategy),
		Strike:           strike,
		StrikeSell:       pt.StrikeSell,
		StrikeBuy:        pt.StrikeBuy,
		SpreadWidth:      pt.SpreadWidth,
		Expiry:           pt.Expiry,
		DTE:              pt.DTE,
		Contracts:        pt.Contracts,
		EstimatedPremium: pt.EstimatedPremium,
		Confidence:       pt.Confidence,
		Sector:           pt.Sector,
		Rationale:        pt.Rationale,
	}
}
