package pipeline

import (
	"context"

	"github.com/aristath/arduino-trader/internal/ai"
	"github.com/aristath/arduino-trader/internal/events"
	"github.com/aristath/arduino-trader/internal/parsing"
	"github.com/aristath/arduino-trader/internal/prompts"
	"github.com/aristath/arduino-trader/internal/runtimeconfig"
	"github.com/aristath/arduino-trader/internal/store"
)

// RunPhase1 fetches SPY/VIX context and trending/most-active tickers, asks the
// sentiment model for today's market read, parses the response, and upserts today's
// MarketScan. A failure fetching SPY/VIX or the ticker lists degrades to zero/null
// context rather than aborting; the phase always attempts its AI call.
func (p *Pipeline) RunPhase1(ctx context.Context) error {
	return p.runLocked(ctx, 1, lockPhase1, func(ctx context.Context, correlationID string) error {
		p.deps.Bus.PublishProgress(events.ProgressData{Phase: 1, Status: events.PhaseFetching, Message: "fetching market context", CorrelationID: correlationID})

		var spy, vix float64
		if q, err := p.deps.Market.GetQuote("SPY"); err == nil {
			spy = q.Price
		} else {
			p.log.Warn().Err(err).Msg("failed to fetch SPY, continuing with zero context")
		}
		if q, err := p.deps.Market.GetQuote("^VIX"); err == nil {
			vix = q.Price
		} else {
			p.log.Warn().Err(err).Msg("failed to fetch VIX, continuing with zero context")
		}

		trending, err := p.deps.Market.GetTrendingTickers()
		if err != nil {
			p.log.Warn().Err(err).Msg("failed to fetch trending tickers, continuing with empty list")
		}
		mostActive, err := p.deps.Market.GetMostActiveTickers()
		if err != nil {
			p.log.Warn().Err(err).Msg("failed to fetch most-active tickers, continuing with empty list")
		}

		p.deps.Bus.PublishProgress(events.ProgressData{Phase: 1, Status: events.PhaseGrok, Message: "calling sentiment model", CorrelationID: correlationID})

		cfg, err := p.loadConfig()
		if err != nil {
			return err
		}
		model := cfg.String(runtimeconfig.KeyGrokModel, "grok-4")

		prompt := prompts.BuildScanPrompt(spy, vix, trending, mostActive)
		result, err := p.deps.AI.CallWithSearch(ctx, prompt, ai.SearchOptions{XSearch: true, WebSearch: true, MaxTokens: 2000, Model: model})
		rawText := ""
		parsed := parsing.ScanResult{MarketMood: "neutral", SectorMomentum: map[string]string{}}
		if err != nil {
			p.log.Warn().Err(err).Msg("sentiment model call failed, recording degraded scan")
		} else {
			rawText = result.Text
			parsed = parsing.ParseScan(result.Text)
		}

		scan := store.MarketScan{
			ScanDate:        p.today(),
			MarketMood:      store.MarketMood(parsed.MarketMood),
			TrendingTickers: parsed.TrendingTickers,
			SectorMomentum:  parsed.SectorMomentum,
			CautionFlags:    parsed.CautionFlags,
			RawText:         rawText,
			VIX:             vix,
			SPY:             spy,
			SentimentModel:  model,
		}
		if _, err := p.deps.Store.UpsertMarketScan(scan); err != nil {
			return err
		}

		p.deps.Bus.PublishProgress(events.ProgressData{Phase: 1, Status: events.PhaseComplete, Message: "scan recorded", CorrelationID: correlationID})
		return nil
	})
}
