package pipeline

import (
	"context"
	"time"

	"github.com/aristath/arduino-trader/internal/events"
	"github.com/aristath/arduino-trader/internal/parsing"
	"github.com/aristath/arduino-trader/internal/prompts"
	"github.com/aristath/arduino-trader/internal/runtimeconfig"
	"github.com/aristath/arduino-trader/internal/store"
)

const defaultRuleConfidence = 0.5

// RunPhase5 reviews every trade closed today with no existing review, extracting a
// lesson and optionally a new rule, then writes a short end-of-day reflection. Weak
// rules are pruned once per week, on Friday local time.
func (p *Pipeline) RunPhase5(ctx context.Context) error {
	return p.runLocked(ctx, 5, lockPhase5, func(ctx context.Context, correlationID string) error {
		cfg, err := p.loadConfig()
		if err != nil {
			return err
		}
		model := cfg.String(runtimeconfig.KeyDeepseekModel, "deepseek-r1:70b")

		closed, err := p.deps.Store.GetClosedTrades(200)
		if err != nil {
			return err
		}

		today := p.today()
		var scan *store.MarketScan
		if s, err := p.deps.Store.GetMarketScan(today); err == nil {
			scan = s
		}

		reviewed := 0
		for _, t := range closed {
			if t.ExitDate == nil || t.ExitDate.Format("2006-01-02") != today {
				continue
			}
			has, err := p.deps.Store.HasReview(t.ID)
			if err != nil {
				p.log.Warn().Err(err).Int64("trade_id", t.ID).Msg("failed to check existing review")
				continue
			}
			if has {
				continue
			}

			prompt := prompts.BuildReviewPrompt(t, scan)
			text, err := p.deps.AI.Call(ctx, prompt, model, 1500)
			if err != nil {
				p.log.Warn().Err(err).Int64("trade_id", t.ID).Msg("review call failed, skipping this trade")
				continue
			}

			result := parsing.ParseReview(text)
			review := store.TradeReview{
				TradeID:      t.ID,
				RawText:      text,
				Lesson:       result.Lesson,
				WhatWorked:   result.WhatWorked,
				WhatFailed:   result.WhatFailed,
				ShouldRepeat: result.ShouldRepeat,
				ModelUsed:    model,
				CreatedAt:    p.deps.Clock.Now(),
			}
			if _, err := p.deps.Store.InsertTradeReview(review); err != nil {
				p.log.Error().Err(err).Int64("trade_id", t.ID).Msg("failed to insert review")
				continue
			}
			reviewed++

			if result.NewRule != "" {
				rule := store.LearnedRule{
					RuleText:       result.NewRule,
					Category:       store.RuleCategory(result.RuleCategory),
					SourceTradeIDs: []int64{t.ID},
					Confidence:     defaultRuleConfidence,
					Active:         true,
					CreatedAt:      p.deps.Clock.Now(),
				}
				if _, err := p.deps.Store.InsertLearnedRule(rule); err != nil {
					p.log.Error().Err(err).Int64("trade_id", t.ID).Msg("failed to insert learned rule")
				}
			}
		}

		if p.deps.Clock.Now().Weekday() == time.Friday {
			if n, err := p.deps.Store.PruneWeakRules(); err != nil {
				p.log.Warn().Err(err).Msg("failed to prune weak rules")
			} else if n > 0 {
				p.log.Info().Int64("pruned", n).Msg("weekly rule pruning complete")
			}
		}

		performanceContext, err := p.deps.Store.BuildPerformanceContext()
		if err != nil {
			performanceContext = ""
		}
		reflectionPrompt := prompts.BuildReflectionPrompt(today, performanceContext)
		reflectionText, err := p.deps.AI.Call(ctx, reflectionPrompt, model, 500)
		if err != nil {
			p.log.Warn().Err(err).Msg("reflection call failed, leaving today's reflection blank")
		} else if err := p.deps.Store.SetReflection(today, reflectionText); err != nil {
			return err
		}

		p.deps.Bus.PublishProgress(events.ProgressData{Phase: 5, Status: events.PhaseComplete, Message: "self-reflection complete", CorrelationID: correlationID})
		return nil
	})
}
