// Package control implements the Control Surface (C11): the operator-facing API that
// enables/disables the trader, starts/stops the scheduler, triggers phases manually,
// closes a position by hand, and reports current status. It is the single place that
// mutates the `enabled` config flag and the scheduler's running state.
package control

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/arduino-trader/internal/clock"
	"github.com/aristath/arduino-trader/internal/events"
	"github.com/aristath/arduino-trader/internal/marketdata"
	"github.com/aristath/arduino-trader/internal/monitor"
	"github.com/aristath/arduino-trader/internal/perrors"
	"github.com/aristath/arduino-trader/internal/pipeline"
	"github.com/aristath/arduino-trader/internal/runtimeconfig"
	"github.com/aristath/arduino-trader/internal/scheduler"
	"github.com/aristath/arduino-trader/internal/store"
	"github.com/rs/zerolog"
)

// Surface is the Control Surface. Its zero value is not usable; use New.
type Surface struct {
	store     *store.DB
	market    *marketdata.Gateway
	pipeline  *pipeline.Pipeline
	monitor   *monitor.Monitor
	scheduler *scheduler.Scheduler
	bus       *events.Bus
	clock     clock.Clock
	log       zerolog.Logger

	running bool
	lastTick time.Time
}

// New returns a Surface wiring together every collaborator the Control Surface drives.
func New(s *store.DB, market *marketdata.Gateway, p *pipeline.Pipeline, m *monitor.Monitor, sched *scheduler.Scheduler, bus *events.Bus, c clock.Clock, log zerolog.Logger) *Surface {
	return &Surface{store: s, market: market, pipeline: p, monitor: m, scheduler: sched, bus: bus, clock: c, log: log.With().Str("component", "control").Logger()}
}

// Enable persists enabled=true and starts the scheduler. If the store is not ready the
// trader refuses to enable and reports a Fatal-derived error (spec §7).
func (s *Surface) Enable() error {
	if !s.store.IsReady() {
		return perrors.NewFatal(fmt.Errorf("store not ready, refusing to enable"))
	}
	if err := runtimeconfig.Set(s.store, runtimeconfig.KeyEnabled, "true"); err != nil {
		return fmt.Errorf("persist enabled flag: %w", err)
	}
	return s.Start()
}

// Disable persists enabled=false and stops the scheduler. Any in-flight phase is
// allowed to complete; no partial rollback is attempted (spec §5).
func (s *Surface) Disable() error {
	if err := runtimeconfig.Set(s.store, runtimeconfig.KeyEnabled, "false"); err != nil {
		return fmt.Errorf("persist disabled flag: %w", err)
	}
	s.Stop()
	return nil
}

// Start registers the five named phase jobs plus the monitor tick against the
// scheduler (using whatever schedule the current config specifies) and starts it.
// Start is idempotent: calling it while already running is a no-op.
func (s *Surface) Start() error {
	if s.running {
		return nil
	}
	cfg, err := runtimeconfig.Load(s.store)
	if err != nil {
		return fmt.Errorf("load config for scheduling: %w", err)
	}

	jobs := []struct {
		name string
		time string
		fn   func(ctx context.Context) error
	}{
		{"intel", cfg.String(runtimeconfig.KeyMorningScanTime, "06:00"), s.pipeline.RunPhase1},
		{"analyze", cfg.String(runtimeconfig.KeyAnalysisTime, "07:00"), s.pipeline.RunPhase2},
		{"execute", cfg.String(runtimeconfig.KeyExecutionTime, "09:31"), s.pipeline.RunPhase3},
		{"eod", cfg.String(runtimeconfig.KeyEodReviewTime, "16:01"), s.pipeline.RunPhase4},
		{"reflect", cfg.String(runtimeconfig.KeyReflectionTime, "16:30"), s.pipeline.RunPhase5},
	}
	for _, j := range jobs {
		cronExpr, err := dailyCron(j.time)
		if err != nil {
			return fmt.Errorf("parse schedule for %s: %w", j.name, err)
		}
		if err := s.scheduler.AddJob(cronExpr, phaseJob{name: j.name, fn: j.fn}); err != nil {
			return fmt.Errorf("register job %s: %w", j.name, err)
		}
	}

	intervalSec := cfg.Int(runtimeconfig.KeyMonitorIntervalSec, 30)
	if err := s.scheduler.AddJob(fmt.Sprintf("@every %ds", intervalSec), monitorJob{surface: s}); err != nil {
		return fmt.Errorf("register monitor job: %w", err)
	}

	s.scheduler.Start()
	s.running = true
	return nil
}

// Stop stops the scheduler. The surface remains usable for manual phase runs.
func (s *Surface) Stop() {
	if !s.running {
		return
	}
	s.scheduler.Stop()
	s.running = false
}

// RunPhase triggers a single phase out of band, independent of the scheduler.
func (s *Surface) RunPhase(ctx context.Context, phase int) error {
	switch phase {
	case 1:
		return s.pipeline.RunPhase1(ctx)
	case 2:
		return s.pipeline.RunPhase2(ctx)
	case 3:
		return s.pipeline.RunPhase3(ctx)
	case 4:
		return s.pipeline.RunPhase4(ctx)
	case 5:
		return s.pipeline.RunPhase5(ctx)
	default:
		return fmt.Errorf("unknown phase %d", phase)
	}
}

// ManualClose closes a specific open trade at its current option mid (or zero if
// unavailable) and records exit_reason = manual, or a caller-provided reason string.
func (s *Surface) ManualClose(tradeID int64, reason string) error {
	t, err := s.store.GetTrade(tradeID)
	if err != nil {
		return fmt.Errorf("load trade %d: %w", tradeID, err)
	}
	if t.Status != store.StatusOpen {
		return fmt.Errorf("trade %d is not open", tradeID)
	}

	exitReason := store.ExitManual
	if reason != "" {
		exitReason = store.ExitReason(reason)
	}

	currentPrice := 0.0
	if expiry, err := parseExpiryDate(t.Expiry); err == nil {
		right := rightFor(t.Strategy)
		if premium, err := s.market.GetOptionPremium(t.Ticker, t.Strike, expiry, right); err == nil && premium != nil {
			currentPrice = premium.Mid
		}
	}

	pnl := (t.EntryPrice - currentPrice) * 100 * float64(t.Contracts)
	pnlPct := 0.0
	if t.EntryPrice != 0 {
		pnlPct = (t.EntryPrice - currentPrice) / t.EntryPrice * 100
	}

	if err := s.store.CloseTrade(tradeID, store.ExitData{
		ExitPrice:  currentPrice,
		ExitDate:   s.clock.Now(),
		ExitSpot:   t.EntrySpot,
		ExitReason: exitReason,
		PnLDollars: pnl,
		PnLPercent: pnlPct,
	}); err != nil {
		return fmt.Errorf("close trade %d: %w", tradeID, err)
	}

	updated, err := s.store.GetTrade(tradeID)
	if err == nil {
		s.bus.PublishTrade(events.TradeData{Action: events.ActionManualClose, TradeID: tradeID, Trade: *updated})
	}
	return nil
}

// Status is the Control Surface's getStatus() view.
type Status struct {
	Enabled         bool
	Running         bool
	OpenPositions   int
	CurrentValue    float64
	StartingBalance float64
	TotalPnL        float64
	LastMonitorTick time.Time
}

// GetStatus assembles the current operating status. A store that is not ready is
// reported as disabled/not-running rather than erroring, so the HTTP layer can still
// render a degraded page.
func (s *Surface) GetStatus() Status {
	if !s.store.IsReady() {
		return Status{}
	}
	cfg, err := runtimeconfig.Load(s.store)
	if err != nil {
		return Status{}
	}

	openTrades, _ := s.store.GetOpenTrades()
	curve, _ := s.store.GetEquityCurve()

	status := Status{
		Enabled:       cfg.Bool(runtimeconfig.KeyEnabled, false),
		Running:       s.running,
		OpenPositions: len(openTrades),
		LastMonitorTick: s.lastTick,
	}
	if curve != nil {
		status.CurrentValue = curve.CurrentValue
		status.StartingBalance = curve.StartingBalance
		status.TotalPnL = curve.CurrentValue - curve.StartingBalance
	}
	return status
}

func rightFor(strategy store.Strategy) marketdata.Right {
	if strategy == store.StrategyCoveredCall {
		return marketdata.Call
	}
	return marketdata.Put
}

func parseExpiryDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
