// Package pipeline implements the Pipeline (C7): the five daily phase procedures
// (Intel, Analyze, Execute, End-of-day review, Self-reflection). Each phase is a single
// asynchronous procedure, idempotent at the day granularity, coalesced against its own
// overlap via the lock manager, and reporting progress through the event bus.
package pipeline

import (
	"context"
	"fmt"

	"github.com/aristath/arduino-trader/internal/ai"
	"github.com/aristath/arduino-trader/internal/clock"
	"github.com/aristath/arduino-trader/internal/events"
	"github.com/aristath/arduino-trader/internal/locking"
	"github.com/aristath/arduino-trader/internal/marketdata"
	"github.com/aristath/arduino-trader/internal/runtimeconfig"
	"github.com/aristath/arduino-trader/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Deps is the full set of collaborators a Pipeline phase can call. Every phase receives
// the same Deps; no narrower per-phase interfaces are declared.
type Deps struct {
	Store  *store.DB
	Market *marketdata.Gateway
	AI     *ai.Gateway
	Bus    *events.Bus
	Clock  clock.Clock
	Locks  *locking.Manager
	Log    zerolog.Logger
}

// Pipeline owns the five phase procedures.
type Pipeline struct {
	deps Deps
	log  zerolog.Logger
}

// New returns a Pipeline.
func New(deps Deps) *Pipeline {
	return &Pipeline{deps: deps, log: deps.Log.With().Str("component", "pipeline").Logger()}
}

const (
	lockPhase1 = "phase-1-intel"
	lockPhase2 = "phase-2-analyze"
	lockPhase3 = "phase-3-execute"
	lockPhase4 = "phase-4-eod"
	lockPhase5 = "phase-5-reflect"
)

// runLocked acquires name, runs fn under a fresh correlation id, and releases the lock
// on return. If the lock is already held, the trigger is dropped with a warning per the
// scheduler's "at most one phase procedure runs at a time" rule (spec §5).
func (p *Pipeline) runLocked(ctx context.Context, phase int, name string, fn func(ctx context.Context, correlationID string) error) error {
	if !p.deps.Locks.Acquire(name) {
		p.log.Warn().Str("phase_lock", name).Msg("phase already running, dropping overlapping trigger")
		return nil
	}
	defer p.deps.Locks.Release(name)

	correlationID := uuid.NewString()
	log := p.log.With().Str("correlation_id", correlationID).Int("phase", phase).Logger()

	p.deps.Bus.PublishProgress(events.ProgressData{Phase: phase, Status: events.PhaseStarting, Message: fmt.Sprintf("phase %d starting", phase), CorrelationID: correlationID})

	err := fn(ctx, correlationID)
	if err != nil {
		log.Error().Err(err).Msg("phase failed")
		p.deps.Bus.PublishProgress(events.ProgressData{Phase: phase, Status: events.PhaseError, Message: err.Error(), CorrelationID: correlationID})
		return err
	}
	return nil
}

// loadConfig takes a fresh read-only Snapshot; phases must not cache config across
// suspension points beyond this single load (spec §5).
func (p *Pipeline) loadConfig() (runtimeconfig.Snapshot, error) {
	return runtimeconfig.Load(p.deps.Store)
}

func (p *Pipeline) today() string {
	return p.deps.Clock.Now().Format("2006-01-02")
}
