// Package events implements the one-way broadcast bus the trading pipeline uses to
// fan out status, progress, trade, position, and log events to observers (the HTTP SSE
// stream, primarily). Broadcasting is fire-and-forget: a subscriber that is slow or
// absent never blocks the pipeline or the monitor.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventType names one of the five broadcast kinds.
type EventType string

const (
	StatusEvent         EventType = "autonomous-status"
	ProgressEvent       EventType = "autonomous-progress"
	TradeEvent          EventType = "autonomous-trade"
	PositionUpdateEvent EventType = "autonomous-position-update"
	LogEvent            EventType = "autonomous-log"
)

// PhaseStatus is the status field of a ProgressEvent.
type PhaseStatus string

const (
	PhaseStarting   PhaseStatus = "starting"
	PhaseFetching   PhaseStatus = "fetching"
	PhaseDiscovery  PhaseStatus = "discovery"
	PhaseGrok       PhaseStatus = "grok"
	PhaseCandidates PhaseStatus = "candidates"
	PhaseData       PhaseStatus = "data"
	PhaseAI         PhaseStatus = "ai"
	PhaseComplete   PhaseStatus = "complete"
	PhaseSkipped    PhaseStatus = "skipped"
	PhaseError      PhaseStatus = "error"
)

// TradeAction is the action field of a TradeEvent.
type TradeAction string

const (
	ActionOpened       TradeAction = "opened"
	ActionClosed       TradeAction = "closed"
	ActionStopLoss     TradeAction = "stop_loss"
	ActionProfitTarget TradeAction = "profit_target"
	ActionDTEManage    TradeAction = "dte_manage"
	ActionManualClose  TradeAction = "manual_close"
)

// StatusData backs a StatusEvent.
type StatusData struct {
	Enabled         bool      `json:"enabled"`
	Running         bool      `json:"running"`
	OpenPositions   int       `json:"open_positions"`
	CurrentValue    float64   `json:"current_value"`
	StartingBalance float64   `json:"starting_balance"`
	TotalPnL        float64   `json:"total_pnl"`
	LastMonitorTick time.Time `json:"last_monitor_tick"`
}

// ProgressData backs a ProgressEvent.
type ProgressData struct {
	Phase         int         `json:"phase"`
	Status        PhaseStatus `json:"status"`
	Message       string      `json:"message"`
	CorrelationID string      `json:"correlation_id"`
}

// TradeData backs a TradeEvent. Trade is left as interface{} so the events package does
// not import store and create a cycle; callers pass a store.Trade value.
type TradeData struct {
	Action  TradeAction `json:"action"`
	TradeID int64       `json:"trade_id"`
	Trade   interface{} `json:"trade"`
}

// PositionUpdateData backs a PositionUpdateEvent.
type PositionUpdateData struct {
	TradeID        int64   `json:"trade_id"`
	CurrentPrice   float64 `json:"current_price"`
	PnLPerContract float64 `json:"pnl_per_contract"`
	PnLPercent     float64 `json:"pnl_percent"`
	PnLTotal       float64 `json:"pnl_total"`
}

// LogData backs a LogEvent.
type LogData struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Event is the envelope broadcast to subscribers.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Handler receives a broadcast Event. Handlers must not block; the bus does not wait on
// them beyond the duration of the call itself.
type Handler func(*Event)

// Bus is a lossy, non-blocking fan-out broadcaster. Zero value is not usable; use
// NewBus. Safe for concurrent use.
type Bus struct {
	log         zerolog.Logger
	mu          sync.RWMutex
	subscribers map[EventType][]Handler
}

// NewBus returns an empty event bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		log:         log.With().Str("component", "events").Logger(),
		subscribers: make(map[EventType][]Handler),
	}
}

// Subscribe registers h to receive every future event of the given type. Subscribe is
// typically called once per SSE client connection.
func (b *Bus) Subscribe(t EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[t] = append(b.subscribers[t], h)
}

// Publish broadcasts data under type t to every current subscriber of t. Core logic
// never blocks on this call: each handler is invoked synchronously but handlers are
// expected to be non-blocking (e.g. a non-blocking channel send); if no observer
// exists, the event is simply dropped.
func (b *Bus) Publish(t EventType, data interface{}) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[t]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	evt := &Event{ID: uuid.NewString(), Type: t, Timestamp: time.Now(), Data: data}
	for _, h := range handlers {
		h(evt)
	}
}

// PublishStatus is a typed convenience wrapper around Publish.
func (b *Bus) PublishStatus(d StatusData) { b.Publish(StatusEvent, d) }

// PublishProgress is a typed convenience wrapper around Publish.
func (b *Bus) PublishProgress(d ProgressData) {
	b.Publish(ProgressEvent, d)
	b.log.Info().Int("phase", d.Phase).Str("status", string(d.Status)).Str("correlation_id", d.CorrelationID).Msg(d.Message)
}

// PublishTrade is a typed convenience wrapper around Publish.
func (b *Bus) PublishTrade(d TradeData) { b.Publish(TradeEvent, d) }

// PublishPositionUpdate is a typed convenience wrapper around Publish.
func (b *Bus) PublishPositionUpdate(d PositionUpdateData) { b.Publish(PositionUpdateEvent, d) }

// PublishLog broadcasts a log line and also writes it through zerolog, matching the
// teacher's "log event" dual-path idiom (structured log plus broadcast).
func (b *Bus) PublishLog(message string) {
	d := LogData{Message: message, Timestamp: time.Now()}
	b.Publish(LogEvent, d)
	b.log.Info().Msg(message)
}
