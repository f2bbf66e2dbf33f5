package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aristath/arduino-trader/internal/events"
)

// handleEvents streams every Control Surface event (status, progress, trade, position
// update, log) to the caller as server-sent events, for as long as the connection stays
// open. One subscription is registered per connection and is never explicitly
// unregistered; a closed connection simply stops being written to, matching the event
// bus's lossy, fire-and-forget broadcast model.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan *events.Event, 32)
	handler := func(e *events.Event) {
		select {
		case ch <- e:
		default:
			s.log.Warn().Str("event_id", e.ID).Msg("sse client too slow, dropping event")
		}
	}
	for _, t := range []events.EventType{events.StatusEvent, events.ProgressEvent, events.TradeEvent, events.PositionUpdateEvent, events.LogEvent} {
		s.bus.Subscribe(t, handler)
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-ch:
			payload, err := json.Marshal(e)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, payload)
			flusher.Flush()
		}
	}
}
