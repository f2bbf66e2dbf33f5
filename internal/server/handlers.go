package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/arduino-trader/internal/events"
	"github.com/aristath/arduino-trader/internal/runtimeconfig"
	"github.com/aristath/arduino-trader/internal/store"
)

var errInvalidPhase = errors.New("phase must be an integer between 1 and 5")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.control.GetStatus()
	writeJSON(w, http.StatusOK, events.StatusData{
		Enabled:         status.Enabled,
		Running:         status.Running,
		OpenPositions:   status.OpenPositions,
		CurrentValue:    status.CurrentValue,
		StartingBalance: status.StartingBalance,
		TotalPnL:        status.TotalPnL,
		LastMonitorTick: status.LastMonitorTick,
	})
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	if err := s.control.Enable(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": true})
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	if err := s.control.Disable(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": false})
}

func (s *Server) handleRunPhase(w http.ResponseWriter, r *http.Request) {
	phase, err := strconv.Atoi(chi.URLParam(r, "phase"))
	if err != nil || phase < 1 || phase > 5 {
		writeError(w, http.StatusBadRequest, errInvalidPhase)
		return
	}
	// Phases call out to slow upstream services; run them off the request goroutine and
	// let the caller follow progress over the event stream.
	go func() {
		if err := s.control.RunPhase(context.Background(), phase); err != nil {
			s.log.Error().Err(err).Int("phase", phase).Msg("manual phase run failed")
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]int{"phase": phase})
}

func (s *Server) handleManualClose(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	if err := s.control.ManualClose(id, body.Reason); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"trade_id": id})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := runtimeconfig.Load(s.store)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg.Raw())
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	for key, value := range updates {
		if err := runtimeconfig.Set(s.store, key, value); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": len(updates)})
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			days = n
		}
	}
	metrics, err := s.store.GetPerformanceMetrics(days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) handleEquityCurve(w http.ResponseWriter, r *http.Request) {
	curve, err := s.store.GetEquityCurve()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, curve)
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	trades, err := s.store.GetAllTrades(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if trades == nil {
		trades = []store.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.store.GetActiveRules()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}
