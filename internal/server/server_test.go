package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aristath/arduino-trader/internal/clients/yahoo"
	"github.com/aristath/arduino-trader/internal/clock"
	"github.com/aristath/arduino-trader/internal/control"
	"github.com/aristath/arduino-trader/internal/events"
	"github.com/aristath/arduino-trader/internal/locking"
	"github.com/aristath/arduino-trader/internal/marketdata"
	"github.com/aristath/arduino-trader/internal/monitor"
	"github.com/aristath/arduino-trader/internal/pipeline"
	"github.com/aristath/arduino-trader/internal/scheduler"
	"github.com/aristath/arduino-trader/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "trader.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	market := marketdata.New(yahoo.NewClient(zerolog.Nop()), zerolog.Nop())
	bus := events.NewBus(zerolog.Nop())
	c := clock.NewFixed(time.Date(2026, 6, 17, 15, 0, 0, 0, time.UTC))
	locks := locking.NewManager()

	pipe := pipeline.New(pipeline.Deps{Store: db, Market: market, Bus: bus, Clock: c, Locks: locks, Log: zerolog.Nop()})
	mon := monitor.New(db, market, bus, c, locks, zerolog.Nop())
	sched := scheduler.New(zerolog.Nop())
	surface := control.New(db, market, pipe, mon, sched, bus, c, zerolog.Nop())
	t.Cleanup(surface.Stop)

	srv := New(Config{Port: 0, Log: zerolog.Nop(), Store: db, Control: surface, Bus: bus, DevMode: true})
	return srv, db
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
}

func TestStatus_ReturnsDisabledByDefault(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/autonomous/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var status events.StatusData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.False(t, status.Enabled)
}

func TestEnableThenDisable(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/autonomous/enable", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/autonomous/status", nil))
	var status events.StatusData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.True(t, status.Enabled)

	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/autonomous/disable", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRunPhase_InvalidPhaseIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/autonomous/phase/9", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunPhase_NonIntegerPhaseIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/autonomous/phase/abc", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestManualClose_UnknownTradeIsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/autonomous/trades/999/close", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetAndPutConfig(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/autonomous/config", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var cfg map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	require.Equal(t, "5", cfg["max_positions"])

	body := strings.NewReader(`{"max_positions":"8"}`)
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/autonomous/config", body))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/autonomous/config", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	require.Equal(t, "8", cfg["max_positions"])
}

func TestListTrades_EmptyIsEmptyArray(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/autonomous/trades", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[]`, w.Body.String())
}

func TestPerformance_EmptyStore(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/autonomous/performance?days=30", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
