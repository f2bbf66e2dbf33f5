// Package server exposes the Control Surface (internal/control) over HTTP: status,
// enable/disable, manual phase triggers, manual close, config read/write, performance
// and equity reporting, and a server-sent-events stream fed by the event bus.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/arduino-trader/internal/control"
	"github.com/aristath/arduino-trader/internal/events"
	"github.com/aristath/arduino-trader/internal/store"
)

// Config holds server configuration.
type Config struct {
	Port    int
	Log     zerolog.Logger
	Store   *store.DB
	Control *control.Surface
	Bus     *events.Bus
	DevMode bool
}

// Server is the HTTP front door onto the Control Surface.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	store   *store.DB
	control *control.Surface
	bus     *events.Bus
}

// New builds a Server with routes and middleware wired, ready to Start.
func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
		store:   cfg.Store,
		control: cfg.Control,
		bus:     cfg.Bus,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // the SSE stream is long-lived; per-request timeouts would kill it
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/autonomous", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/enable", s.handleEnable)
		r.Post("/disable", s.handleDisable)
		r.Post("/phase/{phase}", s.handleRunPhase)
		r.Post("/trades/{id}/close", s.handleManualClose)
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handlePutConfig)
		r.Get("/events", s.handleEvents)
		r.Get("/performance", s.handlePerformance)
		r.Get("/equity-curve", s.handleEquityCurve)
		r.Get("/trades", s.handleListTrades)
		r.Get("/rules", s.handleListRules)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
