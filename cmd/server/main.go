package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/arduino-trader/internal/ai"
	"github.com/aristath/arduino-trader/internal/calendar"
	"github.com/aristath/arduino-trader/internal/clients/yahoo"
	"github.com/aristath/arduino-trader/internal/clock"
	"github.com/aristath/arduino-trader/internal/config"
	"github.com/aristath/arduino-trader/internal/control"
	"github.com/aristath/arduino-trader/internal/events"
	"github.com/aristath/arduino-trader/internal/locking"
	"github.com/aristath/arduino-trader/internal/marketdata"
	"github.com/aristath/arduino-trader/internal/monitor"
	"github.com/aristath/arduino-trader/internal/pipeline"
	"github.com/aristath/arduino-trader/internal/runtimeconfig"
	"github.com/aristath/arduino-trader/internal/scheduler"
	"github.com/aristath/arduino-trader/internal/server"
	"github.com/aristath/arduino-trader/internal/store"
	"github.com/aristath/arduino-trader/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	log.Info().Msg("starting autonomous options trader")

	db, err := store.Open(cfg.DatabasePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer db.Close()

	bus := events.NewBus(log)
	realClock := clock.Real{}
	locks := locking.NewManager()

	yahooClient := yahoo.NewClient(log)
	market := marketdata.New(yahooClient, log)

	aiGateway := ai.New(ai.Config{
		AnalysisBaseURL: cfg.AnalysisServiceURL,
		SearchBaseURL:   cfg.SearchServiceURL,
		Timeout:         cfg.AIRequestTimeout,
	}, log)

	pipe := pipeline.New(pipeline.Deps{
		Store:  db,
		Market: market,
		AI:     aiGateway,
		Bus:    bus,
		Clock:  realClock,
		Locks:  locks,
		Log:    log,
	})

	mon := monitor.New(db, market, bus, realClock, locks, log)
	sched := scheduler.New(log)
	surface := control.New(db, market, pipe, mon, sched, bus, realClock, log)

	if db.IsReady() {
		snap, err := runtimeconfig.Load(db)
		if err != nil {
			log.Error().Err(err).Msg("failed to load runtime config")
		} else if snap.Bool(runtimeconfig.KeyEnabled, false) {
			if err := surface.Start(); err != nil {
				log.Error().Err(err).Msg("failed to resume scheduler on startup")
			} else {
				log.Info().Msg("resumed autonomous trading on startup (enabled=true)")
			}
		}
	}

	httpServer := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		Store:   db,
		Control: surface,
		Bus:     bus,
		DevMode: cfg.DevMode,
	})

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	log.Info().Int("port", cfg.Port).Bool("market_open_now", calendar.IsOpen(realClock.Now())).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	surface.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http server forced to shutdown")
	}

	log.Info().Msg("shutdown complete")
}
