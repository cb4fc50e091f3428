package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awmpietro/scenario-simulator/internal/app"
	"github.com/awmpietro/scenario-simulator/internal/config"
	"github.com/awmpietro/scenario-simulator/internal/history"
	"github.com/awmpietro/scenario-simulator/internal/logging"
	"github.com/awmpietro/scenario-simulator/internal/scenario"
	"github.com/awmpietro/scenario-simulator/internal/scenario/cache"
	"github.com/awmpietro/scenario-simulator/internal/telemetry"
	"github.com/awmpietro/scenario-simulator/internal/transport/httptransport"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.NewLogger(cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "scenario-simulator", cfg.OTELEndpoint)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	store, closeStore, err := history.Open(ctx, cfg.HistoryDB, cfg.HistoryMaxRecords)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	trialObserver := scenario.NewAsyncTrialObserver(scenario.NewTrialLogger(logger), cfg.ObsBuffer)
	defer func() {
		trialObserver.Close()
		if n := trialObserver.Dropped(); n > 0 {
			logger.Warn("trial events dropped", "count", n)
		}
	}()

	sim := scenario.NewSimulator(cfg.SimulationConfig(),
		scenario.WithObserver(trialObserver),
		scenario.WithHistory(store),
		scenario.WithLogger(logger),
	)
	svc := app.NewService(scenario.NewCompiler(), sim, cache.NewInMemory(cfg.CacheMaxItems), store,
		app.WithLimits(cfg.MaxTrials, cfg.Budget),
	)

	mux := http.NewServeMux()
	httptransport.NewHandler(svc).Routes(mux)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
