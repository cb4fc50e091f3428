package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/awmpietro/scenario-simulator/internal/app"
	"github.com/awmpietro/scenario-simulator/internal/config"
	"github.com/awmpietro/scenario-simulator/internal/history"
	"github.com/awmpietro/scenario-simulator/internal/logging"
	"github.com/awmpietro/scenario-simulator/internal/scenario"
	"github.com/awmpietro/scenario-simulator/internal/scenario/cache"
	"github.com/awmpietro/scenario-simulator/internal/telemetry"
	"github.com/awmpietro/scenario-simulator/internal/transport/lambdatransport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger(cfg.LogLevel, os.Stderr)
	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, "scenario-simulator-lambda", cfg.OTELEndpoint)
	if err != nil {
		logger.Error("telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracing(ctx) }()

	// Lambda has no durable disk; HistoryDB normally points at /tmp or is empty.
	store, closeStore, err := history.Open(ctx, cfg.HistoryDB, cfg.HistoryMaxRecords)
	if err != nil {
		logger.Error("history", "error", err)
		os.Exit(1)
	}
	defer func() { _ = closeStore() }()

	trialObserver := scenario.NewAsyncTrialObserver(scenario.NewTrialLogger(logger), cfg.ObsBuffer)
	defer trialObserver.Close()

	sim := scenario.NewSimulator(cfg.SimulationConfig(),
		scenario.WithObserver(trialObserver),
		scenario.WithHistory(store),
		scenario.WithLogger(logger),
	)
	svc := app.NewService(scenario.NewCompiler(), sim, cache.NewInMemory(cfg.CacheMaxItems), store,
		app.WithLimits(cfg.MaxTrials, cfg.Budget),
	)
	h := lambdatransport.NewHandler(svc)

	lambda.Start(h.Handle)
}
